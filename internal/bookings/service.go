package bookings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voyago/pkg/logger"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
	"github.com/samber/lo"
)

type Service interface {
	CreatePending(ctx context.Context, params CreateBookingParams) (*Booking, error)
	MarkAwaitingCapture(ctx context.Context, sessionID uuid.UUID) error
	ConfirmBySession(ctx context.Context, sessionID uuid.UUID) ([]Booking, error)
	FailBySession(ctx context.Context, sessionID uuid.UUID) error
	CancelBySession(ctx context.Context, sessionID uuid.UUID) error
	Refund(ctx context.Context, bookingID uuid.UUID) (*BookingResponse, error)

	GetBooking(ctx context.Context, bookingID uuid.UUID) (*BookingResponse, error)
	GetBookingByRef(ctx context.Context, ref string) (*BookingResponse, error)
	GetBuyerBookings(ctx context.Context, buyerID uuid.UUID) ([]BookingResponse, error)

	SetNotifier(n Notifier)
}

type CreateBookingParams struct {
	BuyerID      uuid.UUID
	OccurrenceID uuid.UUID
	SessionID    uuid.UUID
	Quantity     int
	TotalPrice   float64
	Currency     string
}

// CapacityReleaser frees confirmed ledger capacity on refund. Declared
// locally to avoid circular dependencies.
type CapacityReleaser interface {
	ReleaseConfirmed(ctx context.Context, occurrenceID uuid.UUID, quantity int) error
}

// Notifier delivers the booking confirmation to the buyer. Delivery is
// best-effort and never rolls back a confirmed booking.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, booking Booking) error
}

type service struct {
	repo     Repository
	releaser CapacityReleaser
	notifier Notifier
	log      *logger.Logger
}

func NewService(repo Repository, releaser CapacityReleaser) Service {
	return &service{
		repo:     repo,
		releaser: releaser,
		log:      logger.GetDefault(),
	}
}

func (s *service) SetNotifier(n Notifier) {
	s.notifier = n
}

func generateBookingRef() string {
	return "BK-" + strings.ToUpper(shortuuid.New()[:10])
}

func (s *service) CreatePending(ctx context.Context, params CreateBookingParams) (*Booking, error) {
	booking := &Booking{
		ID:           uuid.New(),
		BookingRef:   generateBookingRef(),
		BuyerID:      params.BuyerID,
		OccurrenceID: params.OccurrenceID,
		SessionID:    params.SessionID,
		Quantity:     params.Quantity,
		TotalPrice:   params.TotalPrice,
		Currency:     params.Currency,
		Status:       StatusPending,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return booking, nil
}

// transition moves one booking along the lifecycle table, rejecting
// anything the table does not allow.
func (s *service) transition(ctx context.Context, booking *Booking, target BookingStatus) error {
	if !booking.Status.CanTransitionTo(target) {
		s.log.LogInvariantViolation(ctx, "booking transition not allowed", map[string]interface{}{
			"booking_id": booking.ID.String(),
			"from":       booking.Status.String(),
			"to":         target.String(),
		})
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, target)
	}

	now := time.Now()
	booking.Status = target
	switch target {
	case StatusConfirmed:
		booking.ConfirmedAt = &now
	case StatusCancelled:
		booking.CancelledAt = &now
	case StatusRefunded:
		booking.RefundedAt = &now
	}
	return s.repo.Update(ctx, booking)
}

func (s *service) transitionSession(ctx context.Context, sessionID uuid.UUID, target BookingStatus) ([]Booking, error) {
	bookings, err := s.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		if err := s.transition(ctx, &bookings[i], target); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

func (s *service) MarkAwaitingCapture(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.transitionSession(ctx, sessionID, StatusAwaitingCapture)
	return err
}

// ConfirmBySession settles every booking of the session and fires the
// confirmation notification. Notification failure is logged and
// swallowed; the booking stays confirmed.
func (s *service) ConfirmBySession(ctx context.Context, sessionID uuid.UUID) ([]Booking, error) {
	bookings, err := s.transitionSession(ctx, sessionID, StatusConfirmed)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		for _, booking := range bookings {
			if err := s.notifier.SendBookingConfirmation(ctx, booking); err != nil {
				s.log.ErrorWithContext(ctx, "failed to send booking confirmation", err, map[string]interface{}{
					"booking_id": booking.ID.String(),
				})
			}
		}
	}
	return bookings, nil
}

func (s *service) FailBySession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.transitionSession(ctx, sessionID, StatusFailed)
	return err
}

func (s *service) CancelBySession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.transitionSession(ctx, sessionID, StatusCancelled)
	return err
}

// Refund is the only path out of Confirmed. The freed capacity goes
// back to the ledger, which in turn promotes the waitlist.
func (s *service) Refund(ctx context.Context, bookingID uuid.UUID) (*BookingResponse, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, booking, StatusRefunded); err != nil {
		return nil, err
	}

	if err := s.releaser.ReleaseConfirmed(ctx, booking.OccurrenceID, booking.Quantity); err != nil {
		// The booking is already refunded; a ledger release failure
		// here leaks capacity, not money. Surface it loudly.
		s.log.ErrorWithContext(ctx, "failed to release confirmed capacity after refund", err, map[string]interface{}{
			"booking_id":    booking.ID.String(),
			"occurrence_id": booking.OccurrenceID.String(),
		})
		return nil, fmt.Errorf("refund recorded but capacity release failed: %w", err)
	}

	s.log.LogBookingRefunded(ctx, booking.ID.String(), booking.OccurrenceID.String())

	resp := booking.ToResponse()
	return &resp, nil
}

func (s *service) GetBooking(ctx context.Context, bookingID uuid.UUID) (*BookingResponse, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	resp := booking.ToResponse()
	return &resp, nil
}

func (s *service) GetBookingByRef(ctx context.Context, ref string) (*BookingResponse, error) {
	booking, err := s.repo.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	resp := booking.ToResponse()
	return &resp, nil
}

func (s *service) GetBuyerBookings(ctx context.Context, buyerID uuid.UUID) ([]BookingResponse, error) {
	bookings, err := s.repo.GetByBuyerID(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	return lo.Map(bookings, func(b Booking, _ int) BookingResponse {
		return b.ToResponse()
	}), nil
}
