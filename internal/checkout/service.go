package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voyago/internal/availability"
	"voyago/internal/bookings"
	"voyago/internal/payments"
	"voyago/internal/shared/config"
	"voyago/internal/trips"
	"voyago/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	StartCheckout(ctx context.Context, buyerID uuid.UUID, req StartCheckoutRequest) (*SessionResponse, error)
	HandleApprovalReturn(ctx context.Context, sessionID uuid.UUID) (*SessionResponse, error)
	Cancel(ctx context.Context, sessionID, buyerID uuid.UUID) (*SessionResponse, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*SessionResponse, error)
	ExpireStaleSessions(ctx context.Context) (int, error)
}

// Ledger is the slice of the availability ledger checkout drives.
// Declared locally to avoid circular dependencies.
type Ledger interface {
	Hold(ctx context.Context, occurrenceID, buyerID uuid.UUID, quantity int) (*availability.Hold, error)
	Release(ctx context.Context, holdID uuid.UUID) error
	Confirm(ctx context.Context, holdID uuid.UUID) error
}

// BookingService is the booking lifecycle surface checkout needs
type BookingService interface {
	CreatePending(ctx context.Context, params bookings.CreateBookingParams) (*bookings.Booking, error)
	MarkAwaitingCapture(ctx context.Context, sessionID uuid.UUID) error
	ConfirmBySession(ctx context.Context, sessionID uuid.UUID) ([]bookings.Booking, error)
	FailBySession(ctx context.Context, sessionID uuid.UUID) error
	CancelBySession(ctx context.Context, sessionID uuid.UUID) error
}

// TripCatalog supplies pricing and bookability for line items
type TripCatalog interface {
	GetOccurrence(ctx context.Context, occurrenceID uuid.UUID) (*trips.TripOccurrenceResponse, error)
}

type service struct {
	repo       Repository
	ledger     Ledger
	gateway    payments.Client
	bookingSvc BookingService
	catalog    TripCatalog
	returnURL  string
	cancelURL  string
	deadline   time.Duration
	log        *logger.Logger
}

func NewService(repo Repository, ledger Ledger, gateway payments.Client, bookingSvc BookingService, catalog TripCatalog, cfg *config.Config) Service {
	return &service{
		repo:       repo,
		ledger:     ledger,
		gateway:    gateway,
		bookingSvc: bookingSvc,
		catalog:    catalog,
		returnURL:  cfg.Gateway.ReturnURL,
		cancelURL:  cfg.Gateway.CancelURL,
		deadline:   cfg.Checkout.SessionDeadline,
		log:        logger.GetDefault(),
	}
}

// StartCheckout acquires a ledger hold per line item (all-or-nothing),
// opens the session, creates the gateway order and hands back the
// buyer-facing approve link. The gateway round trip happens after all
// ledger work; no network call ever runs under a ledger lock.
func (s *service) StartCheckout(ctx context.Context, buyerID uuid.UUID, req StartCheckoutRequest) (*SessionResponse, error) {
	seen := make(map[string]bool, len(req.LineItems))
	for _, item := range req.LineItems {
		if seen[item.OccurrenceID] {
			return nil, fmt.Errorf("duplicate occurrence in line items: %s", item.OccurrenceID)
		}
		seen[item.OccurrenceID] = true
	}

	type pricedItem struct {
		occurrenceID uuid.UUID
		quantity     int
		unitPrice    float64
	}
	priced := make([]pricedItem, 0, len(req.LineItems))
	var total float64
	for _, item := range req.LineItems {
		occurrenceID, err := uuid.Parse(item.OccurrenceID)
		if err != nil {
			return nil, fmt.Errorf("invalid occurrence id: %s", item.OccurrenceID)
		}
		occurrence, err := s.catalog.GetOccurrence(ctx, occurrenceID)
		if err != nil {
			return nil, err
		}
		if occurrence.Status != trips.StatusPublished {
			return nil, fmt.Errorf("%w: %s", ErrOccurrenceNotBookable, occurrenceID)
		}
		priced = append(priced, pricedItem{
			occurrenceID: occurrenceID,
			quantity:     item.Quantity,
			unitPrice:    occurrence.Price,
		})
		total += occurrence.Price * float64(item.Quantity)
	}

	// All-or-nothing hold acquisition
	holds := make([]*availability.Hold, 0, len(priced))
	releaseAll := func() {
		for _, hold := range holds {
			if err := s.ledger.Release(ctx, hold.ID); err != nil {
				s.log.ErrorWithContext(ctx, "failed to release hold during rollback", err, map[string]interface{}{
					"hold_id": hold.ID.String(),
				})
			}
		}
	}
	for _, item := range priced {
		hold, err := s.ledger.Hold(ctx, item.occurrenceID, buyerID, item.quantity)
		if err != nil {
			releaseAll()
			if errors.Is(err, availability.ErrCapacityExceeded) {
				holdsRejected.Inc()
				return nil, fmt.Errorf("%w: occurrence %s", ErrInsufficientAvailability, item.occurrenceID)
			}
			return nil, err
		}
		holds = append(holds, hold)
	}

	session := &CheckoutSession{
		ID:          uuid.New(),
		BuyerID:     buyerID,
		Currency:    req.Currency,
		TotalAmount: total,
		Status:      StatusBuilding,
		Deadline:    time.Now().Add(s.deadline),
	}
	for i, item := range priced {
		booking, err := s.bookingSvc.CreatePending(ctx, bookings.CreateBookingParams{
			BuyerID:      buyerID,
			OccurrenceID: item.occurrenceID,
			SessionID:    session.ID,
			Quantity:     item.quantity,
			TotalPrice:   item.unitPrice * float64(item.quantity),
			Currency:     req.Currency,
		})
		if err != nil {
			releaseAll()
			return nil, fmt.Errorf("failed to create pending booking: %w", err)
		}
		session.LineItems = append(session.LineItems, LineItem{
			ID:           uuid.New(),
			SessionID:    session.ID,
			OccurrenceID: item.occurrenceID,
			Quantity:     item.quantity,
			UnitPrice:    item.unitPrice,
			HoldID:       holds[i].ID,
			BookingID:    booking.ID,
		})
	}
	if err := s.repo.Create(ctx, session); err != nil {
		releaseAll()
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	// Gateway round trip, outside all ledger locks
	returnURL := fmt.Sprintf("%s?session_id=%s", s.returnURL, session.ID)
	cancelURL := fmt.Sprintf("%s?session_id=%s", s.cancelURL, session.ID)
	order, err := s.gateway.CreateOrder(ctx, total, req.Currency, returnURL, cancelURL)
	if err != nil {
		releaseAll()
		if failErr := s.bookingSvc.FailBySession(ctx, session.ID); failErr != nil {
			s.log.ErrorWithContext(ctx, "failed to fail session bookings", failErr, map[string]interface{}{
				"session_id": session.ID.String(),
			})
		}
		s.failSession(ctx, session, "order_creation")
		return nil, err
	}

	session.GatewayOrderID = &order.ID
	session.ApproveURL = order.ApproveURL
	session.Status = StatusPendingApproval
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update checkout session: %w", err)
	}
	if err := s.bookingSvc.MarkAwaitingCapture(ctx, session.ID); err != nil {
		return nil, err
	}

	sessionsStarted.Inc()
	s.log.LogCheckoutStarted(ctx, session.ID.String(), buyerID.String(), total)

	resp := session.ToResponse()
	return &resp, nil
}

// HandleApprovalReturn runs the capture leg after the buyer approved
// the order out-of-band. Capture failure is final for the attempt: all
// holds are released and the session fails, leaving the buyer uncharged.
func (s *service) HandleApprovalReturn(ctx context.Context, sessionID uuid.UUID) (*SessionResponse, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case StatusPendingApproval:
	case StatusExpired:
		return nil, ErrSessionExpired
	default:
		return nil, fmt.Errorf("%w: cannot capture session in status %s", ErrInvalidSessionState, session.Status)
	}

	if session.IsExpired(time.Now()) {
		if err := s.expireSession(ctx, session); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}

	session.Status = StatusCapturing
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update checkout session: %w", err)
	}

	result, err := s.gateway.CaptureOrder(ctx, *session.GatewayOrderID)
	if err != nil {
		s.log.LogCaptureFailed(ctx, session.ID.String(), *session.GatewayOrderID, err)
		s.releaseSessionHolds(ctx, session)
		if failErr := s.bookingSvc.FailBySession(ctx, session.ID); failErr != nil {
			s.log.ErrorWithContext(ctx, "failed to fail session bookings", failErr, map[string]interface{}{
				"session_id": session.ID.String(),
			})
		}
		s.failSession(ctx, session, "capture")
		return nil, err
	}

	// Funds are captured; commit the reservation. A hold lost between
	// approval and capture here means our deadline outlived the hold
	// TTL, which the configuration forbids.
	for _, item := range session.LineItems {
		if err := s.ledger.Confirm(ctx, item.HoldID); err != nil {
			s.log.LogInvariantViolation(ctx, "hold unconfirmable after successful capture", map[string]interface{}{
				"session_id": session.ID.String(),
				"hold_id":    item.HoldID.String(),
				"error":      err.Error(),
			})
		}
	}
	if _, err := s.bookingSvc.ConfirmBySession(ctx, session.ID); err != nil {
		return nil, err
	}

	now := time.Now()
	session.Status = StatusSettled
	session.SettledAt = &now
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update checkout session: %w", err)
	}

	sessionsSettled.Inc()
	s.log.LogCheckoutSettled(ctx, session.ID.String(), result.OrderID)

	resp := session.ToResponse()
	return &resp, nil
}

// Cancel handles a buyer-initiated cancel before capture. Post-capture
// cancellation is a refund on the booking, never handled here.
func (s *service) Cancel(ctx context.Context, sessionID, buyerID uuid.UUID) (*SessionResponse, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.BuyerID != buyerID {
		return nil, ErrSessionNotFound
	}
	if !session.Status.CanTransitionTo(StatusCancelled) {
		return nil, fmt.Errorf("%w: cannot cancel session in status %s", ErrInvalidSessionState, session.Status)
	}

	s.releaseSessionHolds(ctx, session)
	if err := s.bookingSvc.CancelBySession(ctx, session.ID); err != nil {
		return nil, err
	}

	session.Status = StatusCancelled
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update checkout session: %w", err)
	}

	resp := session.ToResponse()
	return &resp, nil
}

func (s *service) GetSession(ctx context.Context, sessionID uuid.UUID) (*SessionResponse, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	resp := session.ToResponse()
	return &resp, nil
}

// ExpireStaleSessions times out sessions past their deadline and frees
// their holds. Returns the number of sessions expired.
func (s *service) ExpireStaleSessions(ctx context.Context) (int, error) {
	stale, err := s.repo.FindStale(ctx, time.Now(), 100)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale sessions: %w", err)
	}

	expired := 0
	for i := range stale {
		if err := s.expireSession(ctx, &stale[i]); err != nil {
			s.log.ErrorWithContext(ctx, "failed to expire stale session", err, map[string]interface{}{
				"session_id": stale[i].ID.String(),
			})
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *service) expireSession(ctx context.Context, session *CheckoutSession) error {
	if !session.Status.CanExpire() {
		return nil
	}

	s.releaseSessionHolds(ctx, session)
	if err := s.bookingSvc.CancelBySession(ctx, session.ID); err != nil {
		return err
	}

	session.Status = StatusExpired
	if err := s.repo.Update(ctx, session); err != nil {
		return err
	}
	sessionsExpired.Inc()
	return nil
}

// releaseSessionHolds releases every hold of the session. Release is
// idempotent, so re-running after a partial failure is safe.
func (s *service) releaseSessionHolds(ctx context.Context, session *CheckoutSession) {
	for _, item := range session.LineItems {
		if err := s.ledger.Release(ctx, item.HoldID); err != nil {
			s.log.ErrorWithContext(ctx, "failed to release session hold", err, map[string]interface{}{
				"session_id": session.ID.String(),
				"hold_id":    item.HoldID.String(),
			})
		}
	}
}

func (s *service) failSession(ctx context.Context, session *CheckoutSession, stage string) {
	session.Status = StatusFailed
	if err := s.repo.Update(ctx, session); err != nil {
		s.log.ErrorWithContext(ctx, "failed to mark session failed", err, map[string]interface{}{
			"session_id": session.ID.String(),
		})
	}
	sessionsFailed.WithLabelValues(stage).Inc()
}
