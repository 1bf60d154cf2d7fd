package notifications

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"voyago/internal/bookings"
	"voyago/internal/trips"
	"voyago/internal/waitlist"
	"voyago/pkg/logger"

	"github.com/google/uuid"
)

// TripCatalog resolves occurrence details for email content.
// Local interface to avoid circular dependencies.
type TripCatalog interface {
	GetOccurrence(ctx context.Context, occurrenceID uuid.UUID) (*trips.TripOccurrenceResponse, error)
}

// Directory resolves a buyer ID to a deliverable address. Buyer
// identity lives in the external auth provider, not in this service,
// so the lookup is pluggable.
type Directory interface {
	LookupBuyer(ctx context.Context, buyerID uuid.UUID) (email, name string, err error)
}

// CatchAllDirectory routes every notification to a single inbox. Used
// when no identity provider is wired up (local development, staging).
type CatchAllDirectory struct {
	Email string
	Name  string
}

func (d *CatchAllDirectory) LookupBuyer(ctx context.Context, buyerID uuid.UUID) (string, string, error) {
	if d.Email == "" {
		return "", "", fmt.Errorf("no directory configured for buyer %s", buyerID)
	}
	return d.Email, d.Name, nil
}

// Service builds notifications from domain events and hands them to
// the producer for delivery
type Service interface {
	SendBookingConfirmation(ctx context.Context, booking bookings.Booking) error
	SendWaitlistInvitation(ctx context.Context, entry waitlist.WaitlistEntry) error
}

type service struct {
	producer  Producer
	catalog   TripCatalog
	directory Directory
	log       *logger.Logger
}

func NewService(producer Producer, catalog TripCatalog, directory Directory) Service {
	return &service{
		producer:  producer,
		catalog:   catalog,
		directory: directory,
		log:       logger.GetDefault(),
	}
}

func (s *service) SendBookingConfirmation(ctx context.Context, booking bookings.Booking) error {
	occurrence, err := s.catalog.GetOccurrence(ctx, booking.OccurrenceID)
	if err != nil {
		return fmt.Errorf("failed to resolve occurrence for confirmation: %w", err)
	}

	email, name, err := s.directory.LookupBuyer(ctx, booking.BuyerID)
	if err != nil {
		return fmt.Errorf("failed to resolve buyer address: %w", err)
	}

	confirmedAt := time.Now().UTC()
	if booking.ConfirmedAt != nil {
		confirmedAt = *booking.ConfirmedAt
	}

	bookingID := booking.ID
	occurrenceID := booking.OccurrenceID
	notification := &Notification{
		ID:             uuid.New(),
		Type:           NotificationTypeBookingConfirmed,
		RecipientID:    booking.BuyerID,
		RecipientEmail: email,
		RecipientName:  name,
		Subject:        fmt.Sprintf("Booking confirmed: %s (%s)", occurrence.Name, booking.BookingRef),
		TemplateData: map[string]interface{}{
			"booking_ref":  booking.BookingRef,
			"trip_name":    occurrence.Name,
			"start_date":   occurrence.StartDate.Format(time.RFC3339),
			"end_date":     occurrence.EndDate.Format(time.RFC3339),
			"quantity":     strconv.Itoa(booking.Quantity),
			"total_price":  strconv.FormatFloat(booking.TotalPrice, 'f', 2, 64),
			"currency":     booking.Currency,
			"confirmed_at": confirmedAt.Format(time.RFC3339),
		},
		BookingID:    &bookingID,
		OccurrenceID: &occurrenceID,
		CreatedAt:    time.Now().UTC(),
	}

	return s.producer.Publish(ctx, notification)
}

func (s *service) SendWaitlistInvitation(ctx context.Context, entry waitlist.WaitlistEntry) error {
	occurrence, err := s.catalog.GetOccurrence(ctx, entry.OccurrenceID)
	if err != nil {
		return fmt.Errorf("failed to resolve occurrence for invitation: %w", err)
	}

	email, name, err := s.directory.LookupBuyer(ctx, entry.BuyerID)
	if err != nil {
		return fmt.Errorf("failed to resolve buyer address: %w", err)
	}

	windowEndsAt := ""
	if entry.WindowEndsAt != nil {
		windowEndsAt = entry.WindowEndsAt.Format(time.RFC3339)
	}

	entryID := entry.ID
	occurrenceID := entry.OccurrenceID
	notification := &Notification{
		ID:             uuid.New(),
		Type:           NotificationTypeWaitlistSpotAvailable,
		RecipientID:    entry.BuyerID,
		RecipientEmail: email,
		RecipientName:  name,
		Subject:        fmt.Sprintf("A spot opened up on %s", occurrence.Name),
		TemplateData: map[string]interface{}{
			"trip_name":      occurrence.Name,
			"start_date":     occurrence.StartDate.Format(time.RFC3339),
			"quantity":       strconv.Itoa(entry.Quantity),
			"window_ends_at": windowEndsAt,
		},
		WaitlistEntryID: &entryID,
		OccurrenceID:    &occurrenceID,
		CreatedAt:       time.Now().UTC(),
	}

	return s.producer.Publish(ctx, notification)
}
