package bookings

import (
	"time"

	"github.com/google/uuid"
)

// Booking is one occurrence reserved within one checkout session
type Booking struct {
	ID           uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookingRef   string        `gorm:"unique;not null" json:"booking_ref"`
	BuyerID      uuid.UUID     `gorm:"type:uuid;index;not null" json:"buyer_id"`
	OccurrenceID uuid.UUID     `gorm:"type:uuid;index;not null" json:"occurrence_id"`
	SessionID    uuid.UUID     `gorm:"type:uuid;index;not null" json:"session_id"`
	Quantity     int           `gorm:"not null;check:quantity > 0" json:"quantity"`
	TotalPrice   float64       `gorm:"not null" json:"total_price"`
	Currency     string        `gorm:"type:varchar(3);default:'USD'" json:"currency"`
	Status       BookingStatus `gorm:"type:varchar(20);default:'PENDING';index" json:"status"`
	ConfirmedAt  *time.Time    `json:"confirmed_at,omitempty"`
	CancelledAt  *time.Time    `json:"cancelled_at,omitempty"`
	RefundedAt   *time.Time    `json:"refunded_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

type BookingResponse struct {
	ID           string        `json:"id"`
	BookingRef   string        `json:"booking_ref"`
	BuyerID      string        `json:"buyer_id"`
	OccurrenceID string        `json:"occurrence_id"`
	SessionID    string        `json:"session_id"`
	Quantity     int           `json:"quantity"`
	TotalPrice   float64       `json:"total_price"`
	Currency     string        `json:"currency"`
	Status       BookingStatus `json:"status"`
	ConfirmedAt  *time.Time    `json:"confirmed_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

func (b *Booking) ToResponse() BookingResponse {
	return BookingResponse{
		ID:           b.ID.String(),
		BookingRef:   b.BookingRef,
		BuyerID:      b.BuyerID.String(),
		OccurrenceID: b.OccurrenceID.String(),
		SessionID:    b.SessionID.String(),
		Quantity:     b.Quantity,
		TotalPrice:   b.TotalPrice,
		Currency:     b.Currency,
		Status:       b.Status,
		ConfirmedAt:  b.ConfirmedAt,
		CreatedAt:    b.CreatedAt,
	}
}
