package checkout

import (
	"time"

	"github.com/google/uuid"
)

// CheckoutSession groups the ledger holds, pending bookings and the
// gateway order for one purchase attempt. Deadline is absolute; a
// session still unapproved past it expires and its holds are released.
type CheckoutSession struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID        uuid.UUID     `gorm:"type:uuid;index;not null" json:"buyer_id"`
	Currency       string        `gorm:"type:varchar(3);not null" json:"currency"`
	TotalAmount    float64       `gorm:"not null" json:"total_amount"`
	Status         SessionStatus `gorm:"type:varchar(20);default:'BUILDING';index" json:"status"`
	GatewayOrderID *string       `gorm:"index" json:"gateway_order_id,omitempty"`
	ApproveURL     string        `gorm:"size:500" json:"approve_url,omitempty"`
	Deadline       time.Time     `gorm:"not null;index" json:"deadline"`
	SettledAt      *time.Time    `json:"settled_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	LineItems []LineItem `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE;" json:"line_items,omitempty"`
}

func (CheckoutSession) TableName() string {
	return "checkout_sessions"
}

// LineItem is one (occurrence, quantity) entry of a session, pinned to
// the ledger hold and pending booking created for it.
type LineItem struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID    uuid.UUID `gorm:"type:uuid;index;not null" json:"session_id"`
	OccurrenceID uuid.UUID `gorm:"type:uuid;index;not null" json:"occurrence_id"`
	Quantity     int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice    float64   `gorm:"not null" json:"unit_price"`
	HoldID       uuid.UUID `gorm:"type:uuid;not null" json:"hold_id"`
	BookingID    uuid.UUID `gorm:"type:uuid;not null" json:"booking_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func (LineItem) TableName() string {
	return "checkout_line_items"
}

// REQUEST / RESPONSE TYPES

type LineItemRequest struct {
	OccurrenceID string `json:"occurrence_id" binding:"required,uuid"`
	Quantity     int    `json:"quantity" binding:"required,min=1,max=20"`
}

type StartCheckoutRequest struct {
	Currency  string            `json:"currency" binding:"required,iso4217"`
	LineItems []LineItemRequest `json:"line_items" binding:"required,min=1,max=10,dive"`
}

type LineItemResponse struct {
	OccurrenceID string  `json:"occurrence_id"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	BookingID    string  `json:"booking_id"`
}

type SessionResponse struct {
	ID          string             `json:"id"`
	BuyerID     string             `json:"buyer_id"`
	Currency    string             `json:"currency"`
	TotalAmount float64            `json:"total_amount"`
	Status      SessionStatus      `json:"status"`
	ApproveURL  string             `json:"approve_url,omitempty"`
	Deadline    time.Time          `json:"deadline"`
	LineItems   []LineItemResponse `json:"line_items"`
	CreatedAt   time.Time          `json:"created_at"`
}

func (s *CheckoutSession) ToResponse() SessionResponse {
	items := make([]LineItemResponse, 0, len(s.LineItems))
	for _, item := range s.LineItems {
		items = append(items, LineItemResponse{
			OccurrenceID: item.OccurrenceID.String(),
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			BookingID:    item.BookingID.String(),
		})
	}
	return SessionResponse{
		ID:          s.ID.String(),
		BuyerID:     s.BuyerID.String(),
		Currency:    s.Currency,
		TotalAmount: s.TotalAmount,
		Status:      s.Status,
		ApproveURL:  s.ApproveURL,
		Deadline:    s.Deadline,
		LineItems:   items,
		CreatedAt:   s.CreatedAt,
	}
}

// IsExpired reports whether the session deadline has passed
func (s *CheckoutSession) IsExpired(now time.Time) bool {
	return now.After(s.Deadline)
}
