package waitlist

import (
	"time"

	"github.com/google/uuid"
)

// EntryStatus tracks a waitlist entry's lifecycle
type EntryStatus string

const (
	EntryStatusQueued   EntryStatus = "QUEUED"
	EntryStatusPromoted EntryStatus = "PROMOTED"
	EntryStatusLeft     EntryStatus = "LEFT"
)

// WaitlistEntry is one buyer's place in an occurrence's queue. Order is
// FIFO by QueuedAt; a promoted entry carries the ledger hold reserved
// for it and a bounded accept window.
type WaitlistEntry struct {
	ID           uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OccurrenceID uuid.UUID   `gorm:"type:uuid;index;not null" json:"occurrence_id"`
	BuyerID      uuid.UUID   `gorm:"type:uuid;index;not null" json:"buyer_id"`
	Quantity     int         `gorm:"not null;check:quantity > 0" json:"quantity"`
	Status       EntryStatus `gorm:"type:varchar(20);default:'QUEUED';index" json:"status"`
	QueuedAt     time.Time   `gorm:"not null;index" json:"queued_at"`
	HoldID       *uuid.UUID  `gorm:"type:uuid" json:"hold_id,omitempty"`
	PromotedAt   *time.Time  `json:"promoted_at,omitempty"`
	WindowEndsAt *time.Time  `gorm:"index" json:"window_ends_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (WaitlistEntry) TableName() string {
	return "waitlist_entries"
}

type EntryResponse struct {
	ID           string      `json:"id"`
	OccurrenceID string      `json:"occurrence_id"`
	Quantity     int         `json:"quantity"`
	Status       EntryStatus `json:"status"`
	Position     int         `json:"position,omitempty"`
	QueuedAt     time.Time   `json:"queued_at"`
	WindowEndsAt *time.Time  `json:"window_ends_at,omitempty"`
}

func (e *WaitlistEntry) ToResponse(position int) EntryResponse {
	return EntryResponse{
		ID:           e.ID.String(),
		OccurrenceID: e.OccurrenceID.String(),
		Quantity:     e.Quantity,
		Status:       e.Status,
		Position:     position,
		QueuedAt:     e.QueuedAt,
		WindowEndsAt: e.WindowEndsAt,
	}
}

type JoinRequest struct {
	OccurrenceID string `json:"occurrence_id" binding:"required,uuid"`
	Quantity     int    `json:"quantity" binding:"required,min=1"`
}
