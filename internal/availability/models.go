package availability

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilityRecord is the capacity ledger row for one trip occurrence.
// Invariant: Confirmed + Held <= Capacity at all times. All mutation goes
// through the Ledger; nothing else writes these counters.
type AvailabilityRecord struct {
	OccurrenceID uuid.UUID `gorm:"type:uuid;primaryKey" json:"occurrence_id"`
	Capacity     int       `gorm:"not null;check:capacity >= 0" json:"capacity"`
	Confirmed    int       `gorm:"not null;default:0;check:confirmed >= 0" json:"confirmed"`
	Held         int       `gorm:"not null;default:0;check:held >= 0" json:"held"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (AvailabilityRecord) TableName() string {
	return "availability_records"
}

// HoldStatus tracks the lifecycle of a capacity hold
type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "ACTIVE"
	HoldStatusReleased  HoldStatus = "RELEASED"
	HoldStatusConfirmed HoldStatus = "CONFIRMED"
	HoldStatusExpired   HoldStatus = "EXPIRED"
)

// Hold is a time-bounded, not-yet-confirmed capacity reservation
type Hold struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OccurrenceID uuid.UUID  `gorm:"type:uuid;index;not null" json:"occurrence_id"`
	BuyerID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"buyer_id"`
	Quantity     int        `gorm:"not null;check:quantity > 0" json:"quantity"`
	Status       HoldStatus `gorm:"type:varchar(20);default:'ACTIVE';index" json:"status"`
	ExpiresAt    time.Time  `gorm:"not null;index" json:"expires_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Hold) TableName() string {
	return "availability_holds"
}

// IsExpired reports whether the hold's lifetime has passed
func (h *Hold) IsExpired(now time.Time) bool {
	return now.After(h.ExpiresAt)
}

// Snapshot is the read model exposed to browsing and checkout callers
type Snapshot struct {
	OccurrenceID uuid.UUID `json:"occurrence_id"`
	Capacity     int       `json:"capacity"`
	Confirmed    int       `json:"confirmed"`
	Held         int       `json:"held"`
	Available    int       `json:"available"`
}
