package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists ledger rows and holds. Counter math lives in the
// Ledger; the repository only reads and writes rows, with row locking
// available inside a Transaction.
type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	CreateRecord(ctx context.Context, record *AvailabilityRecord) error
	GetRecord(ctx context.Context, occurrenceID uuid.UUID) (*AvailabilityRecord, error)
	GetRecordForUpdate(ctx context.Context, occurrenceID uuid.UUID) (*AvailabilityRecord, error)
	SaveRecord(ctx context.Context, record *AvailabilityRecord) error

	CreateHold(ctx context.Context, hold *Hold) error
	GetHold(ctx context.Context, holdID uuid.UUID) (*Hold, error)
	UpdateHoldStatus(ctx context.Context, holdID uuid.UUID, status HoldStatus) error
	ActiveHolds(ctx context.Context, occurrenceID uuid.UUID) ([]Hold, error)
	OccurrencesWithExpiredHolds(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Transaction(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) CreateRecord(ctx context.Context, record *AvailabilityRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) GetRecord(ctx context.Context, occurrenceID uuid.UUID) (*AvailabilityRecord, error) {
	var record AvailabilityRecord
	err := r.db.WithContext(ctx).
		Where("occurrence_id = ?", occurrenceID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) GetRecordForUpdate(ctx context.Context, occurrenceID uuid.UUID) (*AvailabilityRecord, error) {
	var record AvailabilityRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("occurrence_id = ?", occurrenceID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to lock availability record: %w", err)
	}
	return &record, nil
}

func (r *repository) SaveRecord(ctx context.Context, record *AvailabilityRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *repository) CreateHold(ctx context.Context, hold *Hold) error {
	return r.db.WithContext(ctx).Create(hold).Error
}

func (r *repository) GetHold(ctx context.Context, holdID uuid.UUID) (*Hold, error) {
	var hold Hold
	err := r.db.WithContext(ctx).Where("id = ?", holdID).First(&hold).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHoldNotFound
		}
		return nil, err
	}
	return &hold, nil
}

func (r *repository) UpdateHoldStatus(ctx context.Context, holdID uuid.UUID, status HoldStatus) error {
	return r.db.WithContext(ctx).
		Model(&Hold{}).
		Where("id = ?", holdID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func (r *repository) ActiveHolds(ctx context.Context, occurrenceID uuid.UUID) ([]Hold, error) {
	var holds []Hold
	err := r.db.WithContext(ctx).
		Where("occurrence_id = ?", occurrenceID).
		Where("status = ?", HoldStatusActive).
		Order("created_at ASC").
		Find(&holds).Error
	return holds, err
}

func (r *repository) OccurrencesWithExpiredHolds(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&Hold{}).
		Where("status = ?", HoldStatusActive).
		Where("expires_at < ?", now).
		Distinct("occurrence_id").
		Limit(limit).
		Pluck("occurrence_id", &ids).Error
	return ids, err
}
