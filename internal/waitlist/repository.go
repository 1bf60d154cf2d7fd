package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, entry *WaitlistEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*WaitlistEntry, error)
	GetQueued(ctx context.Context, occurrenceID uuid.UUID) ([]WaitlistEntry, error)
	GetActiveByBuyer(ctx context.Context, occurrenceID, buyerID uuid.UUID) (*WaitlistEntry, error)
	CountQueued(ctx context.Context, occurrenceID uuid.UUID) (int64, error)
	Update(ctx context.Context, entry *WaitlistEntry) error
	ExpiredWindows(ctx context.Context, now time.Time, limit int) ([]WaitlistEntry, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, entry *WaitlistEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*WaitlistEntry, error) {
	var entry WaitlistEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// GetQueued returns the occurrence's queue in FIFO order
func (r *repository) GetQueued(ctx context.Context, occurrenceID uuid.UUID) ([]WaitlistEntry, error) {
	var entries []WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("occurrence_id = ?", occurrenceID).
		Where("status = ?", EntryStatusQueued).
		Order("queued_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *repository) GetActiveByBuyer(ctx context.Context, occurrenceID, buyerID uuid.UUID) (*WaitlistEntry, error) {
	var entry WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("occurrence_id = ?", occurrenceID).
		Where("buyer_id = ?", buyerID).
		Where("status IN ?", []EntryStatus{EntryStatusQueued, EntryStatusPromoted}).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) CountQueued(ctx context.Context, occurrenceID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Where("occurrence_id = ?", occurrenceID).
		Where("status = ?", EntryStatusQueued).
		Count(&count).Error
	return count, err
}

func (r *repository) Update(ctx context.Context, entry *WaitlistEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *repository) ExpiredWindows(ctx context.Context, now time.Time, limit int) ([]WaitlistEntry, error) {
	var entries []WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("status = ?", EntryStatusPromoted).
		Where("window_ends_at < ?", now).
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
