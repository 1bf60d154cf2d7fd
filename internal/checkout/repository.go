package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, session *CheckoutSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*CheckoutSession, error)
	Update(ctx context.Context, session *CheckoutSession) error
	GetByBuyerID(ctx context.Context, buyerID uuid.UUID) ([]CheckoutSession, error)
	FindStale(ctx context.Context, now time.Time, limit int) ([]CheckoutSession, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, session *CheckoutSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*CheckoutSession, error) {
	var session CheckoutSession
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *repository) Update(ctx context.Context, session *CheckoutSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

func (r *repository) GetByBuyerID(ctx context.Context, buyerID uuid.UUID) ([]CheckoutSession, error) {
	var sessions []CheckoutSession
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// FindStale returns expirable sessions past their deadline
func (r *repository) FindStale(ctx context.Context, now time.Time, limit int) ([]CheckoutSession, error) {
	var sessions []CheckoutSession
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("status IN ?", []SessionStatus{StatusBuilding, StatusPendingApproval}).
		Where("deadline < ?", now).
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}
