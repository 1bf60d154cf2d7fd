package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByRef(ctx context.Context, ref string) (*Booking, error)
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) ([]Booking, error)
	GetByBuyerID(ctx context.Context, buyerID uuid.UUID) ([]Booking, error)
	Update(ctx context.Context, booking *Booking) error
	UpdateStatusBySession(ctx context.Context, sessionID uuid.UUID, status BookingStatus) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, booking *Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) GetByRef(ctx context.Context, ref string) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("booking_ref = ?", ref).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *repository) GetByBuyerID(ctx context.Context, buyerID uuid.UUID) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

func (r *repository) Update(ctx context.Context, booking *Booking) error {
	return r.db.WithContext(ctx).Save(booking).Error
}

func (r *repository) UpdateStatusBySession(ctx context.Context, sessionID uuid.UUID, status BookingStatus) error {
	return r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}
