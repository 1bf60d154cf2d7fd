package trips

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	CreateOccurrences(ctx context.Context, occurrences []TripOccurrence) error
	GetOccurrence(ctx context.Context, id uuid.UUID) (*TripOccurrence, error)
	GetSeriesForUpdate(ctx context.Context, seriesID uuid.UUID) ([]TripOccurrence, error)
	GetSeries(ctx context.Context, seriesID uuid.UUID) ([]TripOccurrence, error)
	UpdateOccurrence(ctx context.Context, occurrence *TripOccurrence) error
	UpdateSeriesFields(ctx context.Context, seriesID uuid.UUID, updates map[string]interface{}) error
	List(ctx context.Context, query TripListQuery) ([]TripOccurrence, int64, error)
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

func (r *repository) CreateOccurrences(ctx context.Context, occurrences []TripOccurrence) error {
	return r.db.WithContext(ctx).Create(&occurrences).Error
}

func (r *repository) GetOccurrence(ctx context.Context, id uuid.UUID) (*TripOccurrence, error) {
	var occurrence TripOccurrence
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&occurrence).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOccurrenceNotFound
		}
		return nil, err
	}
	return &occurrence, nil
}

// GetSeriesForUpdate locks every occurrence row of the series for the
// duration of the surrounding transaction.
func (r *repository) GetSeriesForUpdate(ctx context.Context, seriesID uuid.UUID) ([]TripOccurrence, error) {
	var occurrences []TripOccurrence
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("series_id = ?", seriesID).
		Order("start_date ASC").
		Find(&occurrences).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock series occurrences: %w", err)
	}
	if len(occurrences) == 0 {
		return nil, ErrSeriesNotFound
	}
	return occurrences, nil
}

func (r *repository) GetSeries(ctx context.Context, seriesID uuid.UUID) ([]TripOccurrence, error) {
	var occurrences []TripOccurrence
	err := r.db.WithContext(ctx).
		Where("series_id = ?", seriesID).
		Order("start_date ASC").
		Find(&occurrences).Error
	if err != nil {
		return nil, err
	}
	if len(occurrences) == 0 {
		return nil, ErrSeriesNotFound
	}
	return occurrences, nil
}

func (r *repository) UpdateOccurrence(ctx context.Context, occurrence *TripOccurrence) error {
	return r.db.WithContext(ctx).Save(occurrence).Error
}

func (r *repository) UpdateSeriesFields(ctx context.Context, seriesID uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&TripOccurrence{}).
		Where("series_id = ?", seriesID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSeriesNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, query TripListQuery) ([]TripOccurrence, int64, error) {
	db := r.db.WithContext(ctx).Model(&TripOccurrence{})

	if query.Search != "" {
		search := "%" + strings.ToLower(query.Search) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", search, search)
	}
	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.DateFrom != "" {
		if from, err := time.Parse("2006-01-02", query.DateFrom); err == nil {
			db = db.Where("start_date >= ?", from)
		}
	}
	if query.DateTo != "" {
		if to, err := time.Parse("2006-01-02", query.DateTo); err == nil {
			db = db.Where("start_date <= ?", to.Add(24*time.Hour))
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = 20
	}

	var occurrences []TripOccurrence
	err := db.Order("start_date ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&occurrences).Error
	if err != nil {
		return nil, 0, err
	}
	return occurrences, total, nil
}
