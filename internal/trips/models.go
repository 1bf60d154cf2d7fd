package trips

import (
	"time"

	"github.com/google/uuid"
)

// TripOccurrence is one dated, independently bookable instance of a
// trip. Occurrences created together share a series id and their
// shared fields (name, description, image, price); dates, capacity and
// status always stay per-occurrence.
type TripOccurrence struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	SeriesID    *uuid.UUID `json:"series_id" gorm:"type:uuid;index"`
	Name        string     `json:"name" gorm:"not null;size:255"`
	Description string     `json:"description" gorm:"type:text"`
	ImageURL    string     `json:"image_url" gorm:"size:500"`
	Price       float64    `json:"price" gorm:"not null;check:price >= 0"`
	StartDate   time.Time  `json:"start_date" gorm:"not null;index"`
	EndDate     time.Time  `json:"end_date" gorm:"not null"`
	Capacity    int        `json:"capacity" gorm:"not null;check:capacity >= 0"`
	Status      TripStatus `json:"status" gorm:"type:varchar(20);default:'draft'"`

	CreatedBy uuid.UUID  `json:"created_by" gorm:"type:uuid;not null"`
	UpdatedBy *uuid.UUID `json:"updated_by" gorm:"type:uuid"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (TripOccurrence) TableName() string {
	return "trip_occurrences"
}

type TripOccurrenceResponse struct {
	ID          string     `json:"id"`
	SeriesID    *string    `json:"series_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	Price       float64    `json:"price"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	Capacity    int        `json:"capacity"`
	Status      TripStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (o *TripOccurrence) ToResponse() TripOccurrenceResponse {
	var seriesID *string
	if o.SeriesID != nil {
		s := o.SeriesID.String()
		seriesID = &s
	}

	return TripOccurrenceResponse{
		ID:          o.ID.String(),
		SeriesID:    seriesID,
		Name:        o.Name,
		Description: o.Description,
		ImageURL:    o.ImageURL,
		Price:       o.Price,
		StartDate:   o.StartDate,
		EndDate:     o.EndDate,
		Capacity:    o.Capacity,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

// OccurrenceDate is one requested date range when materializing a series
type OccurrenceDate struct {
	StartDate time.Time `json:"start_date" binding:"required,future_date"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

type CreateSeriesRequest struct {
	Name        string           `json:"name" binding:"required,min=3,max=255"`
	Description string           `json:"description" binding:"max=2000"`
	ImageURL    string           `json:"image_url" binding:"omitempty,url"`
	Price       float64          `json:"price" binding:"required,min=0"`
	Capacity    int              `json:"capacity" binding:"required,min=1,max=100000"`
	Dates       []OccurrenceDate `json:"dates"`
}

type SeriesResponse struct {
	SeriesID    string                   `json:"series_id"`
	Occurrences []TripOccurrenceResponse `json:"occurrences"`
}

// BulkEditRequest carries shared-field changes for a whole series.
// Date and capacity fields are accepted by the binding so the service
// can reject them explicitly rather than silently dropping them.
type BulkEditRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=3,max=255"`
	Description *string  `json:"description" binding:"omitempty,max=2000"`
	ImageURL    *string  `json:"image_url" binding:"omitempty,url"`
	Price       *float64 `json:"price" binding:"omitempty,min=0"`

	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Capacity  *int       `json:"capacity"`
	Status    *string    `json:"status"`
}

type EditOccurrenceRequest struct {
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Capacity  *int       `json:"capacity" binding:"omitempty,min=0,max=100000"`
	Status    *string    `json:"status" binding:"omitempty,oneof=draft published retired"`
}

type TripListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
	Status   string `form:"status" binding:"omitempty,oneof=draft published retired"`
}

type PaginatedTrips struct {
	Trips      []TripOccurrenceResponse `json:"trips"`
	TotalCount int64                    `json:"total_count"`
	Page       int                      `json:"page"`
	Limit      int                      `json:"limit"`
	TotalPages int                      `json:"total_pages"`
}
