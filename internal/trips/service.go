package trips

import (
	"context"
	"fmt"
	"math"

	"voyago/pkg/logger"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Service interface {
	CreateSeries(ctx context.Context, userID uuid.UUID, req CreateSeriesRequest) (*SeriesResponse, error)
	BulkEdit(ctx context.Context, seriesID, userID uuid.UUID, req BulkEditRequest) (*SeriesResponse, error)
	EditOccurrence(ctx context.Context, occurrenceID, userID uuid.UUID, req EditOccurrenceRequest) (*TripOccurrenceResponse, error)
	RetireOccurrence(ctx context.Context, occurrenceID, userID uuid.UUID) error
	GetOccurrence(ctx context.Context, occurrenceID uuid.UUID) (*TripOccurrenceResponse, error)
	GetSeries(ctx context.Context, seriesID uuid.UUID) (*SeriesResponse, error)
	ListTrips(ctx context.Context, query TripListQuery) (*PaginatedTrips, error)
}

// Ledger is the slice of the availability ledger the series manager
// needs. Declared locally to avoid circular dependencies.
type Ledger interface {
	InitOccurrence(ctx context.Context, occurrenceID uuid.UUID, capacity int) error
	SetCapacity(ctx context.Context, occurrenceID uuid.UUID, capacity int) error
}

type service struct {
	repo   Repository
	ledger Ledger
	log    *logger.Logger
}

func NewService(repo Repository, ledger Ledger) Service {
	return &service{
		repo:   repo,
		ledger: ledger,
		log:    logger.GetDefault(),
	}
}

// CreateSeries materializes one occurrence per requested date, all
// sharing a freshly generated series id, and seeds the availability
// ledger with the template capacity for each.
func (s *service) CreateSeries(ctx context.Context, userID uuid.UUID, req CreateSeriesRequest) (*SeriesResponse, error) {
	if len(req.Dates) == 0 {
		return nil, ErrEmptyDateSet
	}
	for _, date := range req.Dates {
		if !date.EndDate.After(date.StartDate) {
			return nil, fmt.Errorf("end date must be after start date")
		}
	}

	seriesID := uuid.New()
	occurrences := make([]TripOccurrence, 0, len(req.Dates))
	for _, date := range req.Dates {
		occurrences = append(occurrences, TripOccurrence{
			ID:          uuid.New(),
			SeriesID:    &seriesID,
			Name:        req.Name,
			Description: req.Description,
			ImageURL:    req.ImageURL,
			Price:       req.Price,
			StartDate:   date.StartDate,
			EndDate:     date.EndDate,
			Capacity:    req.Capacity,
			Status:      StatusDraft,
			CreatedBy:   userID,
		})
	}

	if err := s.repo.CreateOccurrences(ctx, occurrences); err != nil {
		return nil, fmt.Errorf("failed to create series occurrences: %w", err)
	}

	for _, occurrence := range occurrences {
		if err := s.ledger.InitOccurrence(ctx, occurrence.ID, req.Capacity); err != nil {
			return nil, fmt.Errorf("failed to initialize availability for occurrence %s: %w", occurrence.ID, err)
		}
	}

	s.log.LogSeriesCreated(ctx, seriesID.String(), len(occurrences))

	return &SeriesResponse{
		SeriesID: seriesID.String(),
		Occurrences: lo.Map(occurrences, func(o TripOccurrence, _ int) TripOccurrenceResponse {
			return o.ToResponse()
		}),
	}, nil
}

// BulkEdit applies shared-field changes to every occurrence in the
// series atomically. Per-occurrence fields are rejected outright.
func (s *service) BulkEdit(ctx context.Context, seriesID, userID uuid.UUID, req BulkEditRequest) (*SeriesResponse, error) {
	if req.StartDate != nil || req.EndDate != nil || req.Capacity != nil || req.Status != nil {
		return nil, ErrNonSharedFieldInBulkEdit
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if len(updates) == 0 {
		return nil, ErrNoFieldsToUpdate
	}
	updates["updated_by"] = userID

	err := s.repo.Transaction(ctx, func(r Repository) error {
		// Lock the whole series so the write is all-or-nothing and no
		// occurrence can be edited underneath the batch.
		if _, err := r.GetSeriesForUpdate(ctx, seriesID); err != nil {
			return err
		}
		return r.UpdateSeriesFields(ctx, seriesID, updates)
	})
	if err != nil {
		return nil, err
	}

	return s.GetSeries(ctx, seriesID)
}

// EditOccurrence changes the per-occurrence fields. Capacity edits go
// through the ledger first, which rejects any value below the current
// confirmed count.
func (s *service) EditOccurrence(ctx context.Context, occurrenceID, userID uuid.UUID, req EditOccurrenceRequest) (*TripOccurrenceResponse, error) {
	if req.StartDate == nil && req.EndDate == nil && req.Capacity == nil && req.Status == nil {
		return nil, ErrNoFieldsToUpdate
	}

	occurrence, err := s.repo.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}

	if req.Capacity != nil && *req.Capacity != occurrence.Capacity {
		if err := s.ledger.SetCapacity(ctx, occurrenceID, *req.Capacity); err != nil {
			return nil, err
		}
		occurrence.Capacity = *req.Capacity
	}
	if req.StartDate != nil {
		occurrence.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		occurrence.EndDate = *req.EndDate
	}
	if req.Status != nil {
		status := TripStatus(*req.Status)
		if !status.IsValid() {
			return nil, fmt.Errorf("invalid status: %s", *req.Status)
		}
		occurrence.Status = status
	}
	if !occurrence.EndDate.After(occurrence.StartDate) {
		return nil, fmt.Errorf("end date must be after start date")
	}
	occurrence.UpdatedBy = &userID

	if err := s.repo.UpdateOccurrence(ctx, occurrence); err != nil {
		return nil, fmt.Errorf("failed to update occurrence: %w", err)
	}

	resp := occurrence.ToResponse()
	return &resp, nil
}

// RetireOccurrence soft-retires an occurrence. Bookings keep referencing
// it; it just stops being bookable.
func (s *service) RetireOccurrence(ctx context.Context, occurrenceID, userID uuid.UUID) error {
	occurrence, err := s.repo.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return err
	}
	if occurrence.Status == StatusRetired {
		return nil
	}
	occurrence.Status = StatusRetired
	occurrence.UpdatedBy = &userID
	return s.repo.UpdateOccurrence(ctx, occurrence)
}

func (s *service) GetOccurrence(ctx context.Context, occurrenceID uuid.UUID) (*TripOccurrenceResponse, error) {
	occurrence, err := s.repo.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	resp := occurrence.ToResponse()
	return &resp, nil
}

func (s *service) GetSeries(ctx context.Context, seriesID uuid.UUID) (*SeriesResponse, error) {
	occurrences, err := s.repo.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	return &SeriesResponse{
		SeriesID: seriesID.String(),
		Occurrences: lo.Map(occurrences, func(o TripOccurrence, _ int) TripOccurrenceResponse {
			return o.ToResponse()
		}),
	}, nil
}

func (s *service) ListTrips(ctx context.Context, query TripListQuery) (*PaginatedTrips, error) {
	occurrences, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = 20
	}

	return &PaginatedTrips{
		Trips: lo.Map(occurrences, func(o TripOccurrence, _ int) TripOccurrenceResponse {
			return o.ToResponse()
		}),
		TotalCount: total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}
