package trips

import (
	"errors"
	"net/http"

	"voyago/internal/availability"
	"voyago/internal/shared/middleware"
	"voyago/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// SERIES MANAGEMENT

func (c *Controller) CreateSeries(ctx *gin.Context) {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Authentication required", nil, err.Error())
		return
	}

	var req CreateSeriesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	series, err := c.service.CreateSeries(ctx.Request.Context(), userID, req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if err == ErrEmptyDateSet {
			statusCode = http.StatusBadRequest
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to create series", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Series created successfully", series, nil)
}

func (c *Controller) BulkEdit(ctx *gin.Context) {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Authentication required", nil, err.Error())
		return
	}

	seriesID, err := uuid.Parse(ctx.Param("seriesId"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid series ID", nil, err.Error())
		return
	}

	var req BulkEditRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	series, err := c.service.BulkEdit(ctx.Request.Context(), seriesID, userID, req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		switch err {
		case ErrNonSharedFieldInBulkEdit, ErrNoFieldsToUpdate:
			statusCode = http.StatusBadRequest
		case ErrSeriesNotFound:
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to edit series", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Series updated successfully", series, nil)
}

func (c *Controller) GetSeries(ctx *gin.Context) {
	seriesID, err := uuid.Parse(ctx.Param("seriesId"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid series ID", nil, err.Error())
		return
	}

	series, err := c.service.GetSeries(ctx.Request.Context(), seriesID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if err == ErrSeriesNotFound {
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to get series", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Series retrieved successfully", series, nil)
}

// OCCURRENCE MANAGEMENT

func (c *Controller) EditOccurrence(ctx *gin.Context) {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Authentication required", nil, err.Error())
		return
	}

	occurrenceID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid occurrence ID", nil, err.Error())
		return
	}

	var req EditOccurrenceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	occurrence, err := c.service.EditOccurrence(ctx.Request.Context(), occurrenceID, userID, req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrOccurrenceNotFound):
			statusCode = http.StatusNotFound
		case errors.Is(err, ErrNoFieldsToUpdate):
			statusCode = http.StatusBadRequest
		case errors.Is(err, availability.ErrCapacityBelowConfirmed):
			statusCode = http.StatusConflict
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to edit occurrence", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Occurrence updated successfully", occurrence, nil)
}

func (c *Controller) RetireOccurrence(ctx *gin.Context) {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Authentication required", nil, err.Error())
		return
	}

	occurrenceID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid occurrence ID", nil, err.Error())
		return
	}

	if err := c.service.RetireOccurrence(ctx.Request.Context(), occurrenceID, userID); err != nil {
		statusCode := http.StatusInternalServerError
		if err == ErrOccurrenceNotFound {
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to retire occurrence", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Occurrence retired successfully", nil, nil)
}

func (c *Controller) GetOccurrence(ctx *gin.Context) {
	occurrenceID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid occurrence ID", nil, err.Error())
		return
	}

	occurrence, err := c.service.GetOccurrence(ctx.Request.Context(), occurrenceID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if err == ErrOccurrenceNotFound {
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to get occurrence", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Occurrence retrieved successfully", occurrence, nil)
}

func (c *Controller) ListTrips(ctx *gin.Context) {
	var query TripListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	trips, err := c.service.ListTrips(ctx.Request.Context(), query)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to list trips", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Trips retrieved successfully", trips, nil)
}
