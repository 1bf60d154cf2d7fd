package waitlist

import (
	"errors"
	"net/http"

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

func (c *Controller) Join(ctx *gin.Context) {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Authentication required", nil, err.Error())
		return
	}

	var req JoinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	entry, err := c.service.Join(ctx.Request.Context(), userID, req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrAlreadyQueued):
			statusCode = http.StatusConflict
		case errors.Is(err, ErrQueueFull), errors.Is(err, ErrQuantityTooLarge):
			statusCode = http.StatusBadRequest
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to join waitlist", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Joined waitlist successfully", entry, nil)
}

func (c *Controller) Leave(ctx *gin.Context) {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Authentication required", nil, err.Error())
		return
	}

	entryID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid entry ID", nil, err.Error())
		return
	}

	if err := c.service.Leave(ctx.Request.Context(), entryID, userID); err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, ErrEntryNotFound) {
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to leave waitlist", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Left waitlist successfully", nil, nil)
}

func (c *Controller) GetStatus(ctx *gin.Context) {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Authentication required", nil, err.Error())
		return
	}

	occurrenceID, err := uuid.Parse(ctx.Param("occurrenceId"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid occurrence ID", nil, err.Error())
		return
	}

	entry, err := c.service.GetStatus(ctx.Request.Context(), occurrenceID, userID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, ErrEntryNotFound) {
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to get waitlist status", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Waitlist status retrieved successfully", entry, nil)
}
