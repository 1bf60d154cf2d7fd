package checkout

import (
	"errors"
	"net/http"

	"voyago/internal/payments"
	"voyago/internal/shared/middleware"
	"voyago/internal/shared/utils/response"
	"voyago/internal/trips"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

func (c *Controller) StartCheckout(ctx *gin.Context) {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Authentication required", nil, err.Error())
		return
	}

	var req StartCheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	session, err := c.service.StartCheckout(ctx.Request.Context(), userID, req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		message := "Failed to start checkout"
		switch {
		case errors.Is(err, ErrInsufficientAvailability):
			statusCode = http.StatusConflict
		case errors.Is(err, ErrOccurrenceNotBookable), errors.Is(err, trips.ErrOccurrenceNotFound):
			statusCode = http.StatusBadRequest
		case errors.Is(err, payments.ErrOrderCreationFailed):
			statusCode = http.StatusBadGateway
			message = "Payment failed, no charge was made"
		}
		response.RespondJSON(ctx, "error", statusCode, message, nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Checkout started successfully", session, nil)
}

// HandleApprovalReturn is the gateway's return redirect target
func (c *Controller) HandleApprovalReturn(ctx *gin.Context) {
	sessionID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid session ID", nil, err.Error())
		return
	}

	session, err := c.service.HandleApprovalReturn(ctx.Request.Context(), sessionID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		message := "Failed to complete checkout"
		switch {
		case errors.Is(err, ErrSessionNotFound):
			statusCode = http.StatusNotFound
		case errors.Is(err, ErrSessionExpired):
			statusCode = http.StatusGone
		case errors.Is(err, ErrInvalidSessionState):
			statusCode = http.StatusConflict
		case errors.Is(err, payments.ErrCaptureFailed):
			statusCode = http.StatusBadGateway
			message = "Payment failed, no charge was made"
		}
		response.RespondJSON(ctx, "error", statusCode, message, nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Checkout settled successfully", session, nil)
}

func (c *Controller) Cancel(ctx *gin.Context) {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Authentication required", nil, err.Error())
		return
	}

	sessionID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid session ID", nil, err.Error())
		return
	}

	session, err := c.service.Cancel(ctx.Request.Context(), sessionID, userID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrSessionNotFound):
			statusCode = http.StatusNotFound
		case errors.Is(err, ErrInvalidSessionState):
			statusCode = http.StatusConflict
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to cancel checkout", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Checkout cancelled successfully", session, nil)
}

func (c *Controller) GetSession(ctx *gin.Context) {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Authentication required", nil, err.Error())
		return
	}

	sessionID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid session ID", nil, err.Error())
		return
	}

	session, err := c.service.GetSession(ctx.Request.Context(), sessionID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, ErrSessionNotFound) {
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to get checkout session", nil, err.Error())
		return
	}
	if session.BuyerID != userID.String() {
		response.RespondJSON(ctx, "error", http.StatusForbidden, "Access denied", nil, "session belongs to another buyer")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Checkout session retrieved successfully", session, nil)
}
