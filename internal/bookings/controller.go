package bookings

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

func (c *Controller) GetMyBookings(ctx *gin.Context) {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Authentication required", nil, err.Error())
		return
	}

	bookings, err := c.service.GetBuyerBookings(ctx.Request.Context(), userID)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to get bookings", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Bookings retrieved successfully", bookings, nil)
}

func (c *Controller) GetBooking(ctx *gin.Context) {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Authentication required", nil, err.Error())
		return
	}

	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid booking ID", nil, err.Error())
		return
	}

	booking, err := c.service.GetBooking(ctx.Request.Context(), bookingID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, ErrBookingNotFound) {
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to get booking", nil, err.Error())
		return
	}

	// Buyers only see their own bookings
	if booking.BuyerID != userID.String() {
		response.RespondJSON(ctx, "error", http.StatusForbidden, "Access denied", nil, "booking belongs to another buyer")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking retrieved successfully", booking, nil)
}

// Refund handles the post-settlement cancellation path
func (c *Controller) Refund(ctx *gin.Context) {
	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Authentication required", nil, err.Error())
		return
	}

	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid booking ID", nil, err.Error())
		return
	}

	booking, err := c.service.GetBooking(ctx.Request.Context(), bookingID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, ErrBookingNotFound) {
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to get booking", nil, err.Error())
		return
	}
	if booking.BuyerID != userID.String() {
		response.RespondJSON(ctx, "error", http.StatusForbidden, "Access denied", nil, "booking belongs to another buyer")
		return
	}

	refunded, err := c.service.Refund(ctx.Request.Context(), bookingID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, ErrInvalidTransition) {
			statusCode = http.StatusConflict
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to refund booking", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking refunded successfully", refunded, nil)
}
