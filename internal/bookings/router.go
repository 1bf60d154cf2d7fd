package bookings

import (
	"voyago/internal/shared/config"
	"voyago/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {

	bookings := rg.Group("/bookings")
	bookings.Use(middleware.JWTAuth(cfg))
	{
		bookings.GET("", controller.GetMyBookings)      // GET /api/v1/bookings
		bookings.GET("/:id", controller.GetBooking)     // GET /api/v1/bookings/:id
		bookings.POST("/:id/refund", controller.Refund) // POST /api/v1/bookings/:id/refund
	}
}
