package trips

import (
	"voyago/internal/shared/config"
	"voyago/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupTripRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {

	// PUBLIC BROWSE

	trips := rg.Group("/trips")
	{
		trips.GET("", controller.ListTrips)         // GET /api/v1/trips
		trips.GET("/:id", controller.GetOccurrence) // GET /api/v1/trips/:id
	}

	series := rg.Group("/series")
	{
		series.GET("/:seriesId", controller.GetSeries) // GET /api/v1/series/:seriesId
	}

	// ADMIN SERIES MANAGEMENT

	adminSeries := rg.Group("/admin/series")
	adminSeries.Use(middleware.JWTAuth(cfg), middleware.RequireAdmin())
	{
		adminSeries.POST("", controller.CreateSeries)      // POST /api/v1/admin/series
		adminSeries.PUT("/:seriesId", controller.BulkEdit) // PUT /api/v1/admin/series/:seriesId
	}

	adminTrips := rg.Group("/admin/trips")
	adminTrips.Use(middleware.JWTAuth(cfg), middleware.RequireAdmin())
	{
		adminTrips.PUT("/:id", controller.EditOccurrence)      // PUT /api/v1/admin/trips/:id
		adminTrips.DELETE("/:id", controller.RetireOccurrence) // DELETE /api/v1/admin/trips/:id
	}
}
