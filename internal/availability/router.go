package availability

import (
	"github.com/gin-gonic/gin"
)

func SetupAvailabilityRoutes(rg *gin.RouterGroup, controller *Controller) {

	// PUBLIC AVAILABILITY READS

	availability := rg.Group("/availability")
	{
		availability.GET("/:occurrenceId", controller.GetSnapshot) // GET /api/v1/availability/:occurrenceId
	}
}
