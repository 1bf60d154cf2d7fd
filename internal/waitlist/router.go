package waitlist

import (
	"voyago/internal/shared/config"
	"voyago/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupWaitlistRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {

	waitlist := rg.Group("/waitlist")
	waitlist.Use(middleware.JWTAuth(cfg))
	{
		waitlist.POST("", controller.Join)                          // POST /api/v1/waitlist
		waitlist.DELETE("/:id", controller.Leave)                   // DELETE /api/v1/waitlist/:id
		waitlist.GET("/status/:occurrenceId", controller.GetStatus) // GET /api/v1/waitlist/status/:occurrenceId
	}
}
