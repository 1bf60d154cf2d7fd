package checkout

import (
	"voyago/internal/shared/config"
	"voyago/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupCheckoutRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {

	checkout := rg.Group("/checkout")
	checkout.Use(middleware.JWTAuth(cfg))
	{
		checkout.POST("", controller.StartCheckout) // POST /api/v1/checkout
		checkout.GET("/:id", controller.GetSession) // GET /api/v1/checkout/:id
		checkout.DELETE("/:id", controller.Cancel)  // DELETE /api/v1/checkout/:id
	}

	// The gateway redirects the buyer's browser here after approval; no
	// bearer token travels with that redirect.
	returns := rg.Group("/checkout")
	{
		returns.GET("/:id/return", controller.HandleApprovalReturn) // GET /api/v1/checkout/:id/return
	}
}
