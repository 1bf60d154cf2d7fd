package routes

import (
	"context"
	"net/http"
	"time"

	"voyago/internal/availability"
	"voyago/internal/bookings"
	"voyago/internal/checkout"
	"voyago/internal/notifications"
	"voyago/internal/payments"
	"voyago/internal/shared/config"
	"voyago/internal/shared/database"
	"voyago/internal/trips"
	"voyago/internal/waitlist"
	"voyago/pkg/cache"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router holds all route dependencies
type Router struct {
	config *config.Config
	db     *database.DB

	ledger          availability.Ledger
	tripService     trips.Service
	bookingService  bookings.Service
	checkoutService checkout.Service
	waitlistService waitlist.Service

	availabilitySweeper *availability.JobProcessor
	checkoutExpirer     *checkout.JobProcessor
	waitlistExpirer     *waitlist.JobProcessor
}

// NewRouter builds the full service graph. The notification producer
// is constructed by the caller because its transport (Kafka or direct
// delivery) is an environment decision, not a routing one.
func NewRouter(cfg *config.Config, db *database.DB, producer notifications.Producer, directory notifications.Directory) *Router {
	r := &Router{config: cfg, db: db}
	r.wireServices(producer, directory)
	return r
}

func (r *Router) wireServices(producer notifications.Producer, directory notifications.Directory) {
	gormDB := r.db.GetPostgreSQL()
	cacheSvc := cache.NewService(r.db.GetRedisClient())

	// Availability first: everything else books against the ledger
	availabilityRepo := availability.NewRepository(gormDB)
	r.ledger = availability.NewLedger(availabilityRepo, cacheSvc, r.config.Checkout.HoldTTL, r.config.Redis.SnapshotTTL)

	tripRepo := trips.NewRepository(gormDB)
	r.tripService = trips.NewService(tripRepo, r.ledger)

	bookingRepo := bookings.NewRepository(gormDB)
	r.bookingService = bookings.NewService(bookingRepo, r.ledger)

	gateway := payments.NewClient(r.config.Gateway)
	checkoutRepo := checkout.NewRepository(gormDB)
	r.checkoutService = checkout.NewService(checkoutRepo, r.ledger, gateway, r.bookingService, r.tripService, r.config)

	waitlistRepo := waitlist.NewRepository(gormDB)
	r.waitlistService = waitlist.NewService(waitlistRepo, r.ledger, r.config.Waitlist)

	// Freed capacity flows back to the waitlist
	r.ledger.SetPromoter(r.waitlistService)

	notificationService := notifications.NewService(producer, r.tripService, directory)
	r.bookingService.SetNotifier(notificationService)
	r.waitlistService.SetNotifier(notificationService)

	r.availabilitySweeper = availability.NewJobProcessor(r.ledger, r.config.Checkout.SweepInterval)
	r.checkoutExpirer = checkout.NewJobProcessor(r.checkoutService, r.config.Checkout.ExpiryInterval)
	r.waitlistExpirer = waitlist.NewJobProcessor(r.waitlistService, r.config.Waitlist.ExpiryInterval)
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	trips.RegisterValidations()

	r.setupHealthRoutes(engine)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := engine.Group(r.config.GetAPIBasePath())
	{
		availability.SetupAvailabilityRoutes(api, availability.NewController(r.ledger))
		trips.SetupTripRoutes(api, trips.NewController(r.tripService), r.config)
		checkout.SetupCheckoutRoutes(api, checkout.NewController(r.checkoutService), r.config)
		bookings.SetupBookingRoutes(api, bookings.NewController(r.bookingService), r.config)
		waitlist.SetupWaitlistRoutes(api, waitlist.NewController(r.waitlistService), r.config)
	}
}

// StartJobs starts the background processors: the expired-hold sweep,
// stale checkout session expiry and waitlist accept-window expiry.
func (r *Router) StartJobs(ctx context.Context) {
	r.availabilitySweeper.Start(ctx)
	r.checkoutExpirer.Start(ctx)
	r.waitlistExpirer.Start(ctx)
}

// StopJobs stops the background processors
func (r *Router) StopJobs() {
	r.availabilitySweeper.Stop()
	r.checkoutExpirer.Stop()
	r.waitlistExpirer.Stop()
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "voyago-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "voyago-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}
