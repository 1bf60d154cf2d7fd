package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voyago/api/routes"
	"voyago/internal/notifications"
	"voyago/internal/shared/config"
	"voyago/internal/shared/database"
	"voyago/pkg/logger"
	"voyago/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("Failed to connect to storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Rate limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), &ratelimit.Config{
			Enabled:          cfg.RateLimit.Enabled,
			WindowDuration:   cfg.RateLimit.WindowDuration,
			DefaultRequests:  cfg.RateLimit.DefaultRequests,
			PublicRequests:   cfg.RateLimit.PublicRequests,
			CheckoutRequests: cfg.RateLimit.CheckoutRequests,
			AdminRequests:    cfg.RateLimit.AdminRequests,
			HealthRequests:   cfg.RateLimit.HealthRequests,
			WhitelistedIPs:   cfg.RateLimit.WhitelistedIPs,
		})
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Notification delivery: SMTP when configured, log-only otherwise
	var emailSvc notifications.EmailService
	if cfg.Email.SMTPHost != "" {
		smtpSvc, err := notifications.NewSMTPEmailService(cfg.Email)
		if err != nil {
			appLogger.Error("Failed to initialize SMTP email service", slog.Any("error", err))
			os.Exit(1)
		}
		emailSvc = smtpSvc
	} else {
		appLogger.Info("SMTP not configured, email delivery will be logged only")
		emailSvc = notifications.LogEmailService{}
	}
	deliverer := notifications.NewDeliverer(emailSvc)

	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()

	// Producer and consumer: through Kafka when enabled, otherwise
	// deliver synchronously in-process
	var producer notifications.Producer
	var consumer notifications.Consumer
	if cfg.Kafka.Enabled {
		producer, err = notifications.NewKafkaProducer(cfg.Kafka)
		if err != nil {
			appLogger.Error("Failed to initialize Kafka producer", slog.Any("error", err))
			os.Exit(1)
		}

		consumer, err = notifications.NewKafkaConsumer(cfg.Kafka, deliverer)
		if err != nil {
			appLogger.Error("Failed to initialize Kafka consumer", slog.Any("error", err))
			os.Exit(1)
		}
		if err := consumer.StartWorkers(jobCtx, 3); err != nil {
			appLogger.Error("Failed to start notification workers", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := consumer.Stop(); err != nil {
				appLogger.Error("Error stopping notification consumer", slog.Any("error", err))
			}
		}()
	} else {
		appLogger.Info("Kafka disabled, delivering notifications in-process")
		producer = notifications.NewDirectProducer(deliverer)
	}
	defer producer.Close()

	directory := &notifications.CatchAllDirectory{
		Email: cfg.Email.CatchAllEmail,
		Name:  cfg.Email.CatchAllName,
	}

	appRouter := routes.NewRouter(cfg, db, producer, directory)
	engine := setupEngine(cfg, rateLimiter)
	appRouter.SetupRoutes(engine)

	appRouter.StartJobs(jobCtx)
	defer appRouter.StopJobs()

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("version", cfg.APIVersion),
			slog.Bool("kafka", cfg.Kafka.Enabled),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupEngine(cfg *config.Config, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	engine.Use(requestLoggerMiddleware(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
	}

	return engine
}

func requestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
	}
}
