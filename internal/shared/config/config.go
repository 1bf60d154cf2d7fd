package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// Payment gateway
	Gateway GatewayConfig

	// Checkout lifecycle
	Checkout CheckoutConfig

	// Waitlist promotion
	Waitlist WaitlistConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Kafka
	Kafka KafkaConfig

	// Logging
	LogLevel string

	// Email
	Email EmailConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	// TTL values for cached reads
	SnapshotTTL time.Duration
	CacheTTL    time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// GatewayConfig holds payment gateway credentials and endpoints
type GatewayConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	ReturnURL    string
	CancelURL    string
	Timeout      time.Duration
}

// CheckoutConfig holds checkout/hold lifecycle settings.
// SessionDeadline must stay below HoldTTL so a session never outlives
// the ledger holds backing it.
type CheckoutConfig struct {
	HoldTTL         time.Duration
	SessionDeadline time.Duration
	SweepInterval   time.Duration
	ExpiryInterval  time.Duration
}

// WaitlistConfig holds waitlist promotion settings
type WaitlistConfig struct {
	AcceptWindow       time.Duration
	MaxQuantityPerUser int
	MaxQueueLength     int
	ExpiryInterval     time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled          bool          `json:"enabled"`
	WindowDuration   time.Duration `json:"window_duration"`
	DefaultRequests  int           `json:"default_requests"`
	PublicRequests   int           `json:"public_requests"`
	CheckoutRequests int           `json:"checkout_requests"`
	AdminRequests    int           `json:"admin_requests"`
	HealthRequests   int           `json:"health_requests"`
	WhitelistedIPs   []string      `json:"whitelisted_ips"`
}

// KafkaConfig holds Kafka broker configuration
type KafkaConfig struct {
	Brokers           []string
	NotificationTopic string
	ConsumerGroup     string
	Enabled           bool
}

// EmailConfig holds email configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string

	// Where buyer notifications go while no identity provider is
	// wired up to resolve real addresses
	CatchAllEmail string
	CatchAllName  string
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "voyago_db"),
			User:     getEnv("DB_USER", "voyago_user"),
			Password: getEnv("DB_PASSWORD", "voyago_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),

			SnapshotTTL: getDurationEnv("REDIS_SNAPSHOT_TTL", 30*time.Second),
			CacheTTL:    getDurationEnv("REDIS_CACHE_TTL", 1*time.Hour),
		},

		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
		},

		Gateway: GatewayConfig{
			BaseURL:      getEnv("GATEWAY_BASE_URL", "https://api-m.sandbox.paypal.com"),
			ClientID:     getEnv("GATEWAY_CLIENT_ID", ""),
			ClientSecret: getEnv("GATEWAY_CLIENT_SECRET", ""),
			ReturnURL:    getEnv("GATEWAY_RETURN_URL", "http://localhost:8080/api/v1/checkout/return"),
			CancelURL:    getEnv("GATEWAY_CANCEL_URL", "http://localhost:8080/api/v1/checkout/cancel"),
			Timeout:      getDurationEnv("GATEWAY_TIMEOUT", 30*time.Second),
		},

		Checkout: CheckoutConfig{
			HoldTTL:         getDurationEnv("CHECKOUT_HOLD_TTL", 20*time.Minute),
			SessionDeadline: getDurationEnv("CHECKOUT_SESSION_DEADLINE", 15*time.Minute),
			SweepInterval:   getDurationEnv("CHECKOUT_SWEEP_INTERVAL", 1*time.Minute),
			ExpiryInterval:  getDurationEnv("CHECKOUT_EXPIRY_INTERVAL", 1*time.Minute),
		},

		Waitlist: WaitlistConfig{
			AcceptWindow:       getDurationEnv("WAITLIST_ACCEPT_WINDOW", 30*time.Minute),
			MaxQuantityPerUser: getIntEnv("WAITLIST_MAX_QUANTITY", 10),
			MaxQueueLength:     getIntEnv("WAITLIST_MAX_QUEUE_LENGTH", 1000),
			ExpiryInterval:     getDurationEnv("WAITLIST_EXPIRY_INTERVAL", 1*time.Minute),
		},

		RateLimit: RateLimitConfig{
			Enabled:          getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:   getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:  getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:   getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 100),
			CheckoutRequests: getIntEnv("RATE_LIMIT_CHECKOUT_REQUESTS", 20),
			AdminRequests:    getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			HealthRequests:   getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 300),
			WhitelistedIPs:   getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		Kafka: KafkaConfig{
			Brokers:           getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "notifications"),
			ConsumerGroup:     getEnv("KAFKA_CONSUMER_GROUP", "voyago-notifications"),
			Enabled:           getBoolEnv("KAFKA_ENABLED", true),
		},

		LogLevel: getEnv("LOG_LEVEL", "debug"),

		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getIntEnv("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@voyago.travel"),
			FromName:     getEnv("FROM_NAME", "Voyago"),

			CatchAllEmail: getEnv("NOTIFY_CATCHALL_EMAIL", "bookings@voyago.travel"),
			CatchAllName:  getEnv("NOTIFY_CATCHALL_NAME", "Voyago Bookings"),
		},
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	cfg.Checkout = clampCheckoutDeadline(cfg.Checkout)

	return cfg
}

// clampCheckoutDeadline keeps the session deadline below the hold TTL.
// A session that outlives its holds could capture a payment the ledger
// no longer backs, so a misconfigured deadline is clamped rather than
// trusted.
func clampCheckoutDeadline(c CheckoutConfig) CheckoutConfig {
	if c.HoldTTL <= 0 {
		c.HoldTTL = 20 * time.Minute
	}
	if c.SessionDeadline <= 0 || c.SessionDeadline >= c.HoldTTL {
		clamped := c.HoldTTL * 3 / 4
		log.Printf("CHECKOUT_SESSION_DEADLINE %v must stay below CHECKOUT_HOLD_TTL %v, clamping to %v",
			c.SessionDeadline, c.HoldTTL, clamped)
		c.SessionDeadline = clamped
	}
	return c
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
