package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Text handler for development, JSON for production
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("request_id", requestID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.Int("size", c.Writer.Size()),
	)
}

// Business logic logging methods

// LogSeriesCreated logs when a trip series is materialized
func (l *Logger) LogSeriesCreated(ctx context.Context, seriesID string, occurrences int) {
	l.Logger.InfoContext(ctx,
		"Trip Series Created",
		slog.String("series_id", seriesID),
		slog.Int("occurrences", occurrences),
	)
}

// LogCheckoutStarted logs when a checkout session is opened
func (l *Logger) LogCheckoutStarted(ctx context.Context, sessionID, buyerID string, total float64) {
	l.Logger.InfoContext(ctx,
		"Checkout Started",
		slog.String("session_id", sessionID),
		slog.String("buyer_id", buyerID),
		slog.Float64("total", total),
	)
}

// LogCheckoutSettled logs a successful capture settlement
func (l *Logger) LogCheckoutSettled(ctx context.Context, sessionID, orderID string) {
	l.Logger.InfoContext(ctx,
		"Checkout Settled",
		slog.String("session_id", sessionID),
		slog.String("gateway_order_id", orderID),
	)
}

// LogCaptureFailed logs a gateway capture failure; the buyer was not charged
func (l *Logger) LogCaptureFailed(ctx context.Context, sessionID, orderID string, err error) {
	l.Logger.ErrorContext(ctx,
		"Gateway Capture Failed",
		slog.String("session_id", sessionID),
		slog.String("gateway_order_id", orderID),
		slog.String("error", err.Error()),
	)
}

// LogBookingRefunded logs a post-settlement refund
func (l *Logger) LogBookingRefunded(ctx context.Context, bookingID, occurrenceID string) {
	l.Logger.InfoContext(ctx,
		"Booking Refunded",
		slog.String("booking_id", bookingID),
		slog.String("occurrence_id", occurrenceID),
	)
}

// LogInvariantViolation flags a programming-invariant breach. These are
// never expected in normal operation and always warrant investigation.
func (l *Logger) LogInvariantViolation(ctx context.Context, what string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("invariant", what))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, "Invariant Violation", args...)
}

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.InfoContext(ctx, msg, args...)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
