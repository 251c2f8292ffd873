// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// ActorKey is the context key for the acting operator or system tag
	ActorKey contextKey = "actor"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter creates a logger writing to w. Development uses the text
// handler at debug level, every other environment emits JSON at info level.
func NewWithWriter(env string, w io.Writer) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithContext returns a logger with request_id and actor extracted from ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.With(slog.String("request_id", requestID))
	}

	if actor, ok := ctx.Value(ActorKey).(string); ok && actor != "" {
		newLogger = newLogger.With(slog.String("actor", actor))
	}

	return newLogger
}

// With returns a logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// RoutingDecision logs the outcome of a routing pipeline run for a lead.
func (l *Logger) RoutingDecision(leadID, action string, candidates int, topScore float64) {
	l.Info("routing_decision",
		slog.String("lead_id", leadID),
		slog.String("action", action),
		slog.Int("candidates", candidates),
		slog.Float64("top_score", topScore),
	)
}

// AssignmentCommitted logs a successful assignment commit.
func (l *Logger) AssignmentCommitted(leadID, partnerID, mode, actor string, score float64) {
	l.Info("assignment_committed",
		slog.String("lead_id", leadID),
		slog.String("partner_id", partnerID),
		slog.String("mode", mode),
		slog.String("actor", actor),
		slog.Float64("score", score),
	)
}

// AssignmentRaceLost logs an expected race loss. These are routine under
// load and stay at info level.
func (l *Logger) AssignmentRaceLost(leadID, partnerID, reason string) {
	l.Info("assignment_race_lost",
		slog.String("lead_id", leadID),
		slog.String("partner_id", partnerID),
		slog.String("reason", reason),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
