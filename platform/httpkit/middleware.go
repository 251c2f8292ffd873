// Package httpkit provides HTTP middleware infrastructure.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"lead_router_backend/platform/logger"
	"lead_router_backend/platform/sanitize"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// ContextActorKey is the gin context key for the acting operator.
	ContextActorKey = "actor"
	// HeaderActor carries the operator name. Authentication happens upstream.
	HeaderActor = "X-Actor"
	// HeaderRequestID is echoed back on every response.
	HeaderRequestID = "X-Request-ID"

	// DefaultActor is used when no X-Actor header is sent.
	DefaultActor = "admin"
)

// RequestLogger logs HTTP requests with timing.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()

		log.WithContext(c.Request.Context()).HTTPRequest(c.Request.Method, path, status, float64(latency.Milliseconds()), clientIP)
		for _, e := range c.Errors {
			log.WithContext(c.Request.Context()).Error("request failed", "path", path, "error", e.Err)
		}
	}
}

// RequestID assigns a request id (or keeps the caller's) and stores it in
// the request context for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Actor reads the X-Actor header into the gin and request contexts. The
// value ends up on audit records, so it is cleaned first.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := sanitize.Label(c.GetHeader(HeaderActor))
		if actor == "" {
			actor = DefaultActor
		}
		c.Set(ContextActorKey, actor)
		ctx := context.WithValue(c.Request.Context(), logger.ActorKey, actor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetActor returns the actor set by the Actor middleware.
func GetActor(c *gin.Context) string {
	if actor := c.GetString(ContextActorKey); actor != "" {
		return actor
	}
	return DefaultActor
}

// SecurityHeaders adds security headers to responses.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")

		// Only add HSTS in production
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// IPRateLimiter manages per-IP rate limiters.
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// NewIPRateLimiter creates a new IP-based rate limiter.
func NewIPRateLimiter(r rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		rate:  r,
		burst: burst,
		log:   log,
	}
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	limiter, _ := i.limiters.LoadOrStore(ip, rate.NewLimiter(i.rate, i.burst))
	return limiter.(*rate.Limiter)
}

// RateLimit returns a middleware that rate limits by IP.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := i.getLimiter(ip)

		if !limiter.Allow() {
			if i.log != nil {
				i.log.RateLimitExceeded(ip, c.Request.URL.Path)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded",
				Code:  "rate_limited",
			})
			return
		}

		c.Next()
	}
}

// NewWriteRateLimiter limits mutating routing calls (assignments, bulk runs,
// settings changes) to 2 per second per IP with a burst of 20.
func NewWriteRateLimiter(log *logger.Logger) *IPRateLimiter {
	return NewIPRateLimiter(rate.Limit(2), 20, log)
}
