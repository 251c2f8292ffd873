package httpkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"lead_router_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHandleErrorUsesKindThroughWrapping(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	err := fmt.Errorf("assign: %w", apperr.CapacityExceeded("partner is full"))
	if !HandleError(c, err) {
		t.Fatalf("expected error to be handled")
	}
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "capacity_exceeded" {
		t.Fatalf("expected capacity_exceeded code, got %q", body.Code)
	}
}

func TestHandleErrorHidesUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleError(c, errors.New("pq: connection refused"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Error != "internal error" {
		t.Fatalf("untyped error leaked: %q", body.Error)
	}
}

func TestActorDefaultsToAdmin(t *testing.T) {
	engine := gin.New()
	engine.Use(Actor())
	engine.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetActor(c)) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Body.String() != DefaultActor {
		t.Fatalf("expected default actor, got %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderActor, "dispatcher-7")
	engine.ServeHTTP(w, req)
	if w.Body.String() != "dispatcher-7" {
		t.Fatalf("expected header actor, got %q", w.Body.String())
	}
}

func TestRateLimitRejectsBurstOverflow(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(0.001), 1, nil)
	engine := gin.New()
	engine.Use(limiter.RateLimit())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	engine.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	second := httptest.NewRecorder()
	engine.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 200 then 429, got %d then %d", first.Code, second.Code)
	}
}
