package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiter_BurstThenReject(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }

	for i := range 3 {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d rejected within burst", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("request beyond burst allowed")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other client should have its own bucket")
	}

	rl.now = func() time.Time { return base.Add(time.Second) }
	if !rl.Allow("10.0.0.1") {
		t.Fatal("bucket should refill after one second")
	}
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }

	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.2")
	if got := rl.size(); got != 2 {
		t.Fatalf("visitors = %d, want 2", got)
	}

	rl.now = func() time.Time { return base.Add(11 * time.Minute) }
	rl.Allow("10.0.0.3")
	if got := rl.size(); got != 1 {
		t.Fatalf("visitors after sweep = %d, want 1", got)
	}
}

func TestRateLimit_Returns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := gin.New()
	r.POST("/auth/login", RateLimit(NewRateLimiter(0.001, 1), logger), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 2)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [200 429]", codes)
	}
}
