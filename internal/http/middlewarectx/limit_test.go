package middlewarectx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newNoopLoggerLimit() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("success")); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	})
}

func requestFrom(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = ip + ":40000"
	return req
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("blocks requests exceeding burst", func(t *testing.T) {
		h := RateLimitMiddleware(newNoopLoggerLimit(), NewIPLimiter(1, 2))(okHandler(t))

		for range 2 {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, requestFrom("10.0.0.1"))
			assert.Equal(t, http.StatusOK, w.Code)
		}

		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestFrom("10.0.0.1"))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"RATE_LIMITED"`)
	})

	t.Run("limits are per ip", func(t *testing.T) {
		h := RateLimitMiddleware(newNoopLoggerLimit(), NewIPLimiter(1, 1))(okHandler(t))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestFrom("10.0.0.1"))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		h.ServeHTTP(w, requestFrom("10.0.0.1"))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		w = httptest.NewRecorder()
		h.ServeHTTP(w, requestFrom("10.0.0.2"))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestIPLimiter_RefillAndSweep(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPLimiter(1, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"), "token is refilled after a second")

	now = now.Add(visitorTTL + sweepInterval + time.Second)
	assert.True(t, l.Allow("b"))
	l.mu.Lock()
	_, stale := l.visitors["a"]
	l.mu.Unlock()
	assert.False(t, stale, "idle visitors are swept")
}
