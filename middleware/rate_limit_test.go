package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRateLimiter(client), mr
}

func sendFrom(h http.Handler, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":40000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterBlocksCardSubmissions(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	h := limiter.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < paymentSubmitLimit.Requests; i++ {
		rec := sendFrom(h, http.MethodPost, "/payments/abc", "203.0.113.5")
		require.Equal(t, http.StatusNoContent, rec.Code, "attempt %d", i+1)
		assert.Equal(t, strconv.Itoa(paymentSubmitLimit.Requests-i-1), rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := sendFrom(h, http.MethodPost, "/payments/another-token", "203.0.113.5")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Too many payment attempts")

	// Relay callbacks and other clients keep their own budgets.
	rec = sendFrom(h, http.MethodPost, "/payments/abc/process", "203.0.113.5")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, strconv.Itoa(defaultLimit.Requests), rec.Header().Get("X-RateLimit-Limit"))

	rec = sendFrom(h, http.MethodPost, "/payments/abc", "198.51.100.9")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimiterFailsOpen(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	mr.Close()

	called := false
	h := limiter.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := sendFrom(h, http.MethodPost, "/payments/abc", "203.0.113.5")
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
