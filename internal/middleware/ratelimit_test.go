package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func newLimiter(t *testing.T, scope string, maxReqs, windowSec int) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client, scope, maxReqs, windowSec), mr
}

func hit(h http.Handler, remoteAddr string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterWindow(t *testing.T) {
	rl, _ := newLimiter(t, "login", 3, 60)
	h := rl.Middleware(okHandler)

	for i := range 3 {
		rec := hit(h, "10.0.0.1:12345", nil)
		require.Equalf(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := hit(h, "10.0.0.1:12345", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too many requests"}`, rec.Body.String())

	t.Run("other IPs keep their own budget", func(t *testing.T) {
		rec := hit(h, "10.0.0.2:12345", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRateLimiterScopes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	login := NewRateLimiter(client, "login", 1, 60)
	cleanup := NewRateLimiter(client, "cleanup", 1, 60)

	rec := hit(login.Middleware(okHandler), "9.9.9.9:1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = hit(login.Middleware(okHandler), "9.9.9.9:1", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// The same IP still has budget in the other scope.
	rec = hit(cleanup.Middleware(okHandler), "9.9.9.9:1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterProxyHeaders(t *testing.T) {
	rl, _ := newLimiter(t, "login", 1, 60)
	h := rl.Middleware(okHandler)

	// Same proxy address, different forwarded clients: both pass.
	rec := hit(h, "127.0.0.1:9000", map[string]string{"X-Forwarded-For": "198.51.100.10, 127.0.0.1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = hit(h, "127.0.0.1:9000", map[string]string{"X-Forwarded-For": "198.51.100.11, 127.0.0.1"})
	require.Equal(t, http.StatusOK, rec.Code)

	// The first forwarded client's budget is spent.
	rec = hit(h, "127.0.0.1:9000", map[string]string{"X-Forwarded-For": "198.51.100.10, 127.0.0.1"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiterFailsOpen(t *testing.T) {
	rl, mr := newLimiter(t, "login", 1, 60)
	mr.Close()

	rec := hit(rl.Middleware(okHandler), "3.3.3.3:1", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "redis outage must not lock operators out")
}
