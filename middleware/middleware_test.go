package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"termomaz/config"
	"termomaz/httputil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestIDGeneratesAndEchoes(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httputil.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "caja-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "caja-1", seen)
	assert.Equal(t, "caja-1", rec.Header().Get(RequestIDHeader))
}

func withConfig(t *testing.T, mutate func(*config.Config)) {
	t.Helper()
	prev := config.Get()
	c := config.Default()
	mutate(&c)
	config.Set(c)
	t.Cleanup(func() { config.Set(prev) })
}

func TestBasicAuth(t *testing.T) {
	hash, err := HashPassword("s3creto")
	require.NoError(t, err)
	withConfig(t, func(c *config.Config) {
		c.Auth = config.AuthConfig{AdminUser: "admin", AdminPasswordHash: hash}
	})
	h := BasicAuth(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "reads stay open")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/orders/1", nil)
	req.SetBasicAuth("admin", "s3creto")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBasicAuthFollowsSavedPassword(t *testing.T) {
	withConfig(t, func(c *config.Config) {})
	h := BasicAuth(okHandler)

	post := func(user, password string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
		if user != "" {
			req.SetBasicAuth(user, password)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, post("", ""), "no admin configured")

	oldHash, err := HashPassword("viejo")
	require.NoError(t, err)
	c := config.Get()
	c.Auth = config.AuthConfig{AdminUser: "admin", AdminPasswordHash: oldHash}
	config.Set(c)
	assert.Equal(t, http.StatusUnauthorized, post("", ""))
	assert.Equal(t, http.StatusOK, post("admin", "viejo"))

	newHash, err := HashPassword("nuevo")
	require.NoError(t, err)
	c.Auth.AdminPasswordHash = newHash
	config.Set(c)
	assert.Equal(t, http.StatusUnauthorized, post("admin", "viejo"))
	assert.Equal(t, http.StatusOK, post("admin", "nuevo"))
}

func callFrom(h http.Handler, addr string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiterPerAddress(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	h := rl.Handler(okHandler)

	assert.Equal(t, http.StatusOK, callFrom(h, "10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, callFrom(h, "10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, callFrom(h, "10.0.0.1:5002"))
	assert.Equal(t, http.StatusOK, callFrom(h, "10.0.0.2:5000"))
}

func TestConfiguredRateLimiterFollowsConfig(t *testing.T) {
	withConfig(t, func(c *config.Config) {
		c.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	})
	rl := NewConfiguredRateLimiter()
	h := rl.Handler(okHandler)

	assert.Equal(t, http.StatusOK, callFrom(h, "10.0.0.1:1"))
	assert.Equal(t, http.StatusTooManyRequests, callFrom(h, "10.0.0.1:2"))

	c := config.Get()
	c.RateLimit.RequestsPerSecond = 0
	config.Set(c)
	assert.Equal(t, http.StatusOK, callFrom(h, "10.0.0.1:3"), "limiting switched off")

	c.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 3}
	config.Set(c)
	assert.Equal(t, http.StatusOK, callFrom(h, "10.0.0.9:1"))
	assert.Equal(t, http.StatusOK, callFrom(h, "10.0.0.9:2"))
	assert.Equal(t, http.StatusOK, callFrom(h, "10.0.0.9:3"))
	assert.Equal(t, http.StatusTooManyRequests, callFrom(h, "10.0.0.9:4"))
}

func TestRateLimiterCleanupKeepsActiveAddresses(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(0.001, 1)
	rl.now = func() time.Time { return now }
	h := rl.Handler(okHandler)

	assert.Equal(t, http.StatusOK, callFrom(h, "10.0.0.1:1"))
	assert.Equal(t, http.StatusTooManyRequests, callFrom(h, "10.0.0.1:2"))

	now = now.Add(DefaultIdle - time.Minute)
	for i := 0; i < 50; i++ {
		callFrom(h, fmt.Sprintf("192.168.1.%d:80", i))
	}
	assert.Equal(t, http.StatusTooManyRequests, callFrom(h, "10.0.0.1:3"))
	now = now.Add(2 * time.Minute)
	rl.Cleanup()

	assert.Len(t, rl.visitors, 51, "the flooding addresses are still fresh")
	assert.Equal(t, http.StatusTooManyRequests, callFrom(h, "10.0.0.1:4"), "an over-limit client keeps its bucket")

	now = now.Add(DefaultIdle + time.Second)
	rl.Cleanup()
	assert.Empty(t, rl.visitors)
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggingKeepsStatus(t *testing.T) {
	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteMessage(w, http.StatusTeapot, "té")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
