package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"termomaz/config"
	"termomaz/httputil"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultIdle is how long an address must stay quiet before Cleanup forgets it.
const DefaultIdle = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per remote address.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	idle     time.Duration
	settings func() config.RateLimitConfig
	now      func() time.Time
}

// NewRateLimiter builds a limiter with fixed settings. A rate of zero or less lets every request through.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		idle:     DefaultIdle,
		now:      time.Now,
	}
}

// NewConfiguredRateLimiter follows config.Get().RateLimit, re-reading it on every request.
func NewConfiguredRateLimiter() *RateLimiter {
	c := config.Get().RateLimit
	rl := NewRateLimiter(c.RequestsPerSecond, c.Burst)
	rl.settings = func() config.RateLimitConfig { return config.Get().RateLimit }
	return rl
}

// refresh retunes the limiter and every existing bucket when the settings changed.
// It reports whether limiting is enabled.
func (rl *RateLimiter) refresh() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.settings != nil {
		c := rl.settings()
		burst := c.Burst
		if burst <= 0 {
			burst = 1
		}
		if rate.Limit(c.RequestsPerSecond) != rl.rate || burst != rl.burst {
			rl.rate = rate.Limit(c.RequestsPerSecond)
			rl.burst = burst
			for _, v := range rl.visitors {
				v.limiter.SetLimit(rl.rate)
				v.limiter.SetBurst(rl.burst)
			}
			zap.L().Info("rate limit updated", zap.Float64("rps", c.RequestsPerSecond), zap.Int("burst", burst))
		}
	}
	return rl.rate > 0
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.refresh() {
			next.ServeHTTP(w, r)
			return
		}
		key := clientIP(r)
		if !rl.getLimiter(key).Allow() {
			zap.L().Warn("rate limit exceeded", zap.String("remote", key), zap.String("path", r.URL.Path))
			w.Header().Set("Retry-After", "1")
			httputil.WriteMessage(w, http.StatusTooManyRequests, "Demasiadas solicitudes. Intente nuevamente en unos segundos.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup forgets addresses that have not been seen for the idle period.
// Active addresses keep their buckets, however many there are.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idle)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until stop is closed.
func (rl *RateLimiter) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
