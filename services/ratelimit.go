package services

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiterManager hands out one token bucket per key. Buckets are created
// lazily and live for the process lifetime.
type RateLimiterManager struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewRateLimiterManager(limit rate.Limit, burst int) *RateLimiterManager {
	return &RateLimiterManager{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (m *RateLimiterManager) Get(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	limiter, ok := m.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(m.limit, m.burst)
		m.limiters[key] = limiter
	}
	return limiter
}

// Allow reports whether the key has budget for one more event.
func (m *RateLimiterManager) Allow(key string) bool {
	return m.Get(key).Allow()
}

// clientIP extracts the caller's address, tolerating missing ports. Behind
// chi's RealIP middleware RemoteAddr already holds the forwarded address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
