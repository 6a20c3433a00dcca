// Package ratelimit provides a per-host rate limiter using the token bucket algorithm.
package ratelimit

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter spaces out outbound requests per host.
// Each host gets its own independent bucket.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a host limiter allowing rps requests per second with the given burst.
// rps <= 0 disables limiting.
func New(rps float64, burst int) *HostLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Allow reports whether a request to rawURL may proceed now, consuming a token if so.
func (l *HostLimiter) Allow(rawURL string) bool {
	return l.limiter(Host(rawURL)).Allow()
}

// Wait blocks until a request to rawURL is allowed or ctx is canceled.
func (l *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	return l.limiter(Host(rawURL)).Wait(ctx)
}

// Unlimited reports whether the limiter never blocks.
func (l *HostLimiter) Unlimited() bool {
	return l.limit == rate.Inf
}

func (l *HostLimiter) limiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[host] = limiter
	}
	return limiter
}

// Host returns the lowercase host of rawURL, or rawURL itself when it does not parse.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.ToLower(u.Hostname())
}
