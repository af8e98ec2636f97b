package http

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/artpar/calloutlint/domain/ratelimit"
	"github.com/artpar/calloutlint/pkg/jsonapi"
	"github.com/artpar/calloutlint/ports"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RateLimiter tracks one window per client address.
type RateLimiter struct {
	cfg   ratelimit.Config
	clock ports.Clock

	mu      sync.Mutex
	windows map[string]ratelimit.Window
}

// NewRateLimiter creates a limiter for cfg.
func NewRateLimiter(cfg ratelimit.Config, clock ports.Clock) *RateLimiter {
	return &RateLimiter{cfg: cfg, clock: clock, windows: make(map[string]ratelimit.Window)}
}

// Allow records a request from client and returns the decision.
func (l *RateLimiter) Allow(client string) (ratelimit.Decision, time.Time) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Expired windows are dropped on the way so idle clients do not pile up.
	if len(l.windows) > 1024 {
		for k, w := range l.windows {
			if !now.Before(w.End) {
				delete(l.windows, k)
			}
		}
	}

	d, w := ratelimit.Check(l.windows[client], l.cfg, now)
	l.windows[client] = w
	return d, now
}

// Middleware rejects clients over the limit with 429.
func (l *RateLimiter) Middleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddr(r)
			d, now := l.Allow(client)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				logger.Warn().
					Str("client", client).
					Str("path", r.URL.Path).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter(now)/time.Second)))
				jsonapi.WriteError(w, jsonapi.ErrTooManyRequests(""))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr is the request's remote host, without port.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
