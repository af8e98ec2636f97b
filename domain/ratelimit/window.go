// Package ratelimit implements a fixed-window request limiter with a burst
// allowance. Check is pure; callers own the state.
package ratelimit

import "time"

// Window is one client's position in the current window.
type Window struct {
	Count     int       // Requests admitted in the window
	BurstUsed int       // Burst tokens spent in the window
	End       time.Time // Zero before the first request
}

// Config describes a limit. A zero Limit disables limiting.
type Config struct {
	Limit  int           // Requests per window
	Period time.Duration // Window length
	Burst  int           // Extra requests admitted once Limit is reached
}

// Enabled reports whether the config limits anything.
func (c Config) Enabled() bool {
	return c.Limit > 0 && c.Period > 0
}

// Decision is the outcome of a Check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long a denied client should wait, rounded up to whole
// seconds for the Retry-After header.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || !d.ResetAt.After(now) {
		return 0
	}
	return (d.ResetAt.Sub(now) + time.Second - 1).Truncate(time.Second)
}

// Check admits or denies one request at now and returns the window to keep.
// Windows align to multiples of Period so every client resets together.
func Check(w Window, cfg Config, now time.Time) (Decision, Window) {
	if w.End.IsZero() || !now.Before(w.End) {
		w = Window{End: now.Truncate(cfg.Period).Add(cfg.Period)}
	}

	if w.Count < cfg.Limit {
		w.Count++
		return Decision{Allowed: true, Remaining: cfg.Limit - w.Count, ResetAt: w.End}, w
	}
	if w.BurstUsed < cfg.Burst {
		w.Count++
		w.BurstUsed++
		return Decision{Allowed: true, ResetAt: w.End}, w
	}
	return Decision{ResetAt: w.End}, w
}
