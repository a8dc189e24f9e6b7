// Package ratelimit implements fixed-window request counting.
//
// A window opens on a key's first request and lasts Window; up to Limit
// requests are allowed inside it. Two stores are provided: Memory (per
// process, the default) and Redis (shared by every gateway instance).
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of counting one request.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long the caller should wait before the window resets.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if wait := d.ResetAt.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// Store counts a request for key and reports whether it is within the limit.
type Store interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func decide(count, limit int, resetAt time.Time) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
