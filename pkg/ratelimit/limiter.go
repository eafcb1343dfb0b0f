// Package ratelimit implements the fixed-window attempt counter used to
// throttle password-reset requests per email address. Windows are fixed, not
// sliding: a key's counter and window reset together once the window elapses.
package ratelimit

import (
	"context"
	"time"
)

const (
	// DefaultMaxAttempts is how many attempts a key gets per window.
	DefaultMaxAttempts = 3
	// DefaultWindow is the fixed window length.
	DefaultWindow = time.Hour
)

// Limiter tracks attempts per key over a fixed window.
type Limiter interface {
	// IsRateLimited reports whether the key has an active window with the
	// attempt budget exhausted.
	IsRateLimited(ctx context.Context, key string) (bool, error)
	// RecordAttempt counts one attempt, opening a fresh window if none is
	// active.
	RecordAttempt(ctx context.Context, key string) error
	// MinutesUntilReset returns ceil(minutes) until the key's window resets,
	// or 0 when no window is active.
	MinutesUntilReset(ctx context.Context, key string) (int, error)
	// ClearAttempts drops the key's entry entirely, so a legitimate reset
	// does not count against the user.
	ClearAttempts(ctx context.Context, key string) error
}

func minutesUntil(resetAt time.Time, now time.Time) int {
	remaining := resetAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	mins := int(remaining / time.Minute)
	if remaining%time.Minute != 0 {
		mins++
	}
	return mins
}
