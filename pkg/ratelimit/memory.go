package ratelimit

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count         int
	windowResetAt time.Time
}

// MemoryLimiter is a process-local fixed-window limiter for single-instance
// deployments and tests. Cleanup bounds memory growth by dropping elapsed
// windows; it is safe to run concurrently with request traffic.
type MemoryLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string]*entry
	now     func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryLimiter{
		max:     max,
		window:  window,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) IsRateLimited(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok || l.now().After(e.windowResetAt) {
		return false, nil
	}
	return e.count >= l.max, nil
}

func (l *MemoryLimiter) RecordAttempt(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	e, ok := l.entries[key]
	if !ok || now.After(e.windowResetAt) {
		l.entries[key] = &entry{count: 1, windowResetAt: now.Add(l.window)}
		return nil
	}
	e.count++
	return nil
}

func (l *MemoryLimiter) MinutesUntilReset(_ context.Context, key string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return 0, nil
	}
	return minutesUntil(e.windowResetAt, l.now()), nil
}

func (l *MemoryLimiter) ClearAttempts(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}

// Cleanup removes entries whose window has elapsed and returns how many were
// removed. Intended to run on an hourly ticker.
func (l *MemoryLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	removed := 0
	for key, e := range l.entries {
		if now.After(e.windowResetAt) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}
