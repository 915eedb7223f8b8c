// Package ratelimit provides per-identifier sliding window rate
// limiting for wake submissions.
package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow allows at most limit submissions per identifier
// within a sliding window. It is safe for concurrent use; the only
// synchronization is one short critical section per call.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

// New creates a limiter allowing limit submissions per window.
func New(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// NewWithClock creates a limiter with a custom clock (for testing).
func NewWithClock(limit int, window time.Duration, now func() time.Time) *SlidingWindow {
	l := New(limit, window)
	l.now = now
	return l
}

// Allow records a submission for identifier and reports whether it is
// within the limit. Hits older than the window are discarded.
func (l *SlidingWindow) Allow(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.hits[identifier][:0]
	for _, hit := range l.hits[identifier] {
		if hit.After(cutoff) {
			recent = append(recent, hit)
		}
	}

	if len(recent) >= l.limit {
		l.hits[identifier] = recent
		return false
	}

	l.hits[identifier] = append(recent, now)
	return true
}
