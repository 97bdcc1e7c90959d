package realtime

import (
	"sync"
	"time"
)

// Throttler coalesces repeated change signals into at most one emission per
// interval. The debounce is lossy on purpose: the payload is always the full
// current state, so a dropped signal is covered by any later one.
type Throttler struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{
		interval: interval,
		now:      time.Now,
	}
}

// Allow reports whether the caller may emit now, and if so claims the slot.
// The check and the claim happen under one lock so two concurrent callers
// never both emit, nor both skip, for the same slot.
func (t *Throttler) Allow(force bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if !force && !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
