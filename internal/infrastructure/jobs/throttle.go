package jobs

import (
	"sync"
	"time"
)

// Throttle lets an action run at most once per gap. The zero gap always
// allows.
type Throttle struct {
	mu      sync.Mutex
	gap     time.Duration
	lastRun time.Time
}

func NewThrottle(gap time.Duration) *Throttle {
	return &Throttle{gap: gap}
}

// Try records a run at now and reports true, unless the previous run was
// less than gap ago.
func (t *Throttle) Try(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lastRun.IsZero() && now.Sub(t.lastRun) < t.gap {
		return false
	}
	t.lastRun = now
	return true
}

func (t *Throttle) LastRun() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRun
}
