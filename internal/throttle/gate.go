// Package throttle bounds how often classification requests leave the capture pipeline.
package throttle

import (
	"sync"
	"time"
)

// DefaultInterval is the minimum spacing between two admissions (~5 per second).
const DefaultInterval = 200 * time.Millisecond

// Gate admits at most one event per interval. Rejected events are dropped;
// the gate never queues or retries.
type Gate struct {
	interval time.Duration
	mu       sync.Mutex
	last     time.Time
	admitted bool
}

// NewGate creates a Gate with the given interval.
// Values less than or equal to 0 fall back to DefaultInterval.
func NewGate(interval time.Duration) *Gate {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Gate{interval: interval}
}

// Admit reports whether an event at now may pass. On admission now becomes
// the last-admitted timestamp. The first call always admits.
func (g *Gate) Admit(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.admitted && now.Sub(g.last) < g.interval {
		return false
	}
	g.last = now
	g.admitted = true
	return true
}

// Reset forgets the last admission so the next Admit passes.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = time.Time{}
	g.admitted = false
}

// Interval returns the configured interval.
func (g *Gate) Interval() time.Duration {
	return g.interval
}
