// Package usagetracker records the last time each topic-partition saw
// activity, so the Listener can decide whether a periodic job is due
// (spec §2, §4.1 step 7: "whose UsageTracker is not active").
package usagetracker

import (
	"sync"
	"time"

	"github.com/242617/karacore/kafkacore"
)

// Tracker holds last-activity timestamps per topic-partition.
type Tracker struct {
	mu   sync.Mutex
	seen map[kafkacore.TP]time.Time
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{seen: map[kafkacore.TP]time.Time{}}
}

// Track marks tp as active now.
func (t *Tracker) Track(tp kafkacore.TP) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[tp] = time.Now()
}

// Revoke forgets tp; a revoked partition is never "active" until tracked
// again under a new assignment.
func (t *Tracker) Revoke(tp kafkacore.TP) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seen, tp)
}

// Active reports whether tp has seen activity within window. A tp never
// tracked is not active.
func (t *Tracker) Active(tp kafkacore.TP, window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.seen[tp]
	if !ok {
		return false
	}
	return time.Since(last) < window
}

// Clear resets the tracker. Listener restart allocates a fresh Tracker
// instead of calling Clear.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = map[kafkacore.TP]time.Time{}
}
