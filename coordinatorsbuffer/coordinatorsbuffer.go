// Package coordinatorsbuffer is a lookup of per-partition Coordinators
// whose lifecycle is reset on rebalance (spec §2).
package coordinatorsbuffer

import (
	"sync"

	"github.com/242617/karacore/coordinator"
	"github.com/242617/karacore/kafkacore"
	"github.com/242617/karacore/pausetracker"
)

// Buffer indexes Coordinators by topic-partition.
type Buffer struct {
	backoff pausetracker.BackoffConfig

	mu    sync.Mutex
	byTP  map[kafkacore.TP]*coordinator.Coordinator
}

// New creates an empty Buffer; backoff configures every Coordinator's
// PauseTracker it lazily creates.
func New(backoff pausetracker.BackoffConfig) *Buffer {
	return &Buffer{backoff: backoff, byTP: map[kafkacore.TP]*coordinator.Coordinator{}}
}

// FindOrCreate returns the existing Coordinator for tp, or creates one with
// a fresh PauseTracker.
func (b *Buffer) FindOrCreate(tp kafkacore.TP) *coordinator.Coordinator {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.byTP[tp]; ok {
		return c
	}
	c := coordinator.New(tp, pausetracker.New(b.backoff))
	b.byTP[tp] = c
	return c
}

// FindOrCreateWithInit is FindOrCreate, but calls init exactly once, right
// after construction, on a Coordinator this call creates — used by the
// Listener to install a topic's Strategy before the Coordinator's first
// Increment (spec §4.2: "installed by the Strategy before the first
// increment").
func (b *Buffer) FindOrCreateWithInit(tp kafkacore.TP, init func(*coordinator.Coordinator)) *coordinator.Coordinator {
	b.mu.Lock()
	if c, ok := b.byTP[tp]; ok {
		b.mu.Unlock()
		return c
	}
	c := coordinator.New(tp, pausetracker.New(b.backoff))
	b.byTP[tp] = c
	b.mu.Unlock()

	if init != nil {
		init(c)
	}
	return c
}

// Find returns the Coordinator for tp, or nil if none exists.
func (b *Buffer) Find(tp kafkacore.TP) *coordinator.Coordinator {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.byTP[tp]
}

// Revoke marks tp's Coordinator revoked, if one exists, so in-flight and
// future Strategy calls short-circuit (spec §4.1 step 3: jobs see the
// current executors before the buffer purge, so mark revoked first).
func (b *Buffer) Revoke(tp kafkacore.TP) {
	b.mu.Lock()
	c := b.byTP[tp]
	b.mu.Unlock()
	if c != nil {
		c.SetRevoked(true)
	}
}

// All returns every tracked Coordinator, used by the Listener's periodic
// tick and by resume_paused_partitions.
func (b *Buffer) All() []*coordinator.Coordinator {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*coordinator.Coordinator, 0, len(b.byTP))
	for _, c := range b.byTP {
		out = append(out, c)
	}
	return out
}

// Clear drops every Coordinator. Listener restart gets the same effect by
// allocating a fresh Buffer instead of calling Clear.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byTP = map[kafkacore.TP]*coordinator.Coordinator{}
}
