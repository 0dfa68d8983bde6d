// Package executorsbuffer is the indexed store of Executors keyed by
// (topic, partition, virtual_group_id), with revoke/clear lifecycle
// operations (spec §2).
package executorsbuffer

import (
	"sync"

	"github.com/242617/karacore/consumerapi"
	"github.com/242617/karacore/executor"
	"github.com/242617/karacore/kafkacore"
)

// FactoryFor resolves the consumer factory to use for a newly-created
// Executor's key, letting one Buffer span several topics with distinct
// user consumers.
type FactoryFor func(executor.Key) consumerapi.Factory

// Buffer indexes Executors by executor.Key.
type Buffer struct {
	factoryFor FactoryFor

	mu  sync.Mutex
	all map[executor.Key]*executor.Executor
}

// New creates an empty Buffer; factoryFor builds a fresh user consumer for
// each Executor it lazily creates, keyed by topic.
func New(factoryFor FactoryFor) *Buffer {
	return &Buffer{factoryFor: factoryFor, all: map[executor.Key]*executor.Executor{}}
}

// FindOrCreate returns the existing Executor for key, or creates one.
func (b *Buffer) FindOrCreate(key executor.Key) *executor.Executor {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.all[key]; ok {
		return e
	}
	e := executor.New(key, b.factoryFor(key))
	b.all[key] = e
	return e
}

// ForTP returns every Executor currently tracked for tp, across all
// virtual_group_ids, used to build one revoked/shutdown job per Executor
// (spec §4.1 step 3 and Shutdown).
func (b *Buffer) ForTP(tp kafkacore.TP) []*executor.Executor {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []*executor.Executor
	for key, e := range b.all {
		if key.TP == tp {
			out = append(out, e)
		}
	}
	return out
}

// All returns every tracked Executor, used to build shutdown jobs across
// the whole subscription group.
func (b *Buffer) All() []*executor.Executor {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*executor.Executor, 0, len(b.all))
	for _, e := range b.all {
		out = append(out, e)
	}
	return out
}

// Revoke removes every Executor for tp. Must be called after the caller has
// already built revoked jobs for them (spec §4.1 step 3: "jobs first,
// buffer purge second").
func (b *Buffer) Revoke(tp kafkacore.TP) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key := range b.all {
		if key.TP == tp {
			delete(b.all, key)
		}
	}
}

// Clear drops every Executor, discarding stale user-consumer state. Listener
// restart gets the same effect by allocating a fresh Buffer instead of
// calling Clear.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = map[executor.Key]*executor.Executor{}
}
