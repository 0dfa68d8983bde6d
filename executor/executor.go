// Package executor binds a user consumer instance to one
// (topic, partition, virtual_group_id) and drives its lifecycle callbacks,
// enforcing that at most one job runs through it at a time (spec §3, §4.1).
package executor

import (
	"context"
	"sync"

	"github.com/242617/karacore/consumerapi"
	"github.com/242617/karacore/kafkacore"
)

// Key identifies one Executor slot.
type Key struct {
	TP      kafkacore.TP
	GroupID int
}

// Executor owns a lazily-created user consumer instance and serializes job
// execution through it. It holds no coordinator reference, and the
// coordinator holds none back to it; callers pass whatever coordinator
// state a job needs explicitly.
type Executor struct {
	key     Key
	factory consumerapi.Factory

	mu       sync.Mutex
	consumer consumerapi.Consumer
}

// New creates an Executor for key. The user consumer is not built until the
// first Consume, Idle or Periodic call.
func New(key Key, factory consumerapi.Factory) *Executor {
	return &Executor{key: key, factory: factory}
}

func (e *Executor) ensure() consumerapi.Consumer {
	if e.consumer == nil {
		e.consumer = e.factory()
	}
	return e.consumer
}

// Consume runs OnBeforeConsume → Consume → OnAfterConsume for one job's
// messages, serialized against any other job on this Executor.
func (e *Executor) Consume(ctx context.Context, dc *consumerapi.DeliveryContext, messages []kafkacore.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.ensure()
	c.OnBeforeConsume(ctx, dc, messages)
	err := c.Consume(ctx, dc, messages)
	c.OnAfterConsume(ctx, dc, messages)
	return err
}

// Idle runs OnIdle for an idle job (spec §4.1 step 5: "If messages is
// empty -> one idle job").
func (e *Executor) Idle(ctx context.Context, dc *consumerapi.DeliveryContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensure().OnIdle(ctx, dc)
}

// Periodic runs OnPeriodic for a periodic job.
func (e *Executor) Periodic(ctx context.Context, dc *consumerapi.DeliveryContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensure().OnPeriodic(ctx, dc)
}

// Revoked runs OnRevoked. Only called on an Executor that already has a
// consumer instance (revoked jobs are built "one per existing Executor",
// spec §4.1 step 3), so it does not lazily create one.
func (e *Executor) Revoked(ctx context.Context, dc *consumerapi.DeliveryContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.consumer == nil {
		return
	}
	e.consumer.OnRevoked(ctx, dc)
}

// Shutdown runs OnShutdown, same existing-only rule as Revoked.
func (e *Executor) Shutdown(ctx context.Context, dc *consumerapi.DeliveryContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.consumer == nil {
		return
	}
	e.consumer.OnShutdown(ctx, dc)
}

// Key returns this Executor's (topic-partition, virtual_group_id) key.
func (e *Executor) Key() Key { return e.key }
