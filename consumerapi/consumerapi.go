// Package consumerapi defines the boundary between the core and the
// pluggable user consumer payload code (spec §6, "User consumer
// (external)"). The core only ever calls through this interface; what a
// consumer does with a batch of messages is out of scope.
package consumerapi

import (
	"context"

	"github.com/242617/karacore/kafkacore"
)

// Consumer is implemented by user payload code and bound to one
// (topic, partition, virtual_group_id) by an Executor. Every method may be
// absent in a given strategy's job mix (e.g. OnPeriodic is only invoked
// when periodics are enabled); implementations that don't care about a
// hook are free to no-op.
type Consumer interface {
	OnBeforeConsume(ctx context.Context, dc *DeliveryContext, messages []kafkacore.Message)
	Consume(ctx context.Context, dc *DeliveryContext, messages []kafkacore.Message) error
	OnAfterConsume(ctx context.Context, dc *DeliveryContext, messages []kafkacore.Message)
	OnIdle(ctx context.Context, dc *DeliveryContext)
	OnPeriodic(ctx context.Context, dc *DeliveryContext)
	OnRevoked(ctx context.Context, dc *DeliveryContext)
	OnShutdown(ctx context.Context, dc *DeliveryContext)
}

// Factory builds a fresh Consumer instance, invoked lazily the first time a
// message arrives for a given (topic, partition, virtual_group_id)
// (spec §3, Executor lifecycle).
type Factory func() Consumer

// DeliveryContext is handed to every Consumer callback so user code can
// influence the post-consume action without reaching into core internals
// directly (spec §6: mark_as_consumed, pause, seek, retry_after_pause).
type DeliveryContext struct {
	marked          map[int64]bool
	pauseRequested  bool
	pauseOffset     int64
	seekRequested   bool
	seekOffset      int64
	retryRequested  bool
}

// NewDeliveryContext returns a fresh, empty DeliveryContext for one job.
func NewDeliveryContext() *DeliveryContext {
	return &DeliveryContext{marked: map[int64]bool{}}
}

// MarkAsConsumed records that the user explicitly checkpointed message.
// Only meaningful for manual_offset_management topics (spec §4.3 step 2).
func (dc *DeliveryContext) MarkAsConsumed(msg kafkacore.Message) {
	dc.marked[msg.Offset] = true
}

// Marked reports whether offset was explicitly marked as consumed.
func (dc *DeliveryContext) Marked(offset int64) bool { return dc.marked[offset] }

// AnyMarked reports whether the user marked at least one message.
func (dc *DeliveryContext) AnyMarked() bool { return len(dc.marked) > 0 }

// Pause requests a pause-and-seek-back to offset.
func (dc *DeliveryContext) Pause(offset int64) {
	dc.pauseRequested = true
	dc.pauseOffset = offset
}

// PauseRequested reports a Pause call and its offset.
func (dc *DeliveryContext) PauseRequested() (int64, bool) { return dc.pauseOffset, dc.pauseRequested }

// Seek requests seeking to offset without pausing.
func (dc *DeliveryContext) Seek(offset int64) {
	dc.seekRequested = true
	dc.seekOffset = offset
}

// SeekRequested reports a Seek call and its offset.
func (dc *DeliveryContext) SeekRequested() (int64, bool) { return dc.seekOffset, dc.seekRequested }

// RetryAfterPause requests the standard retry-with-backoff path regardless
// of whether Consume returned an error.
func (dc *DeliveryContext) RetryAfterPause() { dc.retryRequested = true }

// RetryRequested reports a RetryAfterPause call.
func (dc *DeliveryContext) RetryRequested() bool { return dc.retryRequested }
