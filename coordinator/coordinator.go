// Package coordinator tracks outstanding virtual-partition jobs for one
// topic-partition's batch and fires an on_finished callback exactly once
// when the last job completes (spec §3, §4.2).
package coordinator

import (
	"sync"

	"github.com/google/uuid"

	"github.com/242617/karacore/kafkacore"
	"github.com/242617/karacore/pausetracker"
)

// Result is what a worker reports back after running one job, aggregated
// from that job's consumerapi.DeliveryContext.
type Result struct {
	OK            bool
	AnyMarked     bool // user explicitly called mark_as_consumed at least once
	RetryOverride bool // user explicitly called retry_after_pause regardless of OK
}

// FinishedFunc is invoked synchronously, on the decrementing thread, with
// the last group message of the finished batch, once outstanding_jobs
// reaches zero.
type FinishedFunc func(last kafkacore.Message)

// Coordinator is the per-topic-partition, per-assignment-generation state
// object described in spec §3/§4.2. The zero value is not usable; build one
// with New.
type Coordinator struct {
	tp kafkacore.TP

	pauseTracker *pausetracker.Tracker

	mu               sync.Mutex
	generation       uuid.UUID // bumped on every Start, guards against stale late decrements
	outstanding      int
	success          bool
	revoked          bool
	manualPause      bool
	seekOffset       int64
	anyMarked        bool
	forceRetry       bool
	lastGroupMessage map[int]kafkacore.Message // group_id -> last message in that group's sub-batch
	batch            []kafkacore.Message       // full ordered batch for this TP this cycle, for Strategy lookups
	callbacks        []FinishedFunc
}

// New creates a Coordinator for tp, backed by its own PauseTracker.
func New(tp kafkacore.TP, pt *pausetracker.Tracker) *Coordinator {
	return &Coordinator{tp: tp, pauseTracker: pt, success: true}
}

// OnFinished registers a callback to run once per Start→drain cycle, when
// outstanding reaches zero. Must be called before the first Increment
// (spec §4.2: "installed by the Strategy before the first increment").
func (c *Coordinator) OnFinished(f FinishedFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, f)
}

// Start resets the coordinator for a new batch: success=true,
// outstanding=0, and bumps the generation token so any callback from a
// in-flight job of the previous generation (e.g. after a restart) is
// ignored by Decrement. batch is the TP's full ordered message set for
// this cycle, retained for Strategy's post-consume lookups (skippable
// message, filtering cursor).
func (c *Coordinator) Start(batch []kafkacore.Message) uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation = uuid.New()
	c.outstanding = 0
	c.success = true
	c.anyMarked = false
	c.forceRetry = false
	c.lastGroupMessage = map[int]kafkacore.Message{}
	c.batch = batch
	return c.generation
}

// Batch returns the full ordered message set this Coordinator was started
// with, used by Strategy to locate the skippable/filtered message without
// re-deriving it from individual job sub-batches.
func (c *Coordinator) Batch() []kafkacore.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batch
}

// TrackGroupTail records the highest-offset message of a virtual-partition
// group's sub-batch, used as the "last group message" for that group_id
// once its jobs finish.
func (c *Coordinator) TrackGroupTail(groupID int, last kafkacore.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastGroupMessage[groupID] = last
}

// Increment must be called from the Listener, once per scheduled job,
// before the job is handed to the Scheduler.
func (c *Coordinator) Increment() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outstanding++
}

// Decrement records one job's result. When outstanding reaches zero it
// synchronously runs every registered on_finished callback with the
// overall batch's last group message (the highest-offset message across
// all tracked groups), on the calling (decrementing) thread.
func (c *Coordinator) Decrement(generation uuid.UUID, groupID int, result Result) {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return // stale decrement from a previous generation; drop it
	}

	c.outstanding--
	c.success = c.success && result.OK
	c.anyMarked = c.anyMarked || result.AnyMarked
	c.forceRetry = c.forceRetry || result.RetryOverride

	if c.outstanding > 0 {
		c.mu.Unlock()
		return
	}

	last := c.batchTail()
	callbacks := c.callbacks
	c.mu.Unlock()

	for _, cb := range callbacks {
		cb(last)
	}
}

// batchTail returns the highest-offset message across all tracked virtual
// groups. Caller must hold c.mu.
func (c *Coordinator) batchTail() kafkacore.Message {
	var tail kafkacore.Message
	first := true
	for _, m := range c.lastGroupMessage {
		if first || m.Offset > tail.Offset {
			tail = m
			first = false
		}
	}
	return tail
}

// Success reports the AND of every job's result since the last Start.
func (c *Coordinator) Success() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.success
}

// NeedsRetry reports whether Strategy should take the retry-or-DLQ path:
// either a job failed, or user code explicitly called retry_after_pause
// regardless of outcome.
func (c *Coordinator) NeedsRetry() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.success || c.forceRetry
}

// AnyMarked reports whether any job explicitly called mark_as_consumed
// this batch, used by the manual-offset-management commit-skip rule.
func (c *Coordinator) AnyMarked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.anyMarked
}

// Outstanding reports the current outstanding job count.
func (c *Coordinator) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outstanding
}

// Generation returns the current generation token, to be passed back to
// Decrement by jobs scheduled under it.
func (c *Coordinator) Generation() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// TP returns the topic-partition this Coordinator tracks.
func (c *Coordinator) TP() kafkacore.TP { return c.tp }

// PauseTracker exposes the backoff tracker, accessed by Strategy only
// (spec §4.2).
func (c *Coordinator) PauseTracker() *pausetracker.Tracker { return c.pauseTracker }

// SetRevoked marks this topic-partition as revoked; Strategy's
// handle_after_consume checks this first and returns without side effects.
func (c *Coordinator) SetRevoked(revoked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked = revoked
}

// Revoked reports whether this topic-partition has been revoked.
func (c *Coordinator) Revoked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revoked
}

// SetManualPause sets the manual-pause flag, mirrored onto the PauseTracker.
func (c *Coordinator) SetManualPause(manual bool) {
	c.mu.Lock()
	c.manualPause = manual
	c.mu.Unlock()
	c.pauseTracker.SetManualPause(manual)
}

// ManualPause reports the manual-pause flag.
func (c *Coordinator) ManualPause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manualPause
}

// SetSeekOffset records the offset Strategy should seek back to on retry or
// skip.
func (c *Coordinator) SetSeekOffset(offset int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seekOffset = offset
}

// SeekOffset returns the last-recorded seek offset.
func (c *Coordinator) SeekOffset() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekOffset
}
