// Package pausetracker implements per-topic-partition backoff state: attempt
// count, next-resume time, and the manual-pause flag (spec §3, §4.1 step 1).
package pausetracker

import (
	"sync"
	"time"
)

// BackoffConfig controls how the pause timeout grows per attempt. It
// mirrors the process-level pause.* configuration surface of spec §6.
type BackoffConfig struct {
	Timeout            time.Duration
	MaxTimeout         time.Duration
	WithExponentialBackoff bool
}

func (c BackoffConfig) next(attempt int) time.Duration {
	if !c.WithExponentialBackoff {
		return c.Timeout
	}
	d := c.Timeout
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= c.MaxTimeout {
			return c.MaxTimeout
		}
	}
	if d > c.MaxTimeout {
		return c.MaxTimeout
	}
	return d
}

// Tracker is the PauseTracker for one topic-partition. Safe for concurrent
// use: the Listener reads it every resume_paused_partitions tick while
// Strategy mutates it from a worker thread inside Coordinator.on_finished.
type Tracker struct {
	cfg BackoffConfig

	mu                sync.Mutex
	attempt           int
	currentTimeout    time.Duration
	manualPause       bool
	resumeAt          time.Time
	paused            bool
}

// New creates a Tracker using cfg for backoff growth.
func New(cfg BackoffConfig) *Tracker {
	return &Tracker{cfg: cfg}
}

// Success resets attempt and current timeout to zero, per spec §3 invariant.
func (t *Tracker) Success() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempt = 0
	t.currentTimeout = 0
	t.paused = false
}

// Pause records a failure, computes the next backoff window, and marks the
// partition paused until now+backoff. Returns the computed timeout.
func (t *Tracker) Pause() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	timeout := t.cfg.next(t.attempt)
	t.attempt++
	t.currentTimeout = timeout
	t.paused = true
	t.resumeAt = time.Now().Add(timeout)
	return timeout
}

// PauseFor marks the partition paused with an expiry of now+d, without
// touching attempt/currentTimeout — used for filter-driven pauses (spec
// §4.3 step 2 "pause until the filter's cursor.timeout"), which are a
// fixed window rather than an exponential backoff step.
func (t *Tracker) PauseFor(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = true
	t.resumeAt = time.Now().Add(d)
}

// PauseImmediate marks the partition paused with an expiry of now, so the
// very next resume_paused_partitions tick lifts it (spec §9 Open Question:
// the DLQ-exhaustion "pause(seek_offset, nil, false)" means immediate
// resume on the next tick, not an indefinite pause).
func (t *Tracker) PauseImmediate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = true
	t.resumeAt = time.Now()
}

// SetManualPause sets or clears the manual-pause flag. Manual pauses are
// never lifted by resume_paused_partitions; only SetManualPause(false)
// clears the flag, and Resume leaves it as it is.
func (t *Tracker) SetManualPause(manual bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.manualPause = manual
}

// ManualPause reports the manual-pause flag.
func (t *Tracker) ManualPause() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.manualPause
}

// Resume clears the paused flag unconditionally. Called after the Listener
// actually resumes the partition on the Client.
func (t *Tracker) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = false
}

// DueForResume reports whether the pause window has elapsed and the
// partition isn't under a manual pause — the predicate used by
// Listener.resume_paused_partitions (spec §4.1 step 1).
func (t *Tracker) DueForResume(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.manualPause || !t.paused {
		return false
	}
	return !now.Before(t.resumeAt)
}

// Attempt returns the current attempt count.
func (t *Tracker) Attempt() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempt
}
