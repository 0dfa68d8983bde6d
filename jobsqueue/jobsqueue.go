// Package jobsqueue buffers jobs.Job values per subscription group ahead
// of the Scheduler's worker pool, preserving FIFO order within a group
// (spec §2, §4.1 "enqueue in JobsQueue").
package jobsqueue

import (
	"context"
	"sync"

	"github.com/242617/karacore/jobs"
)

// Queue is an unbounded FIFO of jobs for one subscription group. Push
// never blocks; Pop blocks until a job is available or ctx is done.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []*jobs.Job
	inFlight int
	closed   bool
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends job to the tail, preserving the order jobs were built in.
func (q *Queue) Push(job *jobs.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, job)
	q.cond.Signal()
}

// PushAll appends a batch of jobs in order.
func (q *Queue) PushAll(batch []*jobs.Job) {
	if len(batch) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, batch...)
	q.cond.Broadcast()
}

// Pop blocks until a job is available, the queue is closed, or ctx is
// done. ok is false when the queue is closed and drained, or ctx expired.
func (q *Queue) Pop(ctx context.Context) (job *jobs.Job, ok bool) {
	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		close(done)
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		select {
		case <-done:
			return nil, false
		default:
		}
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}

	job, q.items = q.items[0], q.items[1:]
	q.inFlight++
	return job, true
}

// Done marks one job popped via Pop as finished running. Must be called
// exactly once per successful Pop, regardless of whether the job itself
// succeeded or failed, so Empty/wait can observe in-flight work draining.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inFlight--
	q.cond.Broadcast()
}

// Empty reports whether the queue currently holds no jobs and no popped
// job is still running (spec §4.5: wait returns only when both queue
// depth and in-flight counter are zero for the shard).
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0 && q.inFlight == 0
}

// Len reports the number of queued jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear discards every queued job without running it, used by the
// Listener's restart sequence.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// Close marks the queue as finished; blocked and future Pop calls return
// immediately with ok=false once drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Manager shards Queues by subscription group id, creating one lazily on
// first use (spec §2: "JobsQueue sharded by subscription-group id").
type Manager struct {
	mu   sync.Mutex
	byID map[string]*Queue
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{byID: map[string]*Queue{}}
}

// Queue returns the Queue for groupID, creating it if absent.
func (m *Manager) Queue(groupID string) *Queue {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.byID[groupID]
	if !ok {
		q = NewQueue()
		m.byID[groupID] = q
	}
	return q
}

// All returns every currently registered Queue.
func (m *Manager) All() []*Queue {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Queue, 0, len(m.byID))
	for _, q := range m.byID {
		out = append(out, q)
	}
	return out
}
