// Package scheduler runs jobs.Job values popped off a jobsqueue.Queue
// through a bounded worker pool, reporting consume-job completion back to
// each job's Coordinator (spec §2 "Scheduler enqueues/runs jobs").
package scheduler

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/242617/karacore/coordinator"
	"github.com/242617/karacore/jobs"
	"github.com/242617/karacore/jobsqueue"
	"github.com/242617/karacore/protocol"
)

// Scheduler drains one jobsqueue.Queue with a fixed number of concurrent
// workers. One Scheduler exists per subscription group (spec §2, matching
// jobsqueue.Manager's per-group sharding).
type Scheduler struct {
	queue       *jobsqueue.Queue
	concurrency int
	log         protocol.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New returns a Scheduler draining queue with concurrency workers.
func New(queue *jobsqueue.Queue, concurrency int, log protocol.Logger) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{queue: queue, concurrency: concurrency, log: log}
}

// Start launches the worker pool in the background. Implements
// protocol.Lifecycle's half for a component that has no separate ready
// signal: it returns once the pool goroutine is launched.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

// Stop cancels the worker pool and waits for in-flight jobs to finish or
// ctx to expire, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		group.Go(func() error {
			s.worker(groupCtx)
			return nil
		})
	}
	_ = group.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Scheduler) worker(ctx context.Context) {
	for {
		job, ok := s.queue.Pop(ctx)
		if !ok {
			return
		}
		s.runJob(ctx, job)
		s.queue.Done()
	}
}

func (s *Scheduler) runJob(ctx context.Context, job *jobs.Job) {
	dc, err := job.Run(ctx)
	if err != nil && s.log != nil {
		s.log.Error(ctx, "job failed", "kind", job.Kind.String(), "topic", job.TP.Topic, "partition", job.TP.Partition, "err", err)
	}

	if job.Kind != jobs.KindConsume {
		return
	}

	result := coordinator.Result{OK: err == nil, AnyMarked: dc.AnyMarked(), RetryOverride: dc.RetryRequested()}
	job.Coordinator.Decrement(job.Generation, job.GroupID, result)
}
