// Package listener drives one subscription group's fetch loop: poll,
// remap revoked partitions, build and schedule jobs, wait for drain, and
// carry the group through Booting/Running/Quieting/Quiet/Stopping/Stopped
// (spec §4.1).
package listener

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"
	"github.com/pkg/errors"

	"github.com/242617/karacore/consumerapi"
	"github.com/242617/karacore/coordinator"
	"github.com/242617/karacore/coordinatorsbuffer"
	"github.com/242617/karacore/executor"
	"github.com/242617/karacore/executorsbuffer"
	"github.com/242617/karacore/jobs"
	"github.com/242617/karacore/jobsqueue"
	"github.com/242617/karacore/kafkacore"
	"github.com/242617/karacore/messagesbuffer"
	"github.com/242617/karacore/partitioner"
	"github.com/242617/karacore/pausetracker"
	"github.com/242617/karacore/protocol"
	"github.com/242617/karacore/scheduler"
	"github.com/242617/karacore/usagetracker"
)

const (
	PhaseBooting  = "booting"
	PhaseRunning  = "running"
	PhaseQuieting = "quieting"
	PhaseQuiet    = "quiet"
	PhaseStopping = "stopping"
	PhaseStopped  = "stopped"

	transitionBoot    = "boot"
	transitionQuiesce = "quiesce"
	transitionSettle  = "settle"
	transitionStop    = "stop"
	transitionHalt    = "halt"
)

// TopicSpec binds one topic to its virtual-partitioning, strategy and
// user-consumer wiring.
type TopicSpec struct {
	Topic           string
	Partitioner     *partitioner.Partitioner // nil disables virtual partitioning
	InstallStrategy func(*coordinator.Coordinator)
	ConsumerFactory consumerapi.Factory
	Periodics       bool
	UsageWindow     time.Duration
}

// Config configures one Listener instance.
type Config struct {
	GroupID     string
	Topics      []TopicSpec
	MaxWait     time.Duration
	WaitTick    time.Duration // pump interval for events-poll during wait; capped at 200ms (spec §4.5)
	Concurrency int
	Backoff     pausetracker.BackoffConfig
	Log         protocol.Logger
}

// Listener is one subscription group's fetch loop (spec §3 "Subscription
// Group": owns exactly one Client, one MessagesBuffer, one
// CoordinatorsBuffer, one ExecutorsBuffer, one JobsQueue shard).
type Listener struct {
	cfg    Config
	client kafkacore.Client
	log    protocol.Logger

	messages     *messagesbuffer.Buffer
	coordinators *coordinatorsbuffer.Buffer
	executors    *executorsbuffer.Buffer
	usage        *usagetracker.Tracker
	builder      *jobs.Builder
	queue        *jobsqueue.Queue
	scheduler    *scheduler.Scheduler

	topicsByName map[string]TopicSpec

	fsm *fsm.FSM

	done     atomic.Bool
	quieting atomic.Bool
	quiet    atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Listener for cfg, talking to the broker through client.
func New(cfg Config, client kafkacore.Client) (*Listener, error) {
	if cfg.GroupID == "" {
		return nil, errors.New("empty group id")
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.New("no topics configured")
	}
	if client == nil {
		return nil, errors.New("nil client")
	}
	for _, t := range cfg.Topics {
		if t.ConsumerFactory == nil {
			return nil, errors.Errorf("topic %q: nil consumer factory", t.Topic)
		}
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 500 * time.Millisecond
	}
	if cfg.WaitTick <= 0 || cfg.WaitTick > 200*time.Millisecond {
		cfg.WaitTick = 200 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Log == nil {
		cfg.Log = protocol.NopLogger{}
	}

	l := &Listener{
		cfg:          cfg,
		client:       client,
		log:          cfg.Log,
		topicsByName: map[string]TopicSpec{},
	}
	for _, t := range cfg.Topics {
		l.topicsByName[t.Topic] = t
	}
	l.rebuild()
	l.fsm = newFSM()
	return l, nil
}

// rebuild (re)allocates every per-cycle buffer, used at construction and on
// restart (spec §4.1 "restart... recreates ExecutorsBuffer").
func (l *Listener) rebuild() {
	l.messages = messagesbuffer.New()
	l.usage = usagetracker.New()
	l.queue = jobsqueue.NewQueue()
	l.coordinators = coordinatorsbuffer.New(l.cfg.Backoff)
	l.executors = executorsbuffer.New(l.factoryFor)
	l.builder = jobs.NewBuilder(l.executors)
	l.scheduler = scheduler.New(l.queue, l.cfg.Concurrency, l.log)
}

func (l *Listener) factoryFor(key executor.Key) consumerapi.Factory {
	return l.topicsByName[key.TP.Topic].ConsumerFactory
}

func newFSM() *fsm.FSM {
	return fsm.NewFSM(
		PhaseBooting,
		fsm.Events{
			{Name: transitionBoot, Src: []string{PhaseBooting}, Dst: PhaseRunning},
			{Name: transitionQuiesce, Src: []string{PhaseRunning}, Dst: PhaseQuieting},
			{Name: transitionSettle, Src: []string{PhaseQuieting}, Dst: PhaseQuiet},
			{Name: transitionStop, Src: []string{PhaseQuiet}, Dst: PhaseStopping},
			{Name: transitionHalt, Src: []string{PhaseStopping}, Dst: PhaseStopped},
		},
		fsm.Callbacks{},
	)
}

// Phase reports the current FSM state.
func (l *Listener) Phase() string { return l.fsm.Current() }

// Done signals the quiescence/shutdown sequence should begin; observed by
// the running loop between ticks (spec §9 "Global status").
func (l *Listener) Done() bool { return l.done.Load() }

// RequestStop flips the shared done flag; idempotent, safe from any
// goroutine (spec §5 "forced-shutdown timer may call Listener.shutdown
// from a foreign thread").
func (l *Listener) RequestStop() { l.done.Store(true) }

// Start implements protocol.Lifecycle: launches the fetch loop in the
// background and performs the initial boot events-poll.
func (l *Listener) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	if err := l.client.EventsPoll(ctx, 100*time.Millisecond); err != nil {
		cancel()
		return errors.Wrap(err, "boot events poll")
	}
	if err := l.fsm.Event(transitionBoot); err != nil {
		cancel()
		return errors.Wrap(err, "boot transition")
	}

	if err := l.scheduler.Start(runCtx); err != nil {
		cancel()
		return errors.Wrap(err, "start scheduler")
	}

	l.wg.Add(1)
	go l.run(runCtx)
	return nil
}

// Stop requests shutdown and blocks until the fetch loop and scheduler
// have drained or ctx expires.
func (l *Listener) Stop(ctx context.Context) error {
	l.RequestStop()

	done := make(chan struct{})
	go func() { l.wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-ctx.Done():
		l.mu.Lock()
		if l.cancel != nil {
			l.cancel()
		}
		l.mu.Unlock()
		return ctx.Err()
	}

	return l.scheduler.Stop(ctx)
}

func (l *Listener) run(ctx context.Context) {
	defer l.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		if err := l.iterate(ctx); err != nil {
			l.log.Error(ctx, "error.occurred", "type", "connection.listener.fetch_loop.error", "group_id", l.cfg.GroupID, "err", err)
			l.restart(ctx)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if l.Done() {
			l.shutdown(ctx)
			return
		}
	}
}

// iterate runs one Running-phase pass of spec §4.1's ordered steps 1-8.
func (l *Listener) iterate(ctx context.Context) error {
	l.resumePausedPartitions(ctx)

	if err := l.pollAndRemapMessages(ctx); err != nil {
		return errors.Wrap(err, "poll and remap messages")
	}

	if err := l.buildAndScheduleRevokedJobs(ctx); err != nil {
		return errors.Wrap(err, "build and schedule revoked jobs")
	}

	l.wait(ctx)

	if err := l.buildAndScheduleFlowJobs(ctx); err != nil {
		return errors.Wrap(err, "build and schedule flow jobs")
	}

	l.wait(ctx)

	l.buildAndSchedulePeriodicJobs(ctx)

	l.wait(ctx)

	return nil
}

// resumePausedPartitions is step 1: for each coordinator whose pause window
// has elapsed and is not manually paused, resume its partition.
func (l *Listener) resumePausedPartitions(ctx context.Context) {
	now := time.Now()
	for _, c := range l.coordinators.All() {
		pt := c.PauseTracker()
		if pt.ManualPause() || !pt.DueForResume(now) {
			continue
		}
		pt.Resume()
		tp := c.TP()
		l.client.Resume(tp.Topic, tp.Partition)
	}
}

// pollAndRemapMessages is step 2: fetch the next batch and refill the
// MessagesBuffer. The poll itself refreshes the Client's rebalance state.
func (l *Listener) pollAndRemapMessages(ctx context.Context) error {
	msgs, err := l.client.BatchPoll(ctx, l.cfg.MaxWait)
	if err != nil {
		return err
	}
	l.messages.Fill(msgs)
	return nil
}

// buildAndScheduleRevokedJobs is step 3.
func (l *Listener) buildAndScheduleRevokedJobs(ctx context.Context) error {
	revoked := l.client.RebalanceManager().RevokedPartitions()
	for topic, partitions := range revoked {
		for _, partition := range partitions {
			tp := kafkacore.TP{Topic: topic, Partition: partition}

			l.usage.Revoke(tp)
			l.coordinators.Revoke(tp)

			for _, job := range l.builder.Revoked(tp) {
				l.queue.Push(job)
			}

			l.executors.Revoke(tp)
		}
	}
	return nil
}

// wait is step 4/6/8: block until this group's queue shard drains,
// pumping the Client's events-poll on cfg.WaitTick. No manage tick is
// sent to the Scheduler.
func (l *Listener) wait(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.WaitTick)
	defer ticker.Stop()

	for {
		if l.queue.Empty() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = l.client.EventsPoll(ctx, 0)
		}
	}
}

// buildAndScheduleFlowJobs is step 5. TPs polled with messages this cycle
// get consume jobs; TPs that already have Executors (i.e. were active in
// a prior cycle) but got nothing this poll get one idle job per Executor
// instead.
func (l *Listener) buildAndScheduleFlowJobs(ctx context.Context) error {
	seen := map[kafkacore.TP]bool{}

	for _, batch := range l.messages.Batches() {
		tp := batch.TP
		seen[tp] = true

		spec, ok := l.topicsByName[tp.Topic]
		if !ok {
			continue
		}

		l.usage.Track(tp)
		coord := l.coordinators.FindOrCreateWithInit(tp, spec.InstallStrategy)

		if len(batch.Messages) == 0 {
			for _, job := range l.builder.Idle(tp) {
				l.queue.Push(job)
			}
			continue
		}

		coord.Start(batch.Messages)

		var groups []partitioner.Group
		if spec.Partitioner != nil {
			groups = spec.Partitioner.Call(batch.Messages)
		} else {
			groups = []partitioner.Group{{ID: 0, Messages: batch.Messages}}
		}

		consumeJobs := l.builder.Consume(tp, groups, coord)
		for _, job := range consumeJobs {
			l.queue.Push(job)
		}
	}

	for _, e := range l.executors.All() {
		tp := e.Key().TP
		if seen[tp] {
			continue
		}
		seen[tp] = true
		for _, job := range l.builder.Idle(tp) {
			l.queue.Push(job)
		}
	}

	return nil
}

// buildAndSchedulePeriodicJobs is step 7, gated on topics with periodics
// enabled whose UsageTracker shows no recent activity.
func (l *Listener) buildAndSchedulePeriodicJobs(ctx context.Context) {
	due := map[kafkacore.TP]bool{}
	for _, spec := range l.cfg.Topics {
		if !spec.Periodics {
			continue
		}
		for _, e := range l.executors.All() {
			tp := e.Key().TP
			if tp.Topic != spec.Topic {
				continue
			}
			if l.usage.Active(tp, spec.UsageWindow) {
				continue
			}
			l.usage.Track(tp)
			due[tp] = true
		}
	}

	jobsToRun := l.builder.Periodic()
	for _, job := range jobsToRun {
		if !due[job.TP] {
			continue
		}
		l.queue.Push(job)
	}
}

// restart is the §4.1/§5 restart sequence: drain and clear this group's
// queue, reset the Client, discard coordinators and executors tied to the
// previous rdkafka generation.
func (l *Listener) restart(ctx context.Context) {
	l.queue.Clear()
	_ = l.client.Reset(ctx)
	_ = l.scheduler.Stop(ctx)
	l.rebuild()
	_ = l.scheduler.Start(ctx)
}

// shutdown is the Quieting/Quiet/Stopping sequence from spec §4.1.
func (l *Listener) shutdown(ctx context.Context) {
	l.quieting.Store(true)
	_ = l.fsm.Event(transitionQuiesce)

	for !l.queue.Empty() {
		_ = l.client.Ping(ctx)
		_ = l.buildAndScheduleRevokedJobs(ctx)
		time.Sleep(l.cfg.WaitTick)
	}

	l.quiet.Store(true)
	_ = l.fsm.Event(transitionSettle)
	_ = l.fsm.Event(transitionStop)

	for _, job := range l.builder.Shutdown() {
		l.queue.Push(job)
	}
	l.wait(ctx)

	_ = l.client.Ping(ctx)
	_ = l.client.Stop(ctx)

	_ = l.fsm.Event(transitionHalt)
}
