package jobs

import (
	"github.com/google/uuid"

	"github.com/242617/karacore/coordinator"
	"github.com/242617/karacore/executor"
	"github.com/242617/karacore/executorsbuffer"
	"github.com/242617/karacore/kafkacore"
	"github.com/242617/karacore/partitioner"
)

// Builder turns a partitioned batch into the Jobs the Scheduler enqueues,
// wiring each job to the Executor and Coordinator it must report back to
// (spec §4.1 step 3: "partition -> build jobs -> start coordinator").
type Builder struct {
	executors *executorsbuffer.Buffer
}

// NewBuilder returns a Builder drawing Executors from executors.
func NewBuilder(executors *executorsbuffer.Buffer) *Builder {
	return &Builder{executors: executors}
}

// Consume builds one KindConsume Job per virtual-partition Group, all
// sharing coord and its current generation. It also registers each
// group's tail message with the Coordinator so the eventual on_finished
// callback sees the correct highest-offset message to commit (spec §4.2).
func (b *Builder) Consume(tp kafkacore.TP, groups []partitioner.Group, coord *coordinator.Coordinator) []*Job {
	generation := coord.Generation()

	out := make([]*Job, 0, len(groups))
	for _, g := range groups {
		if len(g.Messages) == 0 {
			continue
		}
		last := g.Messages[len(g.Messages)-1]
		coord.TrackGroupTail(g.ID, last)
		coord.Increment()

		exec := b.executors.FindOrCreate(executor.Key{TP: tp, GroupID: g.ID})
		out = append(out, &Job{
			ID:          uuid.New(),
			Kind:        KindConsume,
			TP:          tp,
			GroupID:     g.ID,
			Executor:    exec,
			Coordinator: coord,
			Generation:  generation,
			Messages:    g.Messages,
			LastInGroup: last,
		})
	}
	return out
}

// Idle builds one idle job per Executor currently bound to tp, issued when
// a poll returns no messages for tp (spec §4.1 step 5). With virtual
// partitioning a tp can have several Executors, and each gets its own idle
// job. Returns nil when tp has no Executor.
func (b *Builder) Idle(tp kafkacore.TP) []*Job {
	execs := b.executors.ForTP(tp)
	if len(execs) == 0 {
		return nil
	}
	out := make([]*Job, 0, len(execs))
	for _, e := range execs {
		out = append(out, &Job{ID: uuid.New(), Kind: KindIdle, TP: tp, GroupID: e.Key().GroupID, Executor: e})
	}
	return out
}

// Revoked builds one revoked job per Executor currently bound to tp. The
// caller must purge executorsbuffer for tp only after these jobs have
// run (spec §4.1 step 3 ordering; executorsbuffer.Revoke documents this).
func (b *Builder) Revoked(tp kafkacore.TP) []*Job {
	execs := b.executors.ForTP(tp)
	out := make([]*Job, 0, len(execs))
	for _, e := range execs {
		out = append(out, &Job{ID: uuid.New(), Kind: KindRevoked, TP: tp, GroupID: e.Key().GroupID, Executor: e})
	}
	return out
}

// Shutdown builds one shutdown job per Executor tracked anywhere in the
// subscription group, run once during final drain (spec §4.1 Stopping).
func (b *Builder) Shutdown() []*Job {
	execs := b.executors.All()
	out := make([]*Job, 0, len(execs))
	for _, e := range execs {
		out = append(out, &Job{ID: uuid.New(), Kind: KindShutdown, TP: e.Key().TP, GroupID: e.Key().GroupID, Executor: e})
	}
	return out
}

// Periodic builds one periodic job per Executor tracked anywhere in the
// subscription group, run on the periodic-jobs timer (spec §4.3 periodic
// feature).
func (b *Builder) Periodic() []*Job {
	execs := b.executors.All()
	out := make([]*Job, 0, len(execs))
	for _, e := range execs {
		out = append(out, &Job{ID: uuid.New(), Kind: KindPeriodic, TP: e.Key().TP, GroupID: e.Key().GroupID, Executor: e})
	}
	return out
}
