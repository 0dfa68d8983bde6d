// Package jobs defines the typed units of work the Listener schedules:
// consume, idle, revoked, shutdown, and periodic jobs (spec §2, §4.1).
package jobs

import (
	"context"

	"github.com/google/uuid"

	"github.com/242617/karacore/consumerapi"
	"github.com/242617/karacore/coordinator"
	"github.com/242617/karacore/executor"
	"github.com/242617/karacore/kafkacore"
)

// Kind discriminates the job variants the core schedules.
type Kind int

const (
	KindConsume Kind = iota
	KindIdle
	KindRevoked
	KindShutdown
	KindPeriodic
)

func (k Kind) String() string {
	switch k {
	case KindConsume:
		return "consume"
	case KindIdle:
		return "idle"
	case KindRevoked:
		return "revoked"
	case KindShutdown:
		return "shutdown"
	case KindPeriodic:
		return "periodic"
	default:
		return "unknown"
	}
}

// Job is one scheduled unit of work. Not every field is meaningful for
// every Kind: Messages/Coordinator/Generation only apply to KindConsume;
// the rest apply to all kinds that touch one Executor.
type Job struct {
	ID      uuid.UUID
	Kind    Kind
	TP      kafkacore.TP
	GroupID int

	Executor *executor.Executor

	Coordinator *coordinator.Coordinator
	Generation  uuid.UUID
	Messages    []kafkacore.Message
	LastInGroup kafkacore.Message
}

// Run executes the job's lifecycle callback on its Executor and returns
// the DeliveryContext the user consumer populated, plus any error from
// Consume. The caller (Scheduler's worker) is responsible for folding the
// DeliveryContext into a coordinator.Result and calling Decrement for
// KindConsume jobs.
func (j *Job) Run(ctx context.Context) (*consumerapi.DeliveryContext, error) {
	dc := consumerapi.NewDeliveryContext()

	switch j.Kind {
	case KindConsume:
		err := j.Executor.Consume(ctx, dc, j.Messages)
		return dc, err
	case KindIdle:
		j.Executor.Idle(ctx, dc)
	case KindPeriodic:
		j.Executor.Periodic(ctx, dc)
	case KindRevoked:
		j.Executor.Revoked(ctx, dc)
	case KindShutdown:
		j.Executor.Shutdown(ctx, dc)
	}
	return dc, nil
}
