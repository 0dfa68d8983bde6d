package jobs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/242617/karacore/consumerapi"
	"github.com/242617/karacore/coordinator"
	"github.com/242617/karacore/executor"
	"github.com/242617/karacore/executorsbuffer"
	"github.com/242617/karacore/kafkacore"
	"github.com/242617/karacore/partitioner"
	"github.com/242617/karacore/pausetracker"
)

func newTestBuffer() *executorsbuffer.Buffer {
	return executorsbuffer.New(func(executor.Key) consumerapi.Factory {
		return func() consumerapi.Consumer { return &recordingConsumer{} }
	})
}

func TestBuilder_Consume_BuildsOneJobPerNonEmptyGroupAndTracksTails(t *testing.T) {
	tp := kafkacore.TP{Topic: "a", Partition: 0}
	buf := newTestBuffer()
	b := NewBuilder(buf)
	coord := coordinator.New(tp, pausetracker.New(pausetracker.BackoffConfig{Timeout: 1}))
	coord.Start(nil)

	groups := []partitioner.Group{
		{ID: 0, Messages: []kafkacore.Message{{Offset: 1}, {Offset: 2}}},
		{ID: 1, Messages: nil},
		{ID: 2, Messages: []kafkacore.Message{{Offset: 5}}},
	}

	jobs := b.Consume(tp, groups, coord)

	require.Len(t, jobs, 2)
	require.Equal(t, 0, jobs[0].GroupID)
	require.Equal(t, int64(2), jobs[0].LastInGroup.Offset)
	require.Equal(t, 2, jobs[1].GroupID)
	require.Equal(t, 2, coord.Outstanding())
}

func TestBuilder_Idle_NoExecutorsReturnsNil(t *testing.T) {
	tp := kafkacore.TP{Topic: "a", Partition: 0}
	b := NewBuilder(newTestBuffer())
	require.Nil(t, b.Idle(tp))
}

func TestBuilder_Idle_OnePerExistingExecutor(t *testing.T) {
	tp := kafkacore.TP{Topic: "a", Partition: 0}
	buf := newTestBuffer()
	b := NewBuilder(buf)
	coord := coordinator.New(tp, pausetracker.New(pausetracker.BackoffConfig{Timeout: 1}))
	coord.Start(nil)
	b.Consume(tp, []partitioner.Group{{ID: 0, Messages: []kafkacore.Message{{Offset: 1}}}}, coord)

	idleJobs := b.Idle(tp)
	require.Len(t, idleJobs, 1)
	require.Equal(t, KindIdle, idleJobs[0].Kind)
}

func TestBuilder_Revoked_OnePerExecutorForTP(t *testing.T) {
	tp := kafkacore.TP{Topic: "a", Partition: 0}
	buf := newTestBuffer()
	b := NewBuilder(buf)
	coord := coordinator.New(tp, pausetracker.New(pausetracker.BackoffConfig{Timeout: 1}))
	coord.Start(nil)
	b.Consume(tp, []partitioner.Group{{ID: 0, Messages: []kafkacore.Message{{Offset: 1}}}}, coord)

	revoked := b.Revoked(tp)
	require.Len(t, revoked, 1)
	require.Equal(t, KindRevoked, revoked[0].Kind)
}

func TestBuilder_Shutdown_OnePerExecutorAcrossAllTopics(t *testing.T) {
	tpA := kafkacore.TP{Topic: "a", Partition: 0}
	tpB := kafkacore.TP{Topic: "b", Partition: 0}
	buf := newTestBuffer()
	b := NewBuilder(buf)

	coordA := coordinator.New(tpA, pausetracker.New(pausetracker.BackoffConfig{Timeout: 1}))
	coordA.Start(nil)
	b.Consume(tpA, []partitioner.Group{{ID: 0, Messages: []kafkacore.Message{{Offset: 1}}}}, coordA)

	coordB := coordinator.New(tpB, pausetracker.New(pausetracker.BackoffConfig{Timeout: 1}))
	coordB.Start(nil)
	b.Consume(tpB, []partitioner.Group{{ID: 0, Messages: []kafkacore.Message{{Offset: 1}}}}, coordB)

	require.Len(t, b.Shutdown(), 2)
	require.Len(t, b.Periodic(), 2)
}
