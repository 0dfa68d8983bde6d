package messagesbuffer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/242617/karacore/kafkacore"
)

func TestBuffer_FillGroupsByTPPreservingOrder(t *testing.T) {
	b := New()
	b.Fill([]kafkacore.Message{
		{Topic: "a", Partition: 0, Offset: 1},
		{Topic: "a", Partition: 1, Offset: 2},
		{Topic: "a", Partition: 0, Offset: 3},
	})

	batches := b.Batches()
	require.Len(t, batches, 2)
	require.Equal(t, kafkacore.TP{Topic: "a", Partition: 0}, batches[0].TP)
	require.Equal(t, []int64{1, 3}, offsets(batches[0].Messages))
	require.Equal(t, kafkacore.TP{Topic: "a", Partition: 1}, batches[1].TP)
}

func TestBuffer_FillReplacesPreviousContents(t *testing.T) {
	b := New()
	b.Fill([]kafkacore.Message{{Topic: "a", Partition: 0, Offset: 1}})
	b.Fill([]kafkacore.Message{{Topic: "b", Partition: 0, Offset: 2}})

	batches := b.Batches()
	require.Len(t, batches, 1)
	require.Equal(t, "b", batches[0].TP.Topic)
}

func TestBuffer_EmptyAndClear(t *testing.T) {
	b := New()
	require.True(t, b.Empty())

	b.Fill([]kafkacore.Message{{Topic: "a", Offset: 1}})
	require.False(t, b.Empty())

	b.Clear()
	require.True(t, b.Empty())
	require.Empty(t, b.Batches())
}

func offsets(messages []kafkacore.Message) []int64 {
	out := make([]int64, len(messages))
	for i, m := range messages {
		out[i] = m.Offset
	}
	return out
}
