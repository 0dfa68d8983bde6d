package filtering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/242617/karacore/kafkacore"
)

type prefixFilter struct {
	keep    int
	timeout time.Duration
}

func (f prefixFilter) Apply(messages []kafkacore.Message) []kafkacore.Message {
	if f.keep >= len(messages) {
		return messages
	}
	return messages[:f.keep]
}

func (f prefixFilter) CursorTimeout() time.Duration { return f.timeout }

func TestRun_NoTailDropped(t *testing.T) {
	messages := []kafkacore.Message{{Offset: 1}, {Offset: 2}}
	result := Run(prefixFilter{keep: 2}, messages)
	require.False(t, result.Filtered)
}

func TestRun_TailDropped(t *testing.T) {
	messages := []kafkacore.Message{{Offset: 10}, {Offset: 11}, {Offset: 12}}
	result := Run(prefixFilter{keep: 1, timeout: 5 * time.Second}, messages)

	require.True(t, result.Filtered)
	require.Equal(t, int64(11), result.FirstDropped.Offset)
	require.Equal(t, 5*time.Second, result.CursorTimeout)
}

func TestRun_EmptyBatchKeepsEverything(t *testing.T) {
	result := Run(prefixFilter{keep: 0}, nil)
	require.False(t, result.Filtered)
}
