package strategy

import (
	"time"

	"github.com/242617/karacore/filtering"
	"github.com/242617/karacore/kafkacore"
)

// DispatchMethod selects how a DLQ-bound message is produced.
type DispatchMethod int

const (
	DispatchAsync DispatchMethod = iota
	DispatchSync
)

// DeadLetterQueue is the per-topic DLQ policy (spec §6 Configuration surface).
type DeadLetterQueue struct {
	Topic          string
	MaxRetries     int
	DispatchMethod DispatchMethod
	// DispatchPredicate decides whether a skippable message is actually
	// produced to Topic once retries are exhausted. Nil means always.
	DispatchPredicate func(kafkacore.Message) bool
}

func (d DeadLetterQueue) enabled() bool { return d.Topic != "" }

func (d DeadLetterQueue) shouldDispatch(m kafkacore.Message) bool {
	if !d.enabled() {
		return false
	}
	if d.DispatchPredicate == nil {
		return true
	}
	return d.DispatchPredicate(m)
}

// VirtualPartitions is the per-topic virtual-partitioning policy.
type VirtualPartitions struct {
	Enabled       bool
	MaxPartitions int
}

// TopicConfig is the feature set selecting one strategy for a topic (spec
// §4.3: "a subset of {active_job, dead_letter_queue, filtering,
// manual_offset_management, virtual_partitions, long_running_job}").
type TopicConfig struct {
	ActiveJob              bool
	ManualOffsetManagement bool
	LongRunningJob         bool
	DeadLetterQueue        DeadLetterQueue
	Filtering              filtering.Factory
	VirtualPartitions      VirtualPartitions
	PeriodicsInterval      time.Duration
}
