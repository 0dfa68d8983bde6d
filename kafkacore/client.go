package kafkacore

import (
	"context"
	"time"
)

// RebalanceManager reports the partitions the broker revoked on the most
// recent rebalance. The core reads it once per poll_and_remap_messages tick
// (spec §4.1 step 3); the Client updates it from its own rebalance callback.
type RebalanceManager interface {
	RevokedPartitions() map[string][]int32
}

// Client is the opaque Kafka wire collaborator (spec §6). The core never
// talks to the broker directly; every transport operation goes through this
// interface so the fetch loop, Strategy and tplbuilder can be tested without
// a broker. FranzClient is the production implementation.
type Client interface {
	// BatchPoll fetches the next batch of records across all assigned
	// partitions. It must not block past maxWait.
	BatchPoll(ctx context.Context, maxWait time.Duration) ([]Message, error)

	// EventsPoll drives librdkafka/franz-go background callbacks (rebalance,
	// stats) without fetching records.
	EventsPoll(ctx context.Context, timeout time.Duration) error

	// Ping keeps the consumer group session alive without polling records;
	// used during Quieting/Stopping so long jobs don't trip max.poll.interval.
	Ping(ctx context.Context) error

	Pause(topic string, partition int32)
	Resume(topic string, partition int32)
	Seek(topic string, partition int32, offset int64)

	// CommitOffsets commits all offsets marked via MarkAsConsumed since the
	// last commit.
	CommitOffsets(ctx context.Context) error
	// MarkAsConsumed records that the given topic-partition's next fetch
	// offset is at least `offset`. It does not necessarily commit.
	MarkAsConsumed(topic string, partition int32, offset int64)

	QueryWatermarkOffsets(ctx context.Context, topic string, partition int32) (low, high int64, err error)
	OffsetsForTimes(ctx context.Context, request map[TP]time.Time, timeout time.Duration) (map[TP]int64, error)

	// Produce dispatches a message, used for DLQ escalation. sync controls
	// dispatch_method: produce_sync blocks until the broker acks.
	Produce(ctx context.Context, msg Message, sync bool) error

	RebalanceManager() RebalanceManager

	Stop(ctx context.Context) error
	Reset(ctx context.Context) error
}
