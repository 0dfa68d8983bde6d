// Package strategy implements the feature-composed post-consume decision
// table described in spec §4.3: given a topic's declared feature set, pick
// one of {mark-consumed, retry-after-pause, skip-and-DLQ} after a batch's
// Coordinator drains to zero.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/242617/karacore/auditstore"
	"github.com/242617/karacore/coordinator"
	"github.com/242617/karacore/filtering"
	"github.com/242617/karacore/kafkacore"
	"github.com/242617/karacore/protocol"
)

// AuditSink records why a message left the normal flow. Satisfied by
// *auditstore.Store; nil disables audit recording entirely.
type AuditSink interface {
	Record(ctx context.Context, rec auditstore.Record) error
}

// Strategy is the unique function of one topic's feature tuple (spec §9:
// "dispatch through a table keyed on the tuple, not a class hierarchy").
// One Strategy instance is shared by every Coordinator for the topic.
type Strategy struct {
	topic  string
	cfg    TopicConfig
	client kafkacore.Client
	log    protocol.Logger
	audit  AuditSink
}

// New returns a Strategy for topic driven by cfg, issuing commits/pauses/
// seeks/DLQ production through client. audit may be nil.
func New(topic string, cfg TopicConfig, client kafkacore.Client, log protocol.Logger, audit AuditSink) *Strategy {
	return &Strategy{topic: topic, cfg: cfg, client: client, log: log, audit: audit}
}

// Install registers this Strategy's handle_after_consume as coord's
// on_finished callback. Must be called before the coordinator's first
// Increment (spec §4.2).
func (s *Strategy) Install(coord *coordinator.Coordinator) {
	coord.OnFinished(func(last kafkacore.Message) {
		if err := s.HandleAfterConsume(context.Background(), coord, last); err != nil && s.log != nil {
			s.log.Error(context.Background(), "error.occurred", "type", "strategy.handle_after_consume.error", "topic", s.topic, "err", err)
		}
	})
}

// HandleAfterConsume runs the decision table in spec §4.3 steps 1-4.
func (s *Strategy) HandleAfterConsume(ctx context.Context, coord *coordinator.Coordinator, last kafkacore.Message) error {
	tp := coord.TP()

	if coord.Revoked() {
		return nil
	}

	if !coord.NeedsRetry() {
		return s.handleSuccess(ctx, coord, tp, last)
	}

	pt := coord.PauseTracker()
	if pt.Attempt() < s.cfg.DeadLetterQueue.MaxRetries {
		return s.retryAfterPause(ctx, coord, tp)
	}
	return s.skipAndDLQ(ctx, coord, tp)
}

func (s *Strategy) handleSuccess(ctx context.Context, coord *coordinator.Coordinator, tp kafkacore.TP, last kafkacore.Message) error {
	coord.PauseTracker().Success()

	if coord.ManualPause() {
		return nil
	}

	if !(s.cfg.ManualOffsetManagement && !coord.AnyMarked()) {
		if err := s.commit(ctx, tp, last.Offset+1); err != nil {
			return errors.Wrap(err, "commit after success")
		}
	}

	return s.handlePostFiltering(ctx, coord, tp)
}

func (s *Strategy) handlePostFiltering(ctx context.Context, coord *coordinator.Coordinator, tp kafkacore.TP) error {
	if s.cfg.Filtering == nil {
		return nil
	}
	batch := coord.Batch()
	if len(batch) == 0 {
		return nil
	}

	f := s.cfg.Filtering()
	result := filtering.Run(f, batch)
	if !result.Filtered {
		return nil
	}

	coord.SetSeekOffset(result.FirstDropped.Offset)
	s.client.Seek(tp.Topic, tp.Partition, result.FirstDropped.Offset)
	s.client.Pause(tp.Topic, tp.Partition)
	coord.PauseTracker().PauseFor(result.CursorTimeout)
	return nil
}

func (s *Strategy) retryAfterPause(ctx context.Context, coord *coordinator.Coordinator, tp kafkacore.TP) error {
	skippable := s.skippableMessage(coord)
	coord.SetSeekOffset(skippable.Offset)

	coord.PauseTracker().Pause()
	s.client.Pause(tp.Topic, tp.Partition)
	s.client.Seek(tp.Topic, tp.Partition, skippable.Offset)
	if s.log != nil {
		s.log.Warn(ctx, "retry after pause", "topic", tp.Topic, "partition", tp.Partition, "attempt", coord.PauseTracker().Attempt(), "seek_offset", skippable.Offset)
	}
	return nil
}

func (s *Strategy) skipAndDLQ(ctx context.Context, coord *coordinator.Coordinator, tp kafkacore.TP) error {
	attempt := coord.PauseTracker().Attempt()
	coord.PauseTracker().Success()

	skippable := s.skippableMessage(coord)
	reason := auditstore.ReasonSkippedNoDLQ
	dlqTopic := ""

	if s.cfg.DeadLetterQueue.shouldDispatch(skippable) {
		if err := s.dispatchToDLQ(ctx, tp, skippable); err != nil {
			return errors.Wrap(err, "dispatch to dlq")
		}
		reason = auditstore.ReasonDeadLettered
		dlqTopic = s.cfg.DeadLetterQueue.Topic
	} else if s.log != nil {
		s.log.Warn(ctx, "skipping message without dlq dispatch", "topic", tp.Topic, "partition", tp.Partition, "offset", skippable.Offset)
	}

	if s.audit != nil {
		rec := auditstore.Record{
			Topic: tp.Topic, Partition: tp.Partition, Offset: skippable.Offset,
			Attempt: attempt, Reason: reason, DLQTopic: dlqTopic, DispatchedAt: time.Now(),
		}
		if err := s.audit.Record(ctx, rec); err != nil && s.log != nil {
			s.log.Error(ctx, "error.occurred", "type", "strategy.audit_record.error", "topic", tp.Topic, "err", err)
		}
	}

	if err := s.commit(ctx, tp, skippable.Offset+1); err != nil {
		return errors.Wrap(err, "commit after skip")
	}

	coord.PauseTracker().PauseImmediate()
	s.client.Pause(tp.Topic, tp.Partition)
	return nil
}

func (s *Strategy) dispatchToDLQ(ctx context.Context, tp kafkacore.TP, m kafkacore.Message) error {
	headers := append([]kafkacore.Header{}, m.Headers...)
	headers = append(headers,
		kafkacore.Header{Key: "original_topic", Value: []byte(tp.Topic)},
		kafkacore.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", tp.Partition))},
		kafkacore.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", m.Offset))},
	)
	dlqMsg := kafkacore.Message{
		Topic:   s.cfg.DeadLetterQueue.Topic,
		Key:     m.Key,
		Value:   m.Value,
		Headers: headers,
	}
	sync := s.cfg.DeadLetterQueue.DispatchMethod == DispatchSync
	return s.client.Produce(ctx, dlqMsg, sync)
}

func (s *Strategy) commit(ctx context.Context, tp kafkacore.TP, offset int64) error {
	s.client.MarkAsConsumed(tp.Topic, tp.Partition, offset)
	return s.client.CommitOffsets(ctx)
}

// skippableMessage finds the first uncommitted offset in the batch — for
// manual-offset-management topics this is the message at seek_offset
// (spec §4.3 step 4).
func (s *Strategy) skippableMessage(coord *coordinator.Coordinator) kafkacore.Message {
	batch := coord.Batch()
	if len(batch) == 0 {
		return kafkacore.Message{Topic: coord.TP().Topic, Partition: coord.TP().Partition, Offset: coord.SeekOffset()}
	}
	if s.cfg.ManualOffsetManagement {
		so := coord.SeekOffset()
		for _, m := range batch {
			if m.Offset == so {
				return m
			}
		}
	}
	return batch[0]
}
