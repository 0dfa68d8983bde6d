// Package auditstore persists DLQ-dispatch and retry-exhaustion audit rows
// for operational visibility (spec §8's DLQ round-trip testable property
// needs a durable record distinct from the DLQ topic itself). It is a thin
// repository layer over pgrepo.DB, following the teacher's query-helper
// pattern (pgrepo.Exec/QueryRow/Query) rather than a bespoke ORM.
package auditstore

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/pkg/errors"

	"github.com/242617/karacore/pgrepo"
)

// Reason classifies why a message was written to the audit log.
type Reason string

const (
	ReasonDeadLettered Reason = "dead_lettered"
	ReasonSkippedNoDLQ Reason = "skipped_no_dlq"
)

// Record is one audited message: either dispatched to a topic's
// dead_letter_queue or skipped without one, once retries were exhausted.
type Record struct {
	ID           int64     `db:"id"`
	Topic        string    `db:"topic"`
	Partition    int32     `db:"partition"`
	Offset       int64     `db:"offset"`
	Attempt      int       `db:"attempt"`
	Reason       Reason    `db:"reason"`
	DLQTopic     string    `db:"dlq_topic"`
	DispatchedAt time.Time `db:"dispatched_at"`
}

// Store records audit rows in Postgres via db.
type Store struct {
	db *pgrepo.DB
}

// New returns a Store backed by an already-started db.
func New(db *pgrepo.DB) *Store {
	return &Store{db: db}
}

// Record inserts one audit row. Called by strategy.skipAndDLQ after a
// message's retries are exhausted, regardless of whether a DLQ dispatch
// actually happened (reason distinguishes the two).
func (s *Store) Record(ctx context.Context, rec Record) error {
	const query = `
		INSERT INTO consumer_audit_log (topic, partition, "offset", attempt, reason, dlq_topic, dispatched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := pgrepo.Exec(ctx, s.db.Master(), query,
		rec.Topic, rec.Partition, rec.Offset, rec.Attempt, rec.Reason, rec.DLQTopic, rec.DispatchedAt)
	if err != nil {
		return errors.Wrap(err, "insert audit row")
	}
	return nil
}

// ForPartition returns the audit rows for one topic-partition, newest first,
// limited to limit rows. Used by operational tooling and tests to verify
// the DLQ round-trip (spec §8): original_topic/original_partition/
// original_offset recoverable from the dead-lettered message's headers
// should match the audited row for the same coordinate.
func (s *Store) ForPartition(ctx context.Context, topic string, partition int32, limit int) ([]Record, error) {
	const query = `
		SELECT id, topic, partition, "offset", attempt, reason, dlq_topic, dispatched_at
		FROM consumer_audit_log
		WHERE topic = $1 AND partition = $2
		ORDER BY dispatched_at DESC
		LIMIT $3`

	var records []Record
	if err := pgxscan.Select(ctx, s.db.Replica(ctx), &records, query, topic, partition, limit); err != nil {
		return nil, errors.Wrap(err, "select audit rows")
	}
	return records, nil
}
