// Package tplbuilder normalizes ad-hoc consumption offsets into a flat
// topic-partition-offset list ready to subscribe (spec §4.6). It never
// touches the running core's buffers or Coordinators; it is a one-shot
// setup-time helper used by cmd wiring and admin tooling.
package tplbuilder

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/242617/karacore/kafkacore"
)

// OffsetsForTimesTimeout bounds the single batched offsets_for_times call
// (spec §4.6: "a 2s timeout").
const OffsetsForTimesTimeout = 2 * time.Second

// TPO is one normalized topic-partition-offset entry.
type TPO struct {
	Topic     string
	Partition int32
	Offset    int64
}

// PartitionsSpec is one topic's requested partitions, as one of:
//   - a plain partition list (start from offset 0), via List
//   - a map partition → offset request, via Offsets
type PartitionsSpec struct {
	List    []int32
	Offsets map[int32]OffsetRequest
}

// OffsetRequest is a single partition's offset request. Exactly one of the
// three forms applies:
//   - Offset >= 0: use as-is
//   - Offset < 0: "last N" — resolved to max(low, high+Offset)
//   - At is non-zero: resolved via a batched offsets_for_times call
type OffsetRequest struct {
	Offset int64
	At     time.Time
}

func (r OffsetRequest) isTimeBased() bool { return !r.At.IsZero() }

// Build normalizes specs (keyed by topic) into a flat TPO list, issuing
// QueryWatermarkOffsets per negative-offset partition and a single batched
// OffsetsForTimes call across every timestamp-based partition (spec §4.6).
func Build(ctx context.Context, client kafkacore.Client, specs map[string]PartitionsSpec) ([]TPO, error) {
	var out []TPO
	timeRequests := map[kafkacore.TP]time.Time{}

	for topic, spec := range specs {
		for _, p := range spec.List {
			out = append(out, TPO{Topic: topic, Partition: p, Offset: 0})
		}

		for partition, req := range spec.Offsets {
			tp := kafkacore.TP{Topic: topic, Partition: partition}

			switch {
			case req.isTimeBased():
				timeRequests[tp] = req.At
				continue
			case req.Offset >= 0:
				out = append(out, TPO{Topic: topic, Partition: partition, Offset: req.Offset})
			default:
				low, high, err := client.QueryWatermarkOffsets(ctx, topic, partition)
				if err != nil {
					return nil, errors.Wrapf(err, "query watermark offsets for %s[%d]", topic, partition)
				}
				offset := high + req.Offset
				if offset < low {
					offset = low
				}
				out = append(out, TPO{Topic: topic, Partition: partition, Offset: offset})
			}
		}
	}

	if len(timeRequests) == 0 {
		return out, nil
	}

	resolved, err := client.OffsetsForTimes(ctx, timeRequests, OffsetsForTimesTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "offsets for times")
	}

	for tp := range timeRequests {
		offset, ok := resolved[tp]
		if !ok {
			return nil, &kafkacore.InvalidTimeBasedOffsetError{Topic: tp.Topic, Partition: tp.Partition}
		}
		out = append(out, TPO{Topic: tp.Topic, Partition: tp.Partition, Offset: offset})
	}

	return out, nil
}
