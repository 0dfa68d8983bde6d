// Package messagesbuffer holds the single-generation raw batch polled by
// the Listener, grouped by topic-partition, cleared every poll cycle
// (spec §2, §4.1 step 2).
package messagesbuffer

import (
	"sync"

	"github.com/242617/karacore/kafkacore"
)

// Buffer groups one poll's messages by topic-partition.
type Buffer struct {
	mu    sync.Mutex
	byTP  map[kafkacore.TP][]kafkacore.Message
	order []kafkacore.TP
}

// New creates an empty Buffer.
func New() *Buffer {
	return &Buffer{byTP: map[kafkacore.TP][]kafkacore.Message{}}
}

// Fill replaces the buffer's contents with a freshly polled batch, grouping
// by topic-partition and preserving within-partition broker order.
func (b *Buffer) Fill(messages []kafkacore.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.byTP = map[kafkacore.TP][]kafkacore.Message{}
	b.order = nil
	for _, m := range messages {
		tp := m.TP()
		if _, ok := b.byTP[tp]; !ok {
			b.order = append(b.order, tp)
		}
		b.byTP[tp] = append(b.byTP[tp], m)
	}
}

// Clear empties the buffer. The Listener does not call it: Fill replaces
// the contents on each poll, and restart allocates a fresh Buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byTP = map[kafkacore.TP][]kafkacore.Message{}
	b.order = nil
}

// Batch is one topic-partition's messages from the current generation.
type Batch struct {
	TP       kafkacore.TP
	Messages []kafkacore.Message
}

// Batches returns one Batch per topic-partition present in the buffer, in
// the order partitions first appeared, for build_and_schedule_flow_jobs
// (spec §4.1 step 5) to iterate over.
func (b *Buffer) Batches() []Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Batch, 0, len(b.order))
	for _, tp := range b.order {
		out = append(out, Batch{TP: tp, Messages: b.byTP[tp]})
	}
	return out
}

// Empty reports whether the buffer currently holds no messages at all.
func (b *Buffer) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order) == 0
}
