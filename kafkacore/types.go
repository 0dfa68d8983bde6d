// Package kafkacore defines the external Kafka collaborator surface used by
// the partition processing core: an opaque Client (poll/pause/resume/seek/
// commit/produce), the Message/Header wire shapes, and the error taxonomy
// surfaced to operators. The production adapter, FranzClient, wraps a
// twmb/franz-go kgo.Client.
package kafkacore

import "time"

// TP identifies one topic-partition.
type TP struct {
	Topic     string
	Partition int32
}

// Header is a single Kafka message header.
type Header struct {
	Key   string
	Value []byte
}

// Message is the core's view of a polled record. Payload carries the
// deserialized user value opaquely; the core never inspects it.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Timestamp time.Time
	Key       []byte
	Value     []byte
	Headers   []Header
	Payload   any
}

// TP returns the topic-partition this message belongs to.
func (m Message) TP() TP { return TP{Topic: m.Topic, Partition: m.Partition} }

// Batch is one subscription group's worth of freshly polled messages,
// already grouped by topic-partition by MessagesBuffer.
type Batch struct {
	TP       TP
	Messages []Message
}
