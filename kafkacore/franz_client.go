package kafkacore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/242617/karacore/protocol"
)

// FranzClient adapts *kgo.Client to the Client interface, grounded on the
// poll/commit/rebalance-callback wiring of 242617-core/kafka/consumer and
// the produce path of 242617-core/kafka/producer. It adds pause/resume/seek
// and watermark/time-based-offset lookups the teacher's simple consumer
// never needed.
type FranzClient struct {
	client *kgo.Client
	log    protocol.Logger

	mu          sync.Mutex // serializes commit/pause/seek/produce/marks from worker threads
	marks       map[TP]int64
	rebal       *franzRebalanceManager
	maxMessages int // spec §6 "max_messages"; 0 means unbounded
}

// WithMaxMessages caps the number of records BatchPoll returns per call
// (spec §6 "max_messages"). Extra fetched records are kept by the
// underlying client and returned on the next poll.
func WithMaxMessages(n int) func(*FranzClient) {
	return func(c *FranzClient) { c.maxMessages = n }
}

// NewFranzClient builds a FranzClient over a freshly constructed kgo.Client
// subscribed to topics under groupID. clientOpts configure the FranzClient
// itself (e.g. WithMaxMessages); opts are passed straight through to kgo.
func NewFranzClient(log protocol.Logger, brokers []string, topics []string, groupID string, clientOpts []func(*FranzClient), opts ...kgo.Opt) (*FranzClient, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	if groupID == "" {
		return nil, ErrNoGroupID
	}

	rebal := &franzRebalanceManager{revoked: map[string][]int32{}}

	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.OnPartitionsRevoked(func(ctx context.Context, cl *kgo.Client, rev map[string][]int32) {
			rebal.setRevoked(rev)
			log.Info(ctx, "partitions revoked", "group_id", groupID, "partitions", rev)
		}),
		kgo.OnPartitionsAssigned(func(ctx context.Context, cl *kgo.Client, assigned map[string][]int32) {
			log.Info(ctx, "partitions assigned", "group_id", groupID, "partitions", assigned)
		}),
		kgo.OnPartitionsLost(func(ctx context.Context, cl *kgo.Client, lost map[string][]int32) {
			rebal.setRevoked(lost)
			log.Warn(ctx, "partitions lost", "group_id", groupID, "partitions", lost)
		}),
		kgo.DisableAutoCommit(),
	}
	opts = append(base, opts...)

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	c := &FranzClient{client: cl, log: log, rebal: rebal, marks: map[TP]int64{}}
	for _, opt := range clientOpts {
		opt(c)
	}
	return c, nil
}

func (c *FranzClient) BatchPoll(ctx context.Context, maxWait time.Duration) ([]Message, error) {
	pollCtx := ctx
	var cancel context.CancelFunc
	if maxWait > 0 {
		pollCtx, cancel = context.WithTimeout(ctx, maxWait)
		defer cancel()
	}

	fetches := c.client.PollRecords(pollCtx, c.maxMessages)
	if errs := fetches.Errors(); len(errs) > 0 {
		for _, e := range errs {
			if e.Err != nil && e.Err != context.DeadlineExceeded {
				return nil, fmt.Errorf("fetch %s[%d]: %w", e.Topic, e.Partition, e.Err)
			}
		}
	}

	var out []Message
	fetches.EachRecord(func(r *kgo.Record) {
		headers := make([]Header, len(r.Headers))
		for i, h := range r.Headers {
			headers[i] = Header{Key: h.Key, Value: h.Value}
		}
		out = append(out, Message{
			Topic:     r.Topic,
			Partition: r.Partition,
			Offset:    r.Offset,
			Timestamp: r.Timestamp,
			Key:       r.Key,
			Value:     r.Value,
			Headers:   headers,
		})
	})
	return out, nil
}

func (c *FranzClient) EventsPoll(ctx context.Context, timeout time.Duration) error {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	c.client.PollFetches(pollCtx).Errors() // events-poll equivalent: drains callbacks without blocking on data
	return nil
}

func (c *FranzClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

func (c *FranzClient) Pause(topic string, partition int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client.PauseFetchPartitions(map[string][]int32{topic: {partition}})
}

func (c *FranzClient) Resume(topic string, partition int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client.ResumeFetchPartitions(map[string][]int32{topic: {partition}})
}

func (c *FranzClient) Seek(topic string, partition int32, offset int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client.SetOffsets(map[string]map[int32]kgo.EpochOffset{
		topic: {partition: kgo.EpochOffset{Epoch: -1, Offset: offset}},
	})
}

// CommitOffsets commits every offset marked via MarkAsConsumed since the
// last commit, grounded on the teacher's per-partition CommitRecords call
// in 242617-core/kafka/consumer/consumer.go.
func (c *FranzClient) CommitOffsets(ctx context.Context) error {
	c.mu.Lock()
	pending := c.marks
	c.marks = map[TP]int64{}
	c.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(pending))
	for tp, offset := range pending {
		records = append(records, &kgo.Record{Topic: tp.Topic, Partition: tp.Partition, Offset: offset - 1})
	}
	return c.client.CommitRecords(ctx, records...)
}

// MarkAsConsumed records the next-fetch offset for a topic-partition; the
// next CommitOffsets call persists it. Only the highest offset per
// topic-partition is kept, matching mark-as-consumed semantics where a
// later mark supersedes an earlier one in the same batch.
func (c *FranzClient) MarkAsConsumed(topic string, partition int32, offset int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tp := TP{Topic: topic, Partition: partition}
	if cur, ok := c.marks[tp]; !ok || offset > cur {
		c.marks[tp] = offset
	}
}

func (c *FranzClient) QueryWatermarkOffsets(ctx context.Context, topic string, partition int32) (int64, int64, error) {
	low, err := c.client.ListStartOffsets(ctx, topic)
	if err != nil {
		return 0, 0, fmt.Errorf("list start offsets: %w", err)
	}
	high, err := c.client.ListEndOffsets(ctx, topic)
	if err != nil {
		return 0, 0, fmt.Errorf("list end offsets: %w", err)
	}
	lo, hi := int64(0), int64(0)
	low.Each(func(o kgo.ListedOffset) {
		if o.Partition == partition {
			lo = o.Offset
		}
	})
	high.Each(func(o kgo.ListedOffset) {
		if o.Partition == partition {
			hi = o.Offset
		}
	})
	return lo, hi, nil
}

func (c *FranzClient) OffsetsForTimes(ctx context.Context, request map[TP]time.Time, timeout time.Duration) (map[TP]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	byTopic := map[string]map[int32]int64{}
	for tp, ts := range request {
		if byTopic[tp.Topic] == nil {
			byTopic[tp.Topic] = map[int32]int64{}
		}
		byTopic[tp.Topic][tp.Partition] = ts.UnixMilli()
	}

	out := map[TP]int64{}
	for topic, partitions := range byTopic {
		listed, err := c.client.ListOffsetsAfterMilli(ctx, minMillis(partitions), topic)
		if err != nil {
			return nil, fmt.Errorf("offsets for times %s: %w", topic, err)
		}
		listed.Each(func(o kgo.ListedOffset) {
			if _, wanted := partitions[o.Partition]; wanted {
				out[TP{Topic: topic, Partition: o.Partition}] = o.Offset
			}
		})
	}
	return out, nil
}

func minMillis(m map[int32]int64) int64 {
	first := true
	var min int64
	for _, v := range m {
		if first || v < min {
			min = v
			first = false
		}
	}
	return min
}

func (c *FranzClient) Produce(ctx context.Context, msg Message, sync bool) error {
	record := &kgo.Record{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Key:       msg.Key,
		Value:     msg.Value,
	}
	if len(msg.Headers) > 0 {
		record.Headers = make([]kgo.RecordHeader, len(msg.Headers))
		for i, h := range msg.Headers {
			record.Headers[i] = kgo.RecordHeader{Key: h.Key, Value: h.Value}
		}
	}

	if sync {
		c.mu.Lock()
		defer c.mu.Unlock()
		res := c.client.ProduceSync(ctx, record)
		return res.FirstErr()
	}

	c.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			c.log.Error(ctx, "dlq produce failed", "topic", r.Topic, "err", err)
		}
	})
	return nil
}

func (c *FranzClient) RebalanceManager() RebalanceManager { return c.rebal }

func (c *FranzClient) Stop(ctx context.Context) error {
	c.client.LeaveGroup()
	c.client.Close()
	return nil
}

// Reset is called by the Listener's restart after a fatal error (spec §4.1
// restart). It does not recreate the underlying kgo.Client connection; it
// only clears cached rebalance state so stale revocations aren't replayed.
func (c *FranzClient) Reset(ctx context.Context) error {
	c.rebal.setRevoked(map[string][]int32{})
	return nil
}

type franzRebalanceManager struct {
	mu      sync.Mutex
	revoked map[string][]int32
}

func (r *franzRebalanceManager) setRevoked(rev map[string][]int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked = rev
}

func (r *franzRebalanceManager) RevokedPartitions() map[string][]int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]int32, len(r.revoked))
	for k, v := range r.revoked {
		out[k] = v
	}
	return out
}
