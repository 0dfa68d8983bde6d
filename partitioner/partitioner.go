// Package partitioner splits a topic-partition's batch into virtual
// partition groups, preserving broker order within each group_id
// (spec §3 "VirtualPartition group_id", §4.1 step 5).
package partitioner

import (
	"hash/fnv"

	"github.com/242617/karacore/kafkacore"
)

// KeyFunc derives a virtual-partitioning key from a message, e.g. hashing
// the Kafka key. Supplied per-topic via virtual_partitions.partitioner
// (spec §6 Configuration surface).
type KeyFunc func(kafkacore.Message) []byte

// Group is one virtual-partition's ordered sub-batch.
type Group struct {
	ID       int
	Messages []kafkacore.Message
}

// Partitioner splits a batch into Groups. Disabled VP is the identity
// partitioner: a single group containing the whole batch in order.
type Partitioner struct {
	keyFunc     KeyFunc
	maxPartitions int
}

// New returns a Partitioner hashing each message with keyFunc into one of
// maxPartitions groups. If keyFunc is nil, virtual partitioning is
// disabled and Call returns the identity split.
func New(keyFunc KeyFunc, maxPartitions int) *Partitioner {
	return &Partitioner{keyFunc: keyFunc, maxPartitions: maxPartitions}
}

// Call splits messages into virtual-partition Groups. Within a Group,
// messages retain their relative broker order from the input slice.
func (p *Partitioner) Call(messages []kafkacore.Message) []Group {
	if p.keyFunc == nil || p.maxPartitions <= 1 {
		return []Group{{ID: 0, Messages: messages}}
	}

	order := make([]int, 0, p.maxPartitions)
	byID := map[int][]kafkacore.Message{}
	for _, m := range messages {
		id := p.groupID(m)
		if _, ok := byID[id]; !ok {
			order = append(order, id)
		}
		byID[id] = append(byID[id], m)
	}

	groups := make([]Group, 0, len(order))
	for _, id := range order {
		groups = append(groups, Group{ID: id, Messages: byID[id]})
	}
	return groups
}

func (p *Partitioner) groupID(m kafkacore.Message) int {
	h := fnv.New32a()
	h.Write(p.keyFunc(m))
	return int(h.Sum32() % uint32(p.maxPartitions))
}
