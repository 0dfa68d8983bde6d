// Package filtering defines the post-consume message filter hook used by
// Strategy's handle_post_filtering step (spec §4.3 point 2).
package filtering

import (
	"time"

	"github.com/242617/karacore/kafkacore"
)

// Filter inspects a successfully-consumed batch and may drop tail
// messages that should be re-delivered later (e.g. messages arriving
// after a cursor's time window closed).
type Filter interface {
	// Apply returns the kept prefix of messages. len(kept) < len(messages)
	// means the tail was filtered; the caller seeks back to the first
	// dropped message's offset and pauses for CursorTimeout.
	Apply(messages []kafkacore.Message) []kafkacore.Message
	// CursorTimeout is how long to pause after a tail filter before
	// re-fetching the filtered-out range.
	CursorTimeout() time.Duration
}

// Factory builds a fresh Filter, invoked per topic per the Strategy's
// configuration (spec §6: "filtering: {factory: fn -> Filter}").
type Factory func() Filter

// Result is the outcome of applying a Filter to one batch.
type Result struct {
	Filtered      bool
	FirstDropped  kafkacore.Message
	CursorTimeout time.Duration
}

// Run applies f to messages and reports whether the tail was filtered and,
// if so, the first dropped message to seek back to.
func Run(f Filter, messages []kafkacore.Message) Result {
	kept := f.Apply(messages)
	if len(kept) >= len(messages) {
		return Result{}
	}
	return Result{Filtered: true, FirstDropped: messages[len(kept)], CursorTimeout: f.CursorTimeout()}
}
