package kafkacore

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed indicates an operation on a closed client.
	ErrClosed = errors.New("kafka client is closed")

	// ErrNoBrokers indicates missing broker configuration.
	ErrNoBrokers = errors.New("no brokers provided")

	// ErrNoTopics indicates missing topic configuration.
	ErrNoTopics = errors.New("no topics provided")

	// ErrNoGroupID indicates missing consumer group ID.
	ErrNoGroupID = errors.New("no group ID provided")
)

// InvalidConfigurationError is raised synchronously at setup time when a
// topic or process configuration cannot be turned into a running strategy,
// e.g. an unknown dead_letter_queue.dispatch_method. Fatal to process boot.
type InvalidConfigurationError struct {
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return "invalid configuration: " + e.Reason
}

// InvalidTimeBasedOffsetError is raised by tplbuilder when offsets_for_times
// does not return a result for every requested timestamp partition.
type InvalidTimeBasedOffsetError struct {
	Topic     string
	Partition int32
}

func (e *InvalidTimeBasedOffsetError) Error() string {
	return fmt.Sprintf("invalid time based offset for %s[%d]", e.Topic, e.Partition)
}

// InvalidLicenseToken and ExpiredLicenseToken are part of the external error
// taxonomy (spec §6); this core never validates licenses itself but defines
// the sentinels so callers can surface them with the same discriminator
// naming as other boot-time failures.
var (
	InvalidLicenseToken = errors.New("invalid license token")
	ExpiredLicenseToken = errors.New("expired license token")
)
