// Package consumerkit wires Listener, its buffers, scheduler and Strategy
// into one runnable subscription group, and groups of those into a Runtime
// the teacher's application.Application can run (spec §6 Configuration
// surface: "Per process"/"Per topic").
package consumerkit

import "time"

// DispatchMethod is the YAML-facing mirror of strategy.DispatchMethod
// (spec §6: dead_letter_queue.dispatch_method enum{produce_async,
// produce_sync}).
type DispatchMethod string

const (
	DispatchAsync DispatchMethod = "produce_async"
	DispatchSync  DispatchMethod = "produce_sync"
)

// DeadLetterQueueConfig is the per-topic DLQ surface.
type DeadLetterQueueConfig struct {
	Topic          string         `yaml:"topic"`
	MaxRetries     int            `yaml:"max_retries" default:"3"`
	DispatchMethod DispatchMethod `yaml:"dispatch_method" default:"produce_async"`
}

// VirtualPartitionsConfig is the per-topic VP surface. The partitioner
// function itself is code, supplied via a TopicBinding, not YAML.
type VirtualPartitionsConfig struct {
	Enabled       bool `yaml:"enabled"`
	MaxPartitions int  `yaml:"max_partitions" default:"1"`
}

// PeriodicsConfig is the per-topic periodics surface (spec §6: "periodics:
// {interval_ms: int}").
type PeriodicsConfig struct {
	Enabled    bool `yaml:"enabled"`
	IntervalMS int  `yaml:"interval_ms" default:"30000"`
}

// Interval returns the configured periodics window as a time.Duration.
func (p PeriodicsConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMS) * time.Millisecond
}

// TopicConfig is one topic's full feature tuple (spec §6 "Per topic").
type TopicConfig struct {
	Topic                  string                  `yaml:"topic"`
	ActiveJob              bool                    `yaml:"active_job"`
	ManualOffsetManagement bool                    `yaml:"manual_offset_management"`
	LongRunningJob         bool                    `yaml:"long_running_job"`
	DeadLetterQueue        DeadLetterQueueConfig   `yaml:"dead_letter_queue"`
	VirtualPartitions      VirtualPartitionsConfig `yaml:"virtual_partitions"`
	Periodics              PeriodicsConfig         `yaml:"periodics"`
}

// PauseConfig is the process-wide backoff surface (spec §6 "Per process").
type PauseConfig struct {
	Timeout                time.Duration `yaml:"timeout" default:"1s"`
	MaxTimeout              time.Duration `yaml:"max_timeout" default:"30s"`
	WithExponentialBackoff  bool          `yaml:"with_exponential_backoff" default:"true"`
}

// Config is one subscription group's process-level configuration.
type Config struct {
	GroupID     string        `yaml:"group_id"`
	Brokers     []string      `yaml:"brokers"`
	Concurrency int           `yaml:"concurrency" default:"4"`
	MaxWaitTime time.Duration `yaml:"max_wait_time" default:"500ms"`
	MaxMessages int           `yaml:"max_messages" default:"1000"`
	Pause       PauseConfig   `yaml:"pause"`
	Topics      []TopicConfig `yaml:"topics"`
}
