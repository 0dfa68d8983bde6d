package consumerkit

import (
	"context"

	"github.com/pkg/errors"

	"github.com/242617/karacore/auditstore"
	"github.com/242617/karacore/consumerapi"
	"github.com/242617/karacore/coordinator"
	"github.com/242617/karacore/filtering"
	"github.com/242617/karacore/kafkacore"
	"github.com/242617/karacore/listener"
	"github.com/242617/karacore/partitioner"
	"github.com/242617/karacore/pausetracker"
	"github.com/242617/karacore/protocol"
	"github.com/242617/karacore/strategy"
)

// TopicBinding supplies the code (functions, factories) a TopicConfig
// cannot express in YAML: the user consumer, the virtual-partitioning key
// function, the filter factory, and the DLQ dispatch predicate.
type TopicBinding struct {
	Topic             string
	ConsumerFactory   consumerapi.Factory
	PartitionKey      partitioner.KeyFunc
	Filtering         filtering.Factory
	DispatchPredicate func(kafkacore.Message) bool
}

// Group runs one subscription group: a Client, a Listener, and every
// topic's Strategy, as a single protocol.Lifecycle unit (spec §3
// "Subscription Group").
type Group struct {
	name     string
	listener *listener.Listener
	client   kafkacore.Client
}

// NewGroup validates cfg against bindings and assembles a Group. Unknown
// dispatch_method values raise kafkacore.InvalidConfigurationError
// synchronously, before any broker connection is attempted (spec §7 class
// 3, scenario 5: "raises InvalidConfigurationError before boot").
func NewGroup(cfg Config, bindings []TopicBinding, client kafkacore.Client, audit *auditstore.Store, log protocol.Logger) (*Group, error) {
	if cfg.GroupID == "" {
		return nil, errors.New("consumerkit: empty group_id")
	}
	if log == nil {
		log = protocol.NopLogger{}
	}

	byTopic := map[string]TopicBinding{}
	for _, b := range bindings {
		byTopic[b.Topic] = b
	}

	topics := make([]listener.TopicSpec, 0, len(cfg.Topics))
	for _, tc := range cfg.Topics {
		binding, ok := byTopic[tc.Topic]
		if !ok {
			return nil, &kafkacore.InvalidConfigurationError{Reason: "topic " + tc.Topic + ": no binding supplied"}
		}
		if binding.ConsumerFactory == nil {
			return nil, &kafkacore.InvalidConfigurationError{Reason: "topic " + tc.Topic + ": nil consumer factory"}
		}

		dispatchMethod, err := resolveDispatchMethod(tc.DeadLetterQueue.DispatchMethod)
		if err != nil {
			return nil, &kafkacore.InvalidConfigurationError{Reason: "topic " + tc.Topic + ": " + err.Error()}
		}

		strategyCfg := strategy.TopicConfig{
			ActiveJob:              tc.ActiveJob,
			ManualOffsetManagement: tc.ManualOffsetManagement,
			LongRunningJob:         tc.LongRunningJob,
			DeadLetterQueue: strategy.DeadLetterQueue{
				Topic:             tc.DeadLetterQueue.Topic,
				MaxRetries:        tc.DeadLetterQueue.MaxRetries,
				DispatchMethod:    dispatchMethod,
				DispatchPredicate: binding.DispatchPredicate,
			},
			Filtering: binding.Filtering,
			VirtualPartitions: strategy.VirtualPartitions{
				Enabled:       tc.VirtualPartitions.Enabled,
				MaxPartitions: tc.VirtualPartitions.MaxPartitions,
			},
			PeriodicsInterval: tc.Periodics.Interval(),
		}

		var audSink strategy.AuditSink
		if audit != nil {
			audSink = audit
		}
		s := strategy.New(tc.Topic, strategyCfg, client, log, audSink)

		var virtualPartitioner *partitioner.Partitioner
		if tc.VirtualPartitions.Enabled && binding.PartitionKey != nil {
			virtualPartitioner = partitioner.New(binding.PartitionKey, tc.VirtualPartitions.MaxPartitions)
		}

		topics = append(topics, listener.TopicSpec{
			Topic:           tc.Topic,
			Partitioner:     virtualPartitioner,
			InstallStrategy: func(c *coordinator.Coordinator) { s.Install(c) },
			ConsumerFactory: binding.ConsumerFactory,
			Periodics:       tc.Periodics.Enabled,
			UsageWindow:     tc.Periodics.Interval(),
		})
	}

	l, err := listener.New(listener.Config{
		GroupID:     cfg.GroupID,
		Topics:      topics,
		MaxWait:     cfg.MaxWaitTime,
		Concurrency: cfg.Concurrency,
		Backoff: pausetracker.BackoffConfig{
			Timeout:                cfg.Pause.Timeout,
			MaxTimeout:             cfg.Pause.MaxTimeout,
			WithExponentialBackoff: cfg.Pause.WithExponentialBackoff,
		},
		Log: log,
	}, client)
	if err != nil {
		return nil, errors.Wrap(err, "build listener")
	}

	return &Group{name: cfg.GroupID, listener: l, client: client}, nil
}

func resolveDispatchMethod(m DispatchMethod) (strategy.DispatchMethod, error) {
	switch m {
	case "", DispatchAsync:
		return strategy.DispatchAsync, nil
	case DispatchSync:
		return strategy.DispatchSync, nil
	default:
		return 0, errors.Errorf("unknown dispatch_method %q", m)
	}
}

// String implements application.Component / fmt.Stringer.
func (g *Group) String() string { return g.name }

// Start implements protocol.Lifecycle.
func (g *Group) Start(ctx context.Context) error { return g.listener.Start(ctx) }

// Stop implements protocol.Lifecycle.
func (g *Group) Stop(ctx context.Context) error { return g.listener.Stop(ctx) }
