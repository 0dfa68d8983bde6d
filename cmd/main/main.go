package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/242617/karacore/application"
	"github.com/242617/karacore/auditstore"
	"github.com/242617/karacore/config"
	"github.com/242617/karacore/config/source/file"
	"github.com/242617/karacore/consumerapi"
	"github.com/242617/karacore/consumerkit"
	"github.com/242617/karacore/kafkacore"
	"github.com/242617/karacore/logger"
	"github.com/242617/karacore/pgrepo"
)

func main() {
	log, err := logger.New(
		logger.WithLevel(logger.LevelDebug),
		logger.WithDevelopmentConfig(),
	)
	die(err)

	ctx := context.Background()

	start := time.Now()
	log.Debug(ctx, "start")
	defer func() { log.Debug(ctx, "stop", "in", time.Since(start)) }()

	var cfg struct {
		DB     pgrepo.Config      `yaml:"db"`
		Orders consumerkit.Config `yaml:"orders_consumer"`
	}
	die(config.New().With(file.YAML("config.yaml")).Scan(&cfg))

	db, err := pgrepo.New(pgrepo.WithLogger(log.New("pgrepo")), pgrepo.WithConfig(cfg.DB))
	die(err)
	audit := auditstore.New(db)

	client, err := kafkacore.NewFranzClient(
		log.New("kafkacore"),
		cfg.Orders.Brokers,
		topicsOf(cfg.Orders),
		cfg.Orders.GroupID,
		[]func(*kafkacore.FranzClient){kafkacore.WithMaxMessages(cfg.Orders.MaxMessages)},
	)
	die(err)

	ordersGroup, err := consumerkit.NewGroup(cfg.Orders, []consumerkit.TopicBinding{
		{Topic: "orders", ConsumerFactory: func() consumerapi.Consumer { return &loggingConsumer{log: log.New("orders")} }},
	}, client, audit, log.New("orders-group"))
	die(err)

	runtime_, err := consumerkit.NewRuntime("orders-runtime", log, []*consumerkit.Group{ordersGroup})
	die(err)

	app, err := application.New(
		application.WithLogger(log.New("application")),
		application.WithName("main"),
		application.WithComponents(
			application.NewLifecycleComponent("pgrepo", db),
			application.NewLifecycleComponent("orders-runtime", runtimeComponent{runtime_}),
		),
	)
	die(err)

	die(app.Run(ctx))
}

// runtimeComponent adapts consumerkit.Runtime's blocking Run to the
// Start/Stop shape application.Component expects.
type runtimeComponent struct{ rt *consumerkit.Runtime }

func (r runtimeComponent) Start(ctx context.Context) error { go r.rt.Run(ctx); return nil }
func (r runtimeComponent) Stop(context.Context) error       { return nil }

func topicsOf(cfg consumerkit.Config) []string {
	topics := make([]string, len(cfg.Topics))
	for i, t := range cfg.Topics {
		topics[i] = t.Topic
	}
	return topics
}

// loggingConsumer is a minimal example user consumer: logs every batch and
// checkpoints it. Real consumers are supplied by the service embedding this
// module.
type loggingConsumer struct {
	log interface {
		Info(ctx context.Context, msg string, args ...any)
	}
}

func (c *loggingConsumer) OnBeforeConsume(ctx context.Context, dc *consumerapi.DeliveryContext, messages []kafkacore.Message) {
}

func (c *loggingConsumer) Consume(ctx context.Context, dc *consumerapi.DeliveryContext, messages []kafkacore.Message) error {
	for _, m := range messages {
		c.log.Info(ctx, "incoming message", "key", string(m.Key), "value", string(m.Value))
		dc.MarkAsConsumed(m)
	}
	return nil
}

func (c *loggingConsumer) OnAfterConsume(ctx context.Context, dc *consumerapi.DeliveryContext, messages []kafkacore.Message) {
}

func (c *loggingConsumer) OnIdle(ctx context.Context, dc *consumerapi.DeliveryContext)     {}
func (c *loggingConsumer) OnPeriodic(ctx context.Context, dc *consumerapi.DeliveryContext) {}
func (c *loggingConsumer) OnRevoked(ctx context.Context, dc *consumerapi.DeliveryContext)  {}
func (c *loggingConsumer) OnShutdown(ctx context.Context, dc *consumerapi.DeliveryContext) {}

func die(args ...any) {
	if len(args) == 0 {
		return
	}
	if err, ok := args[len(args)-1].(error); ok && err != nil {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("%s:%d: %s", file, line, err.Error())
		os.Exit(1)
	}
}
