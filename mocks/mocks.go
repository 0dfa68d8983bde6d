// Package mocks holds hand-maintained testify/mock doubles for this
// module's collaborator interfaces, in the same NewXxx(t)/On(...).Return(...)
// shape mockery would generate for application.Component, protocol.Lifecycle,
// protocol.Logger and kafkacore.Client.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/242617/karacore/kafkacore"
)

type tHelper interface {
	Helper()
}

// Lifecycle mocks protocol.Lifecycle.
type Lifecycle struct{ mock.Mock }

func NewLifecycle(t interface {
	mock.TestingT
	Cleanup(func())
}) *Lifecycle {
	m := &Lifecycle{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Lifecycle) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Lifecycle) Stop(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Component mocks application.Component (fmt.Stringer + protocol.Lifecycle).
type Component struct{ mock.Mock }

func NewComponent(t interface {
	mock.TestingT
	Cleanup(func())
}) *Component {
	m := &Component{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Component) String() string {
	args := m.Called()
	return args.String(0)
}

func (m *Component) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Component) Stop(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Logger mocks protocol.Logger.
type Logger struct{ mock.Mock }

func NewLogger(t interface {
	mock.TestingT
	Cleanup(func())
}) *Logger {
	m := &Logger{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Logger) Debug(ctx context.Context, msg string, args ...any) {
	m.Called(append([]any{ctx, msg}, args...)...)
}

func (m *Logger) Info(ctx context.Context, msg string, args ...any) {
	m.Called(append([]any{ctx, msg}, args...)...)
}

func (m *Logger) Warn(ctx context.Context, msg string, args ...any) {
	m.Called(append([]any{ctx, msg}, args...)...)
}

func (m *Logger) Error(ctx context.Context, msg string, args ...any) {
	m.Called(append([]any{ctx, msg}, args...)...)
}

// Client mocks kafkacore.Client.
type Client struct{ mock.Mock }

func NewClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *Client {
	m := &Client{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Client) BatchPoll(ctx context.Context, maxWait time.Duration) ([]kafkacore.Message, error) {
	args := m.Called(ctx, maxWait)
	msgs, _ := args.Get(0).([]kafkacore.Message)
	return msgs, args.Error(1)
}

func (m *Client) EventsPoll(ctx context.Context, timeout time.Duration) error {
	args := m.Called(ctx, timeout)
	return args.Error(0)
}

func (m *Client) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Client) Pause(topic string, partition int32) { m.Called(topic, partition) }

func (m *Client) Resume(topic string, partition int32) { m.Called(topic, partition) }

func (m *Client) Seek(topic string, partition int32, offset int64) {
	m.Called(topic, partition, offset)
}

func (m *Client) CommitOffsets(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Client) MarkAsConsumed(topic string, partition int32, offset int64) {
	m.Called(topic, partition, offset)
}

func (m *Client) QueryWatermarkOffsets(ctx context.Context, topic string, partition int32) (int64, int64, error) {
	args := m.Called(ctx, topic, partition)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *Client) OffsetsForTimes(ctx context.Context, request map[kafkacore.TP]time.Time, timeout time.Duration) (map[kafkacore.TP]int64, error) {
	args := m.Called(ctx, request, timeout)
	result, _ := args.Get(0).(map[kafkacore.TP]int64)
	return result, args.Error(1)
}

func (m *Client) Produce(ctx context.Context, msg kafkacore.Message, sync bool) error {
	args := m.Called(ctx, msg, sync)
	return args.Error(0)
}

func (m *Client) RebalanceManager() kafkacore.RebalanceManager {
	args := m.Called()
	rm, _ := args.Get(0).(kafkacore.RebalanceManager)
	return rm
}

func (m *Client) Stop(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Client) Reset(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
