package tplbuilder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/242617/karacore/kafkacore"
	"github.com/242617/karacore/mocks"
)

func TestBuild_ListPartitions(t *testing.T) {
	client := mocks.NewClient(t)

	got, err := Build(context.Background(), client, map[string]PartitionsSpec{
		"orders": {List: []int32{0, 1, 2}},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []TPO{
		{Topic: "orders", Partition: 0, Offset: 0},
		{Topic: "orders", Partition: 1, Offset: 0},
		{Topic: "orders", Partition: 2, Offset: 0},
	}, got)
}

func TestBuild_NonNegativeOffset(t *testing.T) {
	client := mocks.NewClient(t)

	got, err := Build(context.Background(), client, map[string]PartitionsSpec{
		"orders": {Offsets: map[int32]OffsetRequest{0: {Offset: 42}}},
	})
	require.NoError(t, err)
	require.Equal(t, []TPO{{Topic: "orders", Partition: 0, Offset: 42}}, got)
}

// scenario 6: Iterator with partitions {0: -5}, low=0, high=100 -> starts at 95.
func TestBuild_NegativeOffset_LastN(t *testing.T) {
	client := mocks.NewClient(t)
	client.On("QueryWatermarkOffsets", mock.Anything, "orders", int32(0)).Return(int64(0), int64(100), nil)

	got, err := Build(context.Background(), client, map[string]PartitionsSpec{
		"orders": {Offsets: map[int32]OffsetRequest{0: {Offset: -5}}},
	})
	require.NoError(t, err)
	require.Equal(t, []TPO{{Topic: "orders", Partition: 0, Offset: 95}}, got)
}

// scenario 6 continued: if low=98, clamp to low instead of going negative.
func TestBuild_NegativeOffset_ClampedToLowWatermark(t *testing.T) {
	client := mocks.NewClient(t)
	client.On("QueryWatermarkOffsets", mock.Anything, "orders", int32(0)).Return(int64(98), int64(100), nil)

	got, err := Build(context.Background(), client, map[string]PartitionsSpec{
		"orders": {Offsets: map[int32]OffsetRequest{0: {Offset: -5}}},
	})
	require.NoError(t, err)
	require.Equal(t, []TPO{{Topic: "orders", Partition: 0, Offset: 98}}, got)
}

func TestBuild_TimeBasedOffset_BatchedAcrossTopics(t *testing.T) {
	client := mocks.NewClient(t)
	ts := time.Unix(1_700_000_000, 0)

	client.On("OffsetsForTimes", mock.Anything, mock.MatchedBy(func(req map[kafkacore.TP]time.Time) bool {
		return len(req) == 2
	}), OffsetsForTimesTimeout).Return(map[kafkacore.TP]int64{
		{Topic: "orders", Partition: 0}:  50,
		{Topic: "payments", Partition: 1}: 70,
	}, nil)

	got, err := Build(context.Background(), client, map[string]PartitionsSpec{
		"orders":   {Offsets: map[int32]OffsetRequest{0: {At: ts}}},
		"payments": {Offsets: map[int32]OffsetRequest{1: {At: ts}}},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []TPO{
		{Topic: "orders", Partition: 0, Offset: 50},
		{Topic: "payments", Partition: 1, Offset: 70},
	}, got)
}

func TestBuild_TimeBasedOffset_MissingResultFails(t *testing.T) {
	client := mocks.NewClient(t)
	ts := time.Unix(1_700_000_000, 0)

	client.On("OffsetsForTimes", mock.Anything, mock.Anything, OffsetsForTimesTimeout).
		Return(map[kafkacore.TP]int64{}, nil)

	_, err := Build(context.Background(), client, map[string]PartitionsSpec{
		"orders": {Offsets: map[int32]OffsetRequest{0: {At: ts}}},
	})
	require.Error(t, err)

	var invalidErr *kafkacore.InvalidTimeBasedOffsetError
	require.ErrorAs(t, err, &invalidErr)
	require.Equal(t, "orders", invalidErr.Topic)
	require.Equal(t, int32(0), invalidErr.Partition)
}

func TestBuild_WatermarkQueryError(t *testing.T) {
	client := mocks.NewClient(t)
	client.On("QueryWatermarkOffsets", mock.Anything, "orders", int32(0)).
		Return(int64(0), int64(0), errors.New("boom"))

	_, err := Build(context.Background(), client, map[string]PartitionsSpec{
		"orders": {Offsets: map[int32]OffsetRequest{0: {Offset: -1}}},
	})
	require.Error(t, err)
}
