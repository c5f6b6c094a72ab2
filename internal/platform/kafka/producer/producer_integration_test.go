//go:build integration

package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"vendorwatch/internal/platform/kafka/producer"
	"vendorwatch/pkg/testutil/containers"
)

func TestProducerPublishes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	redpanda := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	p, err := producer.New(producer.Config{Brokers: redpanda.Brokers, ClientID: "vendorwatch-test"})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Health(ctx))
	require.NoError(t, p.EnsureTopic(ctx, "vendorwatch.audit.test", 1, 1))
	// second call must tolerate the existing topic
	require.NoError(t, p.EnsureTopic(ctx, "vendorwatch.audit.test", 1, 1))

	require.NoError(t, p.Publish(ctx, "vendorwatch.audit.test", []byte("vendor-1"), []byte(`{"action":"CRON_JOB_COMPLETED"}`)))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics("vendorwatch.audit.test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "vendor-1", string(records[0].Key))
	require.JSONEq(t, `{"action":"CRON_JOB_COMPLETED"}`, string(records[0].Value))
}

func TestNewWithoutBrokers(t *testing.T) {
	p, err := producer.New(producer.Config{})
	require.NoError(t, err)
	require.Nil(t, p)
}
