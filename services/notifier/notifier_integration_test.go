//go:build integration

package notifier

import (
	"context"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcKafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/kafka"
	"github.com/ramiqadoumi/go-resume-flow/internal/notify"
	"github.com/ramiqadoumi/go-resume-flow/internal/store"
	"github.com/ramiqadoumi/go-resume-flow/internal/tracker"
)

// TestE2E_CompletedTaskIsNotified drives a task to COMPLETED through the
// tracker, whose transitions are published to Kafka, and waits for the
// notifier to hand the event to a sink.
func TestE2E_CompletedTaskIsNotified(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcKafka.Run(ctx, "confluentinc/confluent-local:7.7.1",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Kafka Server started").WithStartupTimeout(90*time.Second),
		),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })
	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)

	conn, err := kafkago.DialContext(ctx, "tcp", brokers[0])
	require.NoError(t, err)
	require.NoError(t, conn.CreateTopics(kafkago.TopicConfig{Topic: kafka.TopicTaskEvents, NumPartitions: 1, ReplicationFactor: 1}))
	_ = conn.Close()

	producer := kafka.NewProducer(brokers)
	t.Cleanup(func() { _ = producer.Close() })
	tr := tracker.New(store.NewMemory(),
		tracker.WithLogger(discardLogger),
		tracker.WithRecorder(kafka.NewEventPublisher(producer)),
	)
	t.Cleanup(tr.Close)

	sink := &fakeSink{name: "test"}
	reg := notify.NewRegistry()
	reg.Register(sink)
	consumer := kafka.NewConsumer(brokers, kafka.TopicTaskEvents, fmt.Sprintf("e2e-%d", time.Now().UnixNano()), discardLogger)
	t.Cleanup(func() { _ = consumer.Close() })
	go func() { _ = NewNotifier(consumer, reg, nil, discardLogger).Run(ctx) }()

	// The group starts at the newest offset, so keep finishing tasks until
	// one lands after it has joined.
	var ids []string
	finish := func() error {
		task, err := tr.Create(ctx, tracker.CreateRequest{JobID: "job-1", Title: "Go Developer", Company: "Acme"})
		if err != nil {
			return err
		}
		ids = append(ids, task.ID)
		if _, err := tr.UpdateStatus(ctx, task.ID, domain.StatusProcessing, tracker.Update{}); err != nil {
			return err
		}
		_, err = tr.Complete(ctx, task.ID, nil, nil)
		return err
	}
	deadline := time.Now().Add(90 * time.Second)
	for sink.count() == 0 {
		require.NoError(t, finish())
		require.True(t, time.Now().Before(deadline), "timed out waiting for a notification")
		time.Sleep(time.Second)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Subset(t, ids, sink.seen, "only completed tasks are notified, once per transition")
}
