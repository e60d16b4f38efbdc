//go:build integration

package kafka_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
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
)

func startBroker(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()
	ctr, err := tcKafka.Run(ctx, "confluentinc/confluent-local:7.7.1",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Kafka Server started").WithStartupTimeout(90*time.Second),
		),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	return brokers
}

// createTopic creates topic up front; auto-creation on first publish can
// race and fail with UNKNOWN_TOPIC_OR_PARTITION.
func createTopic(t *testing.T, brokers []string, topic string) {
	t.Helper()
	conn, err := kafkago.DialContext(context.Background(), "tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

// publishUntil publishes value every interval until done is closed. New
// consumer groups start at the newest offset, so a single publish can land
// before the group has joined.
func publishUntil(ctx context.Context, t *testing.T, p kafka.Producer, topic string, value []byte, done <-chan struct{}) {
	t.Helper()
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		require.NoError(t, p.Publish(ctx, topic, "key-1", value))
		select {
		case <-done:
			return
		case <-ctx.Done():
			t.Fatal("timed out waiting for consumer")
		case <-ticker.C:
		}
	}
}

func TestKafka_Integration(t *testing.T) {
	brokers := startBroker(t)
	producer := kafka.NewProducer(brokers)
	t.Cleanup(func() { _ = producer.Close() })

	t.Run("transition round trip", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		createTopic(t, brokers, kafka.TopicTaskEvents)

		consumer := kafka.NewConsumer(brokers, kafka.TopicTaskEvents, "group-roundtrip", slog.Default())
		t.Cleanup(func() { _ = consumer.Close() })

		got := make(chan *domain.Transition, 1)
		seen := make(chan struct{})
		var once sync.Once
		go func() {
			_ = consumer.Subscribe(ctx, func(_ context.Context, m kafka.Message) error {
				tr, err := kafka.DecodeTransition(m)
				if err != nil {
					return err
				}
				once.Do(func() {
					got <- tr
					close(seen)
				})
				return nil
			})
		}()

		pub := kafka.NewEventPublisher(producer)
		go func() {
			ticker := time.NewTicker(500 * time.Millisecond)
			defer ticker.Stop()
			for {
				_ = pub.RecordTransition(ctx, &domain.Transition{TaskID: "t1", JobID: "j1", From: domain.StatusProcessing, To: domain.StatusCompleted})
				select {
				case <-seen:
					return
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()

		select {
		case tr := <-got:
			assert.Equal(t, "t1", tr.TaskID)
			assert.Equal(t, domain.StatusCompleted, tr.To)
		case <-ctx.Done():
			t.Fatal("timed out waiting for transition event")
		}
	})

	// An error from the handler leaves the offset uncommitted, so the next
	// consumer of the group gets the message again.
	t.Run("offset not committed on error", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()
		topic := fmt.Sprintf("test-no-commit-%d", time.Now().UnixNano())
		groupID := fmt.Sprintf("group-no-commit-%d", time.Now().UnixNano())
		createTopic(t, brokers, topic)

		first := kafka.NewConsumer(brokers, topic, groupID, slog.Default())
		warm := make(chan struct{})
		failed := make(chan struct{})
		firstCtx, stopFirst := context.WithCancel(ctx)
		go func() {
			var once sync.Once
			_ = first.Subscribe(firstCtx, func(_ context.Context, m kafka.Message) error {
				switch string(m.Value) {
				case "warmup":
					once.Do(func() { close(warm) })
					return nil
				case "payload":
					close(failed)
					return errors.New("intentional failure")
				}
				return nil
			})
		}()
		publishUntil(ctx, t, producer, topic, []byte("warmup"), warm)
		require.NoError(t, producer.Publish(ctx, topic, "key-1", []byte("payload")))

		select {
		case <-failed:
		case <-ctx.Done():
			t.Fatal("first consumer never saw the payload")
		}
		time.Sleep(300 * time.Millisecond)
		stopFirst()
		_ = first.Close()

		second := kafka.NewConsumer(brokers, topic, groupID, slog.Default())
		t.Cleanup(func() { _ = second.Close() })
		redelivered := make(chan struct{})
		secondCtx, stopSecond := context.WithCancel(ctx)
		defer stopSecond()
		go func() {
			_ = second.Subscribe(secondCtx, func(_ context.Context, m kafka.Message) error {
				if string(m.Value) == "payload" {
					close(redelivered)
					stopSecond()
				}
				return nil
			})
		}()

		select {
		case <-redelivered:
		case <-ctx.Done():
			t.Fatal("payload was not redelivered; the offset was committed")
		}
	})
}
