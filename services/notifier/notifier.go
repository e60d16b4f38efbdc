package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/kafka"
	"github.com/ramiqadoumi/go-resume-flow/internal/notify"
	redisstore "github.com/ramiqadoumi/go-resume-flow/internal/redis"
	"github.com/ramiqadoumi/go-resume-flow/pkg/telemetry"
)

const GroupID = "notifier-group"

// TopicDLQ receives task events no sink could deliver.
const TopicDLQ = "notifications.dlq"

// Notifier consumes task events and tells the user when a task finishes.
type Notifier struct {
	consumer kafka.Consumer
	sinks    *notify.Registry
	limiter  redisstore.RateLimiter // nil = disabled
	dlq      kafka.Producer         // nil = leave failed events uncommitted
	logger   *slog.Logger
}

func NewNotifier(consumer kafka.Consumer, sinks *notify.Registry, limiter redisstore.RateLimiter, logger *slog.Logger) *Notifier {
	return &Notifier{consumer: consumer, sinks: sinks, limiter: limiter, logger: logger}
}

// WithDeadLetter makes events that every sink rejected go to TopicDLQ so the
// consumer can move on.
func (n *Notifier) WithDeadLetter(p kafka.Producer) *Notifier {
	n.dlq = p
	return n
}

// Run blocks until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) error {
	return n.consumer.Subscribe(ctx, n.handle)
}

func (n *Notifier) handle(ctx context.Context, msg kafka.Message) error {
	tr, err := kafka.DecodeTransition(msg)
	if err != nil {
		return err
	}
	if !notify.Notable(tr) {
		return nil
	}

	ctx, span := otel.Tracer("notifier").Start(ctx, "notifier.handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.id", tr.TaskID),
		attribute.String("task.status", string(tr.To)),
	)
	log := n.logger.With(slog.String("task_id", tr.TaskID), slog.String("job_id", tr.JobID))

	// Limit per job so a retry storm on one posting cannot flood the user.
	if n.limiter != nil {
		allowed, err := n.limiter.Allow(ctx, tr.JobID)
		if err != nil {
			log.Error("rate limiter error", slog.String("error", err.Error()))
		} else if !allowed {
			log.Warn("notification rate limit exceeded, dropping", slog.Int("limit", n.limiter.Limit()))
			span.SetStatus(codes.Error, "rate limited")
			telemetry.NotificationsRateLimited.Inc()
			return nil
		}
	}

	err = n.fanOut(ctx, tr, log)
	if err == nil || n.dlq == nil {
		return err
	}
	span.RecordError(err)
	if pErr := n.dlq.Publish(ctx, TopicDLQ, tr.TaskID, msg.Value); pErr != nil {
		log.Error("failed to publish to DLQ", slog.String("error", pErr.Error()))
		return err
	}
	telemetry.NotificationsDeadLettered.Inc()
	log.Warn("every sink failed; event moved to DLQ", slog.String("error", err.Error()))
	return nil
}

// fanOut notifies every sink concurrently. It fails only when every sink
// failed, leaving the offset uncommitted.
func (n *Notifier) fanOut(ctx context.Context, tr *domain.Transition, log *slog.Logger) error {
	sinks := n.sinks.All()
	if len(sinks) == 0 {
		return nil
	}

	errs := make([]error, len(sinks))
	var wg sync.WaitGroup
	for i, s := range sinks {
		wg.Add(1)
		go func(i int, s notify.Sink) {
			defer wg.Done()
			if err := s.Notify(ctx, tr); err != nil {
				errs[i] = fmt.Errorf("%s: %w", s.Name(), err)
				telemetry.NotificationsSent.WithLabelValues(s.Name(), "error").Inc()
				log.Warn("sink failed", slog.String("sink", s.Name()), slog.String("error", err.Error()))
				return
			}
			telemetry.NotificationsSent.WithLabelValues(s.Name(), "ok").Inc()
		}(i, s)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(sinks) {
		return errors.Join(errs...)
	}
	log.Info("notification sent", slog.String("status", string(tr.To)), slog.Int("sinks", len(sinks)-failed))
	return nil
}
