package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/gateway"
	"github.com/ramiqadoumi/go-resume-flow/pkg/retry"
	"github.com/ramiqadoumi/go-resume-flow/pkg/telemetry"
)

// PollConfig bounds status polling. The wait after failed attempt n is
// Interval*n², capped at MaxDelay.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	MaxDelay    time.Duration
}

func DefaultPollConfig() PollConfig {
	return PollConfig{Interval: 5 * time.Second, MaxAttempts: 40, MaxDelay: time.Minute}
}

type poller struct {
	cancel context.CancelFunc
	gen    uint64
}

// errStillRunning makes retry.Do try again while the remote task runs.
var errStillRunning = errors.New("remote task still running")

// Polling reports whether task id currently has a poller.
func (t *Tracker) Polling(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pollers[id]
	return ok
}

// StartPolling begins polling the remote status of task id. A running
// poller for the same task is replaced.
func (t *Tracker) StartPolling(ctx context.Context, id string) error {
	if t.optimizer == nil {
		return &domain.ValidationError{Field: "optimizer", Reason: "no optimization gateway configured"}
	}
	if _, err := t.load(ctx, id); err != nil {
		return err
	}
	t.startPolling(id)
	return nil
}

func (t *Tracker) startPolling(id string) {
	if t.optimizer == nil {
		return
	}
	ctx, cancel := context.WithCancel(t.ctx)

	t.mu.Lock()
	old, replaced := t.pollers[id]
	t.nextGen++
	gen := t.nextGen
	t.pollers[id] = &poller{cancel: cancel, gen: gen}
	t.mu.Unlock()
	if replaced {
		old.cancel()
	} else {
		telemetry.TasksPolling.Inc()
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.forget(id, gen)
		t.pollLoop(ctx, id)
	}()
}

// stopPolling cancels the poller of task id without waiting for it to exit.
func (t *Tracker) stopPolling(id string) {
	t.mu.Lock()
	p, ok := t.pollers[id]
	if ok {
		delete(t.pollers, id)
	}
	t.mu.Unlock()
	if ok {
		p.cancel()
		telemetry.TasksPolling.Dec()
	}
}

// forget removes the poller entry for id if it still belongs to gen.
func (t *Tracker) forget(id string, gen uint64) {
	t.mu.Lock()
	p, ok := t.pollers[id]
	mine := ok && p.gen == gen
	if mine {
		delete(t.pollers, id)
	}
	t.mu.Unlock()
	if mine {
		p.cancel()
		telemetry.TasksPolling.Dec()
	}
}

func (t *Tracker) pollLoop(ctx context.Context, id string) {
	logger := t.logger.With(slog.String("task_id", id))

	timer := time.NewTimer(t.poll.Interval)
	select {
	case <-ctx.Done():
		timer.Stop()
		return
	case <-timer.C:
	}

	cfg := retry.Config{
		MaxAttempts: t.poll.MaxAttempts,
		BaseDelay:   t.poll.Interval,
		MaxDelay:    t.poll.MaxDelay,
		OnRetry: func(attempt int, err error) {
			logger.Debug("task not finished", slog.Int("attempt", attempt), slog.String("reason", err.Error()))
		},
	}
	err := retry.Do(ctx, cfg, func() error { return t.pollOnce(ctx, id) })
	switch {
	case err == nil, ctx.Err() != nil:
		return
	}

	var nf *domain.TaskNotFoundError
	if errors.As(err, &nf) {
		return
	}
	logger.Warn("status polling gave up", slog.Int("attempts", cfg.MaxAttempts), slog.String("error", err.Error()))
	telemetry.PollAttempts.WithLabelValues("exhausted").Inc()
	msg := fmt.Sprintf("status polling gave up after %d attempts: %v", cfg.MaxAttempts, err)
	if _, ferr := t.Fail(context.WithoutCancel(ctx), id, msg); ferr != nil {
		logger.Error("failed to mark task failed", slog.String("error", ferr.Error()))
	}
}

// pollOnce asks the gateway for the status of task id and applies the
// answer. It returns nil once the task reached a terminal status.
func (t *Tracker) pollOnce(ctx context.Context, id string) error {
	res, err := t.optimizer.CheckStatus(ctx, id)
	if err != nil {
		telemetry.PollAttempts.WithLabelValues("error").Inc()
		return err
	}
	// A terminal update cancels this poller's ctx; the write must still land.
	ctx = context.WithoutCancel(ctx)

	switch res.Status {
	case domain.StatusCompleted:
		telemetry.PollAttempts.WithLabelValues("completed").Inc()
		_, err = t.Complete(ctx, id, res.Resume, res.Metadata)
	case domain.StatusFailed:
		telemetry.PollAttempts.WithLabelValues("failed").Inc()
		_, err = t.Fail(ctx, id, failureMessage(res))
	default:
		telemetry.PollAttempts.WithLabelValues("running").Inc()
		if len(res.Metadata) > 0 {
			if err := t.setMetadata(ctx, id, res.Metadata); err != nil {
				return stopIfGone(err)
			}
		}
		return errStillRunning
	}
	return stopIfGone(err)
}

func stopIfGone(err error) error {
	var nf *domain.TaskNotFoundError
	if errors.As(err, &nf) {
		return retry.Permanent(err)
	}
	return err
}

func failureMessage(res gateway.StatusResult) string {
	if res.Error != "" {
		return res.Error
	}
	return "optimization failed remotely"
}
