package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/kafka"
	"github.com/ramiqadoumi/go-resume-flow/internal/notify"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// ── fakes ────────────────────────────────────────────────────────────────────

type fakeSink struct {
	name string
	err  error

	mu   sync.Mutex
	seen []string
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Notify(_ context.Context, tr *domain.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, tr.TaskID)
	return s.err
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

type fakeRateLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (r *fakeRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	r.keys = append(r.keys, key)
	return r.allow, r.err
}

func (r *fakeRateLimiter) Limit() int { return 5 }

type fakeProducer struct {
	err  error
	sent []kafka.Message
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, value []byte) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, kafka.Message{Topic: topic, Key: []byte(key), Value: value})
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func event(t *testing.T, tr domain.Transition) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(tr)
	require.NoError(t, err)
	return kafka.Message{Topic: kafka.TopicTaskEvents, Key: []byte(tr.TaskID), Value: raw}
}

func newNotifier(limiter *fakeRateLimiter, sinks ...notify.Sink) *Notifier {
	reg := notify.NewRegistry()
	for _, s := range sinks {
		reg.Register(s)
	}
	n := NewNotifier(nil, reg, nil, discardLogger)
	if limiter != nil {
		n.limiter = limiter
	}
	return n
}

var completed = domain.Transition{TaskID: "t1", JobID: "j1", From: domain.StatusProcessing, To: domain.StatusCompleted}

// ── tests ────────────────────────────────────────────────────────────────────

func TestHandle_FansOutToEverySink(t *testing.T) {
	a, b := &fakeSink{name: "a"}, &fakeSink{name: "b"}
	n := newNotifier(nil, a, b)

	require.NoError(t, n.handle(context.Background(), event(t, completed)))
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestHandle_IgnoresNonTerminal(t *testing.T) {
	s := &fakeSink{name: "a"}
	n := newNotifier(nil, s)

	tr := completed
	tr.To = domain.StatusProcessing
	require.NoError(t, n.handle(context.Background(), event(t, tr)))
	assert.Zero(t, s.count())
}

func TestHandle_MalformedIsSkipped(t *testing.T) {
	n := newNotifier(nil, &fakeSink{name: "a"})
	err := n.handle(context.Background(), kafka.Message{Value: []byte("nope")})
	assert.ErrorIs(t, err, kafka.ErrSkip)
}

func TestHandle_PartialFailureCommits(t *testing.T) {
	ok, bad := &fakeSink{name: "ok"}, &fakeSink{name: "bad", err: errors.New("502")}
	n := newNotifier(nil, ok, bad)

	assert.NoError(t, n.handle(context.Background(), event(t, completed)))
	assert.Equal(t, 1, ok.count())
}

func TestHandle_AllSinksFailReturnsError(t *testing.T) {
	n := newNotifier(nil,
		&fakeSink{name: "a", err: errors.New("down")},
		&fakeSink{name: "b", err: errors.New("down too")},
	)
	err := n.handle(context.Background(), event(t, completed))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: down")
	assert.Contains(t, err.Error(), "b: down too")
}

func TestHandle_AllSinksFailGoesToDLQ(t *testing.T) {
	dlq := &fakeProducer{}
	n := newNotifier(nil, &fakeSink{name: "a", err: errors.New("down")}).WithDeadLetter(dlq)

	msg := event(t, completed)
	require.NoError(t, n.handle(context.Background(), msg))
	require.Len(t, dlq.sent, 1)
	assert.Equal(t, TopicDLQ, dlq.sent[0].Topic)
	assert.Equal(t, "t1", string(dlq.sent[0].Key))
	assert.Equal(t, msg.Value, dlq.sent[0].Value)
}

func TestHandle_DLQFailureKeepsOffset(t *testing.T) {
	dlq := &fakeProducer{err: errors.New("broker gone")}
	n := newNotifier(nil, &fakeSink{name: "a", err: errors.New("down")}).WithDeadLetter(dlq)

	err := n.handle(context.Background(), event(t, completed))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: down")
}

func TestHandle_PartialFailureSkipsDLQ(t *testing.T) {
	dlq := &fakeProducer{}
	n := newNotifier(nil, &fakeSink{name: "ok"}, &fakeSink{name: "bad", err: errors.New("x")}).WithDeadLetter(dlq)

	require.NoError(t, n.handle(context.Background(), event(t, completed)))
	assert.Empty(t, dlq.sent)
}

func TestHandle_RateLimitedDrops(t *testing.T) {
	s := &fakeSink{name: "a"}
	limiter := &fakeRateLimiter{allow: false}
	n := newNotifier(limiter, s)

	require.NoError(t, n.handle(context.Background(), event(t, completed)))
	assert.Zero(t, s.count())
	assert.Equal(t, []string{"j1"}, limiter.keys, "limited per job")
}

func TestHandle_LimiterErrorFailsOpen(t *testing.T) {
	s := &fakeSink{name: "a"}
	n := newNotifier(&fakeRateLimiter{err: errors.New("redis down")}, s)

	require.NoError(t, n.handle(context.Background(), event(t, completed)))
	assert.Equal(t, 1, s.count())
}

func TestHandle_NoSinks(t *testing.T) {
	assert.NoError(t, newNotifier(nil).handle(context.Background(), event(t, completed)))
}
