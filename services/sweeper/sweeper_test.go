package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeCleaner struct {
	mu    sync.Mutex
	calls []int
	n     int
	err   error
}

func (c *fakeCleaner) Cleanup(_ context.Context, days int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, days)
	return c.n, c.err
}

func (c *fakeCleaner) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type fakeElector struct {
	leader   bool
	err      error
	released bool
}

func (e *fakeElector) Acquire(context.Context) (bool, error) { return e.leader, e.err }
func (e *fakeElector) Release(context.Context) error         { e.released = true; return nil }

func TestSweep_Leader(t *testing.T) {
	c := &fakeCleaner{n: 3}
	s := NewSweeper(c, &fakeElector{leader: true}, "@daily", 30, discardLogger)

	assert.Equal(t, 3, s.Sweep(context.Background()))
	assert.Equal(t, []int{30}, c.calls)
}

func TestSweep_Follower(t *testing.T) {
	c := &fakeCleaner{}
	s := NewSweeper(c, &fakeElector{leader: false}, "@daily", 30, discardLogger)

	assert.Zero(t, s.Sweep(context.Background()))
	assert.Empty(t, c.calls)
}

func TestSweep_ElectionError(t *testing.T) {
	c := &fakeCleaner{}
	s := NewSweeper(c, &fakeElector{err: errors.New("redis down")}, "@daily", 30, discardLogger)

	assert.Zero(t, s.Sweep(context.Background()))
	assert.Empty(t, c.calls, "no sweep without a confirmed lease")
}

func TestSweep_NoElector(t *testing.T) {
	c := &fakeCleaner{n: 1, err: errors.New("partial")}
	s := NewSweeper(c, nil, "@daily", 7, discardLogger)

	assert.Equal(t, 1, s.Sweep(context.Background()))
	assert.Equal(t, []int{7}, c.calls)
}

func TestRun_BadSchedule(t *testing.T) {
	s := NewSweeper(&fakeCleaner{}, nil, "every tuesday", 30, discardLogger)
	assert.Error(t, s.Run(context.Background()))
}

func TestRun_SweepsAndReleases(t *testing.T) {
	c := &fakeCleaner{}
	e := &fakeElector{leader: true}
	s := NewSweeper(c, e, "@every 1s", 30, discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return c.callCount() > 0 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.True(t, e.released)
}
