package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	LeaderKey = "sweeper:leader"
	LeaderTTL = 2 * time.Minute
)

// Cleaner deletes finished tasks older than daysToKeep days.
// *tracker.Tracker satisfies it.
type Cleaner interface {
	Cleanup(ctx context.Context, daysToKeep int) (int, error)
}

// Elector decides which instance sweeps. *redis.Leader satisfies it.
type Elector interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Sweeper runs Cleanup on a cron schedule on the elected instance only.
type Sweeper struct {
	cleaner    Cleaner
	elector    Elector // nil = always leader
	schedule   string
	daysToKeep int
	logger     *slog.Logger
}

func NewSweeper(cleaner Cleaner, elector Elector, schedule string, daysToKeep int, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		cleaner:    cleaner,
		elector:    elector,
		schedule:   schedule,
		daysToKeep: daysToKeep,
		logger:     logger,
	}
}

// Run schedules sweeps and blocks until ctx is cancelled. A sweep in
// progress is allowed to finish before Run returns.
func (s *Sweeper) Run(ctx context.Context) error {
	sched, err := cron.ParseStandard(s.schedule)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", s.schedule, err)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(sched, cron.FuncJob(func() { s.Sweep(ctx) }))
	c.Start()
	s.logger.Info("sweeper scheduled",
		slog.String("schedule", s.schedule),
		slog.Time("next_run", sched.Next(time.Now())),
	)

	<-ctx.Done()
	<-c.Stop().Done()

	if s.elector != nil {
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.elector.Release(relCtx); err != nil {
			s.logger.Warn("failed to release leadership", slog.String("error", err.Error()))
		}
	}
	return nil
}

// Sweep runs one cleanup if this instance is the leader and reports how
// many tasks were deleted.
func (s *Sweeper) Sweep(ctx context.Context) int {
	if s.elector != nil {
		leader, err := s.elector.Acquire(ctx)
		if err != nil {
			s.logger.Error("leader election", slog.String("error", err.Error()))
			return 0
		}
		if !leader {
			s.logger.Debug("not the leader, skipping sweep")
			return 0
		}
	}

	n, err := s.cleaner.Cleanup(ctx, s.daysToKeep)
	if err != nil {
		s.logger.Error("cleanup failed", slog.Int("deleted", n), slog.String("error", err.Error()))
		return n
	}
	s.logger.Info("sweep finished", slog.Int("deleted", n), slog.Int("days_to_keep", s.daysToKeep))
	return n
}
