package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/gateway"
	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
	"github.com/ramiqadoumi/go-resume-flow/pkg/telemetry"
)

// Optimizer is the remote optimization service. *gateway.Client satisfies it.
type Optimizer interface {
	ParseJob(ctx context.Context, description string) (gateway.ParsedJob, error)
	OptimizeExperiences(ctx context.Context, job gateway.ParsedJob, work []resume.Work) ([]resume.Work, error)
	OptimizeProjects(ctx context.Context, job gateway.ParsedJob, projects []resume.Project) ([]resume.Project, error)
	OptimizeSkills(ctx context.Context, job gateway.ParsedJob, skills resume.Skills) (resume.Skills, error)
	OptimizeSummary(ctx context.Context, job gateway.ParsedJob, summary string) (string, error)
	CheckStatus(ctx context.Context, taskID string) (gateway.StatusResult, error)
}

// Optimize runs a full optimization of the current résumé against the job
// description of task id. The job is parsed first; a parse failure fails the
// task. The four section rewrites then run concurrently and any one that
// fails keeps the original section. The task completes with the merged
// result in a single update, unless it was failed or retried while the run
// was in flight; then the result is discarded with an InvalidStateError.
func (t *Tracker) Optimize(ctx context.Context, id string) (*domain.Task, error) {
	if t.optimizer == nil {
		return nil, &domain.ValidationError{Field: "optimizer", Reason: "no optimization gateway configured"}
	}
	task, err := t.mutate(ctx, id, func(task *domain.Task) error {
		if task.Status.IsTerminal() {
			return &domain.InvalidStateError{TaskID: id, Status: task.Status, Op: "optimize"}
		}
		task.Status = domain.StatusProcessing
		return nil
	})
	if err != nil {
		return nil, err
	}

	attempt := task.RetryCount
	logger := t.logger.With(slog.String("task_id", id), slog.String("job_id", task.JobID))
	start := time.Now()
	defer func() { telemetry.OptimizationDurationSeconds.Observe(time.Since(start).Seconds()) }()

	job, err := t.optimizer.ParseJob(ctx, task.Description)
	if err != nil {
		logger.Warn("job parsing failed", slog.String("error", err.Error()))
		if _, ferr := t.finishRun(context.WithoutCancel(ctx), id, attempt, domain.StatusFailed, Update{Error: fmt.Sprintf("parse job: %v", err)}); ferr != nil {
			logger.Error("failed to mark task failed", slog.String("error", ferr.Error()))
		}
		return nil, err
	}

	orig := t.resumes()
	if orig == nil {
		orig = &resume.Snapshot{}
	}
	result, fallbacks := t.optimizeSections(ctx, job, orig, logger)

	md := map[string]string{}
	if len(fallbacks) > 0 {
		md["fallbacks"] = strings.Join(fallbacks, ",")
	}
	done, err := t.finishRun(context.WithoutCancel(ctx), id, attempt, domain.StatusCompleted, Update{Resume: result, Metadata: md})
	if err != nil {
		logger.Warn("optimization result discarded", slog.String("error", err.Error()))
		return nil, err
	}
	return done, nil
}

// CanOptimize reports whether an optimization gateway is configured.
func (t *Tracker) CanOptimize() bool { return t.optimizer != nil }

// OptimizeAsync starts Optimize in the background. Close waits for it.
func (t *Tracker) OptimizeAsync(id string) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if _, err := t.Optimize(t.ctx, id); err != nil {
			t.logger.Warn("background optimization failed", slog.String("task_id", id), slog.String("error", err.Error()))
		}
	}()
}

// optimizeSections fans out the section rewrites and returns the merged
// snapshot plus the sorted keys of sections that fell back to orig.
func (t *Tracker) optimizeSections(ctx context.Context, job gateway.ParsedJob, orig *resume.Snapshot, logger *slog.Logger) (*resume.Snapshot, []string) {
	out := orig.Clone()
	src := orig.Clone()
	failed := make([]bool, 4)

	fallback := func(i int, key string, err error) {
		failed[i] = true
		telemetry.OptimizationFallbacks.WithLabelValues(key).Inc()
		logger.Warn("section optimization failed, keeping original",
			slog.String("section", key),
			slog.String("error", err.Error()),
		)
	}

	// Each goroutine writes only its own section of out and its own slot of
	// failed, and never returns an error, so the group never cancels.
	var g errgroup.Group
	g.Go(func() error {
		work, err := t.optimizer.OptimizeExperiences(ctx, job, src.Work)
		if err != nil {
			fallback(0, resume.KeyWork, err)
			return nil
		}
		out.Work = work
		return nil
	})
	g.Go(func() error {
		projects, err := t.optimizer.OptimizeProjects(ctx, job, src.Projects)
		if err != nil {
			fallback(1, resume.KeyProjects, err)
			return nil
		}
		out.Projects = projects
		return nil
	})
	g.Go(func() error {
		skills, err := t.optimizer.OptimizeSkills(ctx, job, src.Skills)
		if err != nil {
			fallback(2, resume.KeySkills, err)
			return nil
		}
		out.Skills = skills
		return nil
	})
	g.Go(func() error {
		summary, err := t.optimizer.OptimizeSummary(ctx, job, src.Basics.Summary)
		if err != nil {
			fallback(3, resume.KeyBasics, err)
			return nil
		}
		out.Basics.Summary = summary
		return nil
	})
	_ = g.Wait()

	keys := []string{resume.KeyWork, resume.KeyProjects, resume.KeySkills, resume.KeyBasics}
	var fellBack []string
	for i, f := range failed {
		if f {
			fellBack = append(fellBack, keys[i])
		}
	}
	sort.Strings(fellBack)
	return out, fellBack
}
