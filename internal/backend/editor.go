package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/pkg/debounce"
)

// DefaultEditDelay is the quiet period before an edited job is synced.
const DefaultEditDelay = 3 * time.Second

// JobUpdater is the part of Client the editor needs.
type JobUpdater interface {
	UpdateJob(ctx context.Context, job domain.Job) error
}

// JobEditor applies job field edits locally at once and syncs each job to the
// backend after it has been quiet for the edit delay. Edits inside the window
// coalesce; the last value wins. A failed sync is logged and the local value
// is kept.
type JobEditor struct {
	updater JobUpdater
	sched   *debounce.Scheduler
	timeout time.Duration
	logger  *slog.Logger

	mu   sync.RWMutex
	jobs map[string]domain.Job
}

// NewJobEditor creates an editor over jobs.
func NewJobEditor(updater JobUpdater, jobs []domain.Job, delay time.Duration, logger *slog.Logger) *JobEditor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &JobEditor{
		updater: updater,
		sched:   debounce.New(delay),
		timeout: 15 * time.Second,
		logger:  logger,
		jobs:    make(map[string]domain.Job, len(jobs)),
	}
	for _, j := range jobs {
		e.jobs[j.ID] = j
	}
	return e
}

// Edit sets one field of job id. field is one of company, title, link or
// description.
func (e *JobEditor) Edit(id, field, value string) error {
	e.mu.Lock()
	job, ok := e.jobs[id]
	if !ok {
		e.mu.Unlock()
		return &domain.JobNotFoundError{JobID: id}
	}
	switch field {
	case "company":
		job.Company = value
	case "title":
		job.Title = value
	case "link":
		job.Link = value
	case "description":
		job.Description = value
	default:
		e.mu.Unlock()
		return &domain.ValidationError{Field: "field", Reason: fmt.Sprintf("unknown job field %q", field)}
	}
	e.jobs[id] = job
	e.mu.Unlock()

	e.sched.Schedule(id, func() { e.sync(id) })
	return nil
}

// Job returns the local copy of job id.
func (e *JobEditor) Job(id string) (domain.Job, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	j, ok := e.jobs[id]
	return j, ok
}

// Jobs returns every local job ordered by id.
func (e *JobEditor) Jobs() []domain.Job {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.Job, 0, len(e.jobs))
	for _, j := range e.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// Pending reports whether job id has an unsynced edit.
func (e *JobEditor) Pending(id string) bool { return e.sched.Pending(id) }

// Flush syncs job id now if it has a pending edit.
func (e *JobEditor) Flush(id string) { e.sched.Flush(id) }

// Close syncs every pending edit and stops the editor.
func (e *JobEditor) Close() {
	e.sched.FlushAll()
	e.sched.Stop()
}

func (e *JobEditor) sync(id string) {
	job, ok := e.Job(id)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	if err := e.updater.UpdateJob(ctx, job); err != nil {
		e.logger.Warn("job sync failed; keeping local edit",
			slog.String("job_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	e.logger.Debug("job synced", slog.String("job_id", id))
}
