// Package tracker owns the lifecycle of AI optimization tasks:
//
//	WAITING → PENDING → PROCESSING → COMPLETED | FAILED
//	FAILED  → PENDING (Retry)
//
// Every read-modify-write of a task runs under that task's lock, so a poll
// result and a user action on the same task never interleave.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
	"github.com/ramiqadoumi/go-resume-flow/internal/store"
	"github.com/ramiqadoumi/go-resume-flow/pkg/telemetry"
)

// TransitionRecorder receives every committed status change. Failures are
// logged and never undo the transition.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, tr *domain.Transition) error
}

// CreateRequest describes a new task. ID is optional and generated when
// empty. Status is WAITING (the default) or PENDING. Poll starts status
// polling right away.
type CreateRequest struct {
	ID          string        `json:"id"`
	JobID       string        `json:"jobId"`
	Title       string        `json:"title"`
	Company     string        `json:"company"`
	Link        string        `json:"link"`
	Description string        `json:"description"`
	Status      domain.Status `json:"status"`
	Poll        bool          `json:"poll"`
}

// Update carries the optional payload of a status change.
type Update struct {
	Resume   *resume.Snapshot
	Metadata map[string]string
	Error    string
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Status domain.Status
	JobID  string
}

// Tracker manages optimization tasks.
type Tracker struct {
	tasks     store.Collection
	optimizer Optimizer
	resumes   func() *resume.Snapshot
	recorders []TransitionRecorder
	poll      PollConfig
	logger    *slog.Logger
	now       func() time.Time

	locks *keyedMutex

	mu      sync.Mutex
	pollers map[string]*poller
	nextGen uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Tracker.
type Option func(*Tracker)

func WithOptimizer(o Optimizer) Option { return func(t *Tracker) { t.optimizer = o } }

func WithPollConfig(c PollConfig) Option { return func(t *Tracker) { t.poll = c } }

func WithLogger(l *slog.Logger) Option { return func(t *Tracker) { t.logger = l } }

// WithClock replaces time.Now for timestamps and cleanup cutoffs.
func WithClock(now func() time.Time) Option { return func(t *Tracker) { t.now = now } }

// WithRecorder adds a sink for committed transitions. May be repeated.
func WithRecorder(r TransitionRecorder) Option {
	return func(t *Tracker) { t.recorders = append(t.recorders, r) }
}

// WithResumeSource sets where Optimize reads the résumé to optimize from.
func WithResumeSource(f func() *resume.Snapshot) Option {
	return func(t *Tracker) { t.resumes = f }
}

// New creates a Tracker persisting tasks in c.
func New(c store.Collection, opts ...Option) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		tasks:   c,
		poll:    DefaultPollConfig(),
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
		locks:   newKeyedMutex(),
		pollers: make(map[string]*poller),
		resumes: func() *resume.Snapshot { return &resume.Snapshot{} },
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Close stops every poller and background optimization and waits for them.
func (t *Tracker) Close() {
	t.cancel()
	t.wg.Wait()
}

// Create inserts a new task.
func (t *Tracker) Create(ctx context.Context, req CreateRequest) (*domain.Task, error) {
	if req.JobID == "" {
		return nil, &domain.ValidationError{Field: "jobId", Reason: "must not be empty"}
	}
	switch req.Status {
	case "":
		req.Status = domain.StatusWaiting
	case domain.StatusWaiting, domain.StatusPending:
	default:
		return nil, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("new tasks start in %s or %s, got %q", domain.StatusWaiting, domain.StatusPending, req.Status)}
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	unlock := t.locks.Lock(req.ID)
	defer unlock()

	if _, err := t.tasks.Get(ctx, req.ID); err == nil {
		return nil, &domain.ValidationError{Field: "id", Reason: fmt.Sprintf("task %s already exists", req.ID)}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check task %s: %w", req.ID, err)
	}

	now := t.now()
	task := &domain.Task{
		ID:          req.ID,
		JobID:       req.JobID,
		Title:       req.Title,
		Company:     req.Company,
		Link:        req.Link,
		Description: req.Description,
		Status:      req.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.save(ctx, task); err != nil {
		return nil, err
	}
	telemetry.TasksCreated.Inc()
	t.record(ctx, task, "", "")
	t.logger.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("job_id", task.JobID),
		slog.String("status", string(task.Status)),
	)

	if req.Poll {
		t.startPolling(task.ID)
	}
	return task.Clone(), nil
}

// Get returns a copy of task id.
func (t *Tracker) Get(ctx context.Context, id string) (*domain.Task, error) {
	return t.load(ctx, id)
}

// List returns tasks matching f, oldest first.
func (t *Tracker) List(ctx context.Context, f Filter) ([]*domain.Task, error) {
	var (
		raws [][]byte
		err  error
	)
	switch {
	case f.Status != "":
		raws, err = t.tasks.ListByIndex(ctx, "status", string(f.Status))
	case f.JobID != "":
		raws, err = t.tasks.ListByIndex(ctx, "jobId", f.JobID)
	default:
		raws, err = t.tasks.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	out := make([]*domain.Task, 0, len(raws))
	for _, raw := range raws {
		var task domain.Task
		if err := json.Unmarshal(raw, &task); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		if f.JobID != "" && task.JobID != f.JobID {
			continue
		}
		out = append(out, &task)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateStatus moves task id to status. COMPLETED stamps completedAt and
// stops polling; FAILED stops polling and records u.Error. u.Resume and
// u.Metadata are applied when set.
func (t *Tracker) UpdateStatus(ctx context.Context, id string, status domain.Status, u Update) (*domain.Task, error) {
	if !status.Valid() {
		return nil, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	if status.IsTerminal() {
		t.stopPolling(id)
	}
	return t.mutate(ctx, id, func(task *domain.Task) error {
		t.apply(task, status, u)
		return nil
	})
}

func (t *Tracker) apply(task *domain.Task, status domain.Status, u Update) {
	task.Status = status
	switch status {
	case domain.StatusCompleted:
		at := t.now()
		task.CompletedAt = &at
		task.Error = ""
	case domain.StatusFailed:
		task.Error = u.Error
	}
	if u.Resume != nil {
		task.Resume = u.Resume.Clone()
	}
	mergeMetadata(task, u.Metadata)
}

// finishRun ends the optimization run that moved task id to PROCESSING at
// retry count attempt. If the task was failed, retried or finished meanwhile
// it is left alone and an InvalidStateError is returned.
func (t *Tracker) finishRun(ctx context.Context, id string, attempt int, status domain.Status, u Update) (*domain.Task, error) {
	task, err := t.mutate(ctx, id, func(task *domain.Task) error {
		if task.Status != domain.StatusProcessing || task.RetryCount != attempt {
			return &domain.InvalidStateError{TaskID: id, Status: task.Status, Op: "finish a superseded optimization of"}
		}
		t.apply(task, status, u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.stopPolling(id)
	return task, nil
}

// Complete marks task id COMPLETED with result.
func (t *Tracker) Complete(ctx context.Context, id string, result *resume.Snapshot, metadata map[string]string) (*domain.Task, error) {
	return t.UpdateStatus(ctx, id, domain.StatusCompleted, Update{Resume: result, Metadata: metadata})
}

// Fail marks task id FAILED with msg.
func (t *Tracker) Fail(ctx context.Context, id, msg string) (*domain.Task, error) {
	return t.UpdateStatus(ctx, id, domain.StatusFailed, Update{Error: msg})
}

// Retry moves a FAILED task back to PENDING, clears its error, bumps its
// retry count and restarts polling. Any other status is an
// InvalidStateError and leaves the task untouched.
func (t *Tracker) Retry(ctx context.Context, id string) (*domain.Task, error) {
	task, err := t.mutate(ctx, id, func(task *domain.Task) error {
		if task.Status != domain.StatusFailed {
			return &domain.InvalidStateError{TaskID: id, Status: task.Status, Op: "retry"}
		}
		task.Status = domain.StatusPending
		task.Error = ""
		task.RetryCount++
		task.CompletedAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	if t.optimizer != nil {
		t.startPolling(id)
	}
	return task, nil
}

// Delete stops polling for task id and removes it. Allowed in any status.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	t.stopPolling(id)
	unlock := t.locks.Lock(id)
	defer unlock()
	if err := t.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &domain.TaskNotFoundError{TaskID: id}
		}
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	t.logger.Info("task deleted", slog.String("task_id", id))
	return nil
}

// Cleanup deletes COMPLETED tasks whose completedAt is strictly older than
// daysToKeep days and returns how many were removed. Tasks without a
// completedAt are kept.
func (t *Tracker) Cleanup(ctx context.Context, daysToKeep int) (int, error) {
	if daysToKeep < 0 {
		return 0, &domain.ValidationError{Field: "daysToKeep", Reason: "must not be negative"}
	}
	done, err := t.List(ctx, Filter{Status: domain.StatusCompleted})
	if err != nil {
		return 0, err
	}
	cutoff := t.now().Add(-time.Duration(daysToKeep) * 24 * time.Hour)
	deleted := 0
	for _, task := range done {
		if task.CompletedAt == nil || !task.CompletedAt.Before(cutoff) {
			continue
		}
		if err := t.Delete(ctx, task.ID); err != nil {
			var nf *domain.TaskNotFoundError
			if errors.As(err, &nf) {
				continue
			}
			return deleted, err
		}
		deleted++
	}
	telemetry.TasksCleanedUp.Add(float64(deleted))
	t.logger.Info("cleanup finished", slog.Int("days_to_keep", daysToKeep), slog.Int("deleted", deleted))
	return deleted, nil
}

// setMetadata merges md into task id without changing its status.
func (t *Tracker) setMetadata(ctx context.Context, id string, md map[string]string) error {
	_, err := t.mutate(ctx, id, func(task *domain.Task) error {
		mergeMetadata(task, md)
		return nil
	})
	return err
}

// mutate loads task id under its lock, applies fn and saves the result. A
// transition is recorded when the status changed.
func (t *Tracker) mutate(ctx context.Context, id string, fn func(task *domain.Task) error) (*domain.Task, error) {
	unlock := t.locks.Lock(id)
	defer unlock()

	task, err := t.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := task.Status
	if err := fn(task); err != nil {
		return nil, err
	}
	task.UpdatedAt = t.now()
	if err := t.save(ctx, task); err != nil {
		return nil, err
	}
	if task.Status != from {
		t.record(ctx, task, from, task.Error)
		t.logger.Info("task transitioned",
			slog.String("task_id", id),
			slog.String("from", string(from)),
			slog.String("to", string(task.Status)),
		)
	}
	return task.Clone(), nil
}

func (t *Tracker) load(ctx context.Context, id string) (*domain.Task, error) {
	raw, err := t.tasks.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &domain.TaskNotFoundError{TaskID: id}
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	var task domain.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return &task, nil
}

func (t *Tracker) save(ctx context.Context, task *domain.Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", task.ID, err)
	}
	idx := store.Index{"status": string(task.Status), "jobId": task.JobID}
	if err := t.tasks.Set(ctx, task.ID, raw, idx); err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

func (t *Tracker) record(ctx context.Context, task *domain.Task, from domain.Status, errMsg string) {
	telemetry.TaskTransitions.WithLabelValues(string(task.Status)).Inc()
	if len(t.recorders) == 0 {
		return
	}
	tr := &domain.Transition{
		ID:         uuid.New().String(),
		TaskID:     task.ID,
		JobID:      task.JobID,
		Title:      task.Title,
		Company:    task.Company,
		From:       from,
		To:         task.Status,
		RetryCount: task.RetryCount,
		Error:      errMsg,
		At:         task.UpdatedAt,
	}
	for _, r := range t.recorders {
		if err := r.RecordTransition(ctx, tr); err != nil {
			t.logger.Warn("failed to record transition",
				slog.String("task_id", task.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func mergeMetadata(task *domain.Task, md map[string]string) {
	if len(md) == 0 {
		return
	}
	if task.Metadata == nil {
		task.Metadata = make(map[string]string, len(md))
	}
	for k, v := range md {
		task.Metadata[k] = v
	}
}
