package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ramiqadoumi/go-resume-flow/internal/diff"
	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
	"github.com/ramiqadoumi/go-resume-flow/internal/tracker"
)

// CreateTaskRequest is the JSON body for POST /api/v1/tasks. With Optimize
// set, an optimization run starts right after creation.
type CreateTaskRequest struct {
	tracker.CreateRequest
	Optimize bool `json:"optimize"`
}

// StatusRequest is the JSON body for PUT /api/v1/tasks/{id}/status.
type StatusRequest struct {
	Status   domain.Status     `json:"status"`
	Resume   *resume.Snapshot  `json:"resume,omitempty"`
	Metadata map[string]string `json:"resultMetadata,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// ApplyRequest is the JSON body for POST /api/v1/tasks/{id}/apply. An empty
// Sections list applies every section the optimization changed.
type ApplyRequest struct {
	Sections []string `json:"sections"`
}

type cleanupRequest struct {
	DaysToKeep *int `json:"daysToKeep"`
}

// CreateTask handles POST /api/v1/tasks.
func (h *REST) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "api.create_task")
	defer span.End()
	r = r.WithContext(ctx)

	var req CreateTaskRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.fillFromJob(&req.CreateRequest)

	// A refused run must not leave a task behind.
	if req.Optimize {
		if err := h.admit(r, req.JobID); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	task, err := h.Tracker.Create(ctx, req.CreateRequest)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("task.id", task.ID), attribute.String("job.id", task.JobID))
	h.logger.Info("task created", slog.String("task_id", task.ID), slog.String("job_id", task.JobID))

	if req.Optimize {
		h.Tracker.OptimizeAsync(task.ID)
	}
	writeJSON(w, http.StatusCreated, task)
}

// fillFromJob copies job details the request left empty from the locally
// edited job, when one is known.
func (h *REST) fillFromJob(req *tracker.CreateRequest) {
	if h.Jobs == nil {
		return
	}
	job, ok := h.Jobs.Job(req.JobID)
	if !ok {
		return
	}
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&req.Title, job.Title)
	fill(&req.Company, job.Company)
	fill(&req.Link, job.Link)
	fill(&req.Description, job.Description)
}

// ListTasks handles GET /api/v1/tasks with optional ?status= and ?jobId=.
func (h *REST) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tasks, err := h.Tracker.List(r.Context(), tracker.Filter{
		Status: domain.Status(q.Get("status")),
		JobID:  q.Get("jobId"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// GetTask handles GET /api/v1/tasks/{id}.
func (h *REST) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.Tracker.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/v1/tasks/{id}.
func (h *REST) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Tracker.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateTaskStatus handles PUT /api/v1/tasks/{id}/status.
func (h *REST) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	task, err := h.Tracker.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, tracker.Update{
		Resume:   req.Resume,
		Metadata: req.Metadata,
		Error:    req.Error,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// OptimizeTask handles POST /api/v1/tasks/{id}/optimize. The run happens in
// the background and the response is 202; with ?wait=true it runs inline and
// the finished task is returned.
func (h *REST) OptimizeTask(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "api.optimize_task")
	defer span.End()
	r = r.WithContext(ctx)

	id := chi.URLParam(r, "id")
	span.SetAttributes(attribute.String("task.id", id))
	task, err := h.Tracker.Get(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		if err := h.allow(r, task.JobID); err != nil {
			h.fail(w, r, err)
			return
		}
		done, err := h.Tracker.Optimize(ctx, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, done)
		return
	}

	if err := h.startOptimization(r, task); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, task)
}

// startOptimization checks that task can be optimized and starts a
// background run.
func (h *REST) startOptimization(r *http.Request, task *domain.Task) error {
	if task.Status.IsTerminal() {
		return &domain.InvalidStateError{TaskID: task.ID, Status: task.Status, Op: "optimize"}
	}
	if err := h.admit(r, task.JobID); err != nil {
		return err
	}
	h.Tracker.OptimizeAsync(task.ID)
	return nil
}

// admit reports whether a run for jobID may start: a gateway must be
// configured and the job must be under its rate limit.
func (h *REST) admit(r *http.Request, jobID string) error {
	if !h.Tracker.CanOptimize() {
		return &domain.ValidationError{Field: "optimizer", Reason: "no optimization gateway configured"}
	}
	return h.allow(r, jobID)
}

// allow applies the per-job optimization rate limit. A limiter failure lets
// the request through.
func (h *REST) allow(r *http.Request, jobID string) error {
	if h.Limiter == nil {
		return nil
	}
	ok, err := h.Limiter.Allow(r.Context(), jobID)
	if err != nil {
		h.logger.Warn("rate limiter unavailable", slog.String("job_id", jobID), slog.String("error", err.Error()))
		return nil
	}
	if !ok {
		return &domain.RateLimitExceededError{Key: jobID, Limit: h.Limiter.Limit()}
	}
	return nil
}

// RetryTask handles POST /api/v1/tasks/{id}/retry.
func (h *REST) RetryTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.Tracker.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// PollTask handles POST /api/v1/tasks/{id}/poll and starts watching a task
// that runs on the optimization gateway.
func (h *REST) PollTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Tracker.StartPolling(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "polling": h.Tracker.Polling(id)})
}

// CleanupTasks handles POST /api/v1/tasks/cleanup. daysToKeep defaults to 30.
func (h *REST) CleanupTasks(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	days := 30
	if req.DaysToKeep != nil {
		days = *req.DaysToKeep
	}
	n, err := h.Tracker.Cleanup(r.Context(), days)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// optimized returns task id and its result, or an InvalidStateError when
// the task has none yet.
func (h *REST) optimized(r *http.Request) (*domain.Task, error) {
	task, err := h.Tracker.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if task.Resume == nil {
		return nil, &domain.InvalidStateError{TaskID: task.ID, Status: task.Status, Op: "review"}
	}
	return task, nil
}

// CompareTask handles GET /api/v1/tasks/{id}/compare?mode=hidden|words|lines.
func (h *REST) CompareTask(w http.ResponseWriter, r *http.Request) {
	mode, err := diff.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	task, err := h.optimized(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, diff.Compare(h.Document.Snapshot(), task.Resume, mode))
}

// ApplyTask handles POST /api/v1/tasks/{id}/apply. The chosen sections are
// copied whole from the optimized result into the current résumé.
func (h *REST) ApplyTask(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	task, err := h.optimized(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	current := h.Document.Snapshot()
	keep := req.Sections
	if len(keep) == 0 {
		for _, c := range diff.Compare(current, task.Resume, diff.ModeHidden) {
			if c.Changed {
				keep = append(keep, c.Section)
			}
		}
	}
	merged, err := diff.Merge(current, task.Resume, keep)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Document.Replace(r.Context(), merged); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("optimization applied", slog.String("task_id", task.ID), slog.Any("sections", keep))
	writeJSON(w, http.StatusOK, h.Document.Snapshot())
}

// TaskHistory handles GET /api/v1/tasks/{id}/history.
func (h *REST) TaskHistory(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeError(w, http.StatusNotImplemented, "transition history requires postgres storage")
		return
	}
	id := chi.URLParam(r, "id")
	history, err := h.History.History(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(history) == 0 {
		if _, err := h.Tracker.Get(r.Context(), id); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, history)
}
