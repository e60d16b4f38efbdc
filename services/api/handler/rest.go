package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ramiqadoumi/go-resume-flow/internal/backend"
	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/layout"
	redisstore "github.com/ramiqadoumi/go-resume-flow/internal/redis"
	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
	"github.com/ramiqadoumi/go-resume-flow/internal/sections"
	"github.com/ramiqadoumi/go-resume-flow/internal/store"
	"github.com/ramiqadoumi/go-resume-flow/internal/tracker"
)

const tracerName = "api"

// HistoryReader returns the recorded transitions of one task.
type HistoryReader interface {
	History(ctx context.Context, taskID string) ([]*domain.Transition, error)
}

// Deps are the components the REST handler serves. Model, Registry,
// Catalog, Document and Tracker are required. History, Jobs and Limiter may
// be nil: history and job routes then answer 501 and optimization runs are
// not rate limited.
type Deps struct {
	Model    *sections.Model
	Registry *sections.Registry
	Catalog  *layout.Catalog
	Document *resume.Document
	Tracker  *tracker.Tracker
	History  HistoryReader
	Jobs     *backend.JobEditor
	Limiter  redisstore.RateLimiter
	Ready    func(ctx context.Context) error
	Now      func() time.Time
}

// REST handles HTTP requests for the résumé API.
type REST struct {
	Deps
	logger *slog.Logger
}

// NewREST creates a new REST handler.
func NewREST(deps Deps, logger *slog.Logger) *REST {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &REST{Deps: deps, logger: logger}
}

// Mount registers the versioned API routes on r.
func (h *REST) Mount(r chi.Router) {
	r.Get("/sections", h.GetSections)
	r.Put("/sections/order", h.UpdateSectionOrder)
	r.Put("/sections/visibility", h.SetVisibility)
	r.Post("/sections/reset", h.ResetSections)
	r.Get("/templates", h.ListTemplates)
	r.Put("/template", h.SelectTemplate)
	r.Get("/preview", h.Preview)

	r.Get("/resume", h.GetResume)
	r.Put("/resume", h.ReplaceResume)
	r.Get("/resume/export", h.ExportResume)
	r.Post("/resume/import", h.ImportResume)
	r.Put("/resume/{section}", h.ResetResumeSection)

	r.Post("/tasks", h.CreateTask)
	r.Get("/tasks", h.ListTasks)
	r.Post("/tasks/cleanup", h.CleanupTasks)
	r.Get("/tasks/{id}", h.GetTask)
	r.Delete("/tasks/{id}", h.DeleteTask)
	r.Put("/tasks/{id}/status", h.UpdateTaskStatus)
	r.Post("/tasks/{id}/optimize", h.OptimizeTask)
	r.Post("/tasks/{id}/retry", h.RetryTask)
	r.Post("/tasks/{id}/poll", h.PollTask)
	r.Get("/tasks/{id}/compare", h.CompareTask)
	r.Post("/tasks/{id}/apply", h.ApplyTask)
	r.Get("/tasks/{id}/history", h.TaskHistory)

	r.Get("/jobs", h.ListJobs)
	r.Get("/jobs/{id}", h.GetJob)
	r.Patch("/jobs/{id}", h.EditJob)
	r.Post("/jobs/{id}/flush", h.FlushJob)
}

// Healthz handles GET /healthz.
func (h *REST) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz and checks the storage backend.
func (h *REST) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ready(ctx); err != nil {
			h.logger.Warn("readiness check failed", slog.String("error", err.Error()))
			writeError(w, http.StatusServiceUnavailable, "storage not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// statusFor maps a domain error to its HTTP status code.
func statusFor(err error) int {
	var (
		vErr  *domain.ValidationError
		rfErr *resume.FieldError
		tnf   *domain.TaskNotFoundError
		jnf   *domain.JobNotFoundError
		isErr *domain.InvalidStateError
		rsErr *domain.RemoteServiceError
		rlErr *domain.RateLimitExceededError
		mbErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &mbErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &vErr), errors.As(err, &rfErr):
		return http.StatusBadRequest
	case errors.As(err, &tnf), errors.As(err, &jnf), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &isErr):
		return http.StatusConflict
	case errors.As(err, &rlErr):
		return http.StatusTooManyRequests
	case errors.As(err, &rsErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail writes err with its mapped status. Internal errors are logged and
// hidden from the client.
func (h *REST) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if code == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "60")
	}
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, code, "internal error")
		return
	}
	writeError(w, code, err.Error())
}

// decode reads a JSON body into v.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbErr *http.MaxBytesError
		if errors.As(err, &mbErr) {
			return err
		}
		return &domain.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Field: name, Reason: "must be an integer"}
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
