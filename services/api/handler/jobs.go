package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
)

// JobView is a job plus whether it has an edit not yet synced to the backend.
type JobView struct {
	domain.Job
	Pending bool `json:"pending"`
}

// EditJobRequest is the JSON body for PATCH /api/v1/jobs/{id}.
type EditJobRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *REST) jobsEnabled(w http.ResponseWriter) bool {
	if h.Jobs == nil {
		writeError(w, http.StatusNotImplemented, "no job backend configured")
		return false
	}
	return true
}

func (h *REST) jobView(id string) (JobView, error) {
	job, ok := h.Jobs.Job(id)
	if !ok {
		return JobView{}, &domain.JobNotFoundError{JobID: id}
	}
	return JobView{Job: job, Pending: h.Jobs.Pending(id)}, nil
}

// ListJobs handles GET /api/v1/jobs.
func (h *REST) ListJobs(w http.ResponseWriter, _ *http.Request) {
	if !h.jobsEnabled(w) {
		return
	}
	jobs := h.Jobs.Jobs()
	out := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, JobView{Job: j, Pending: h.Jobs.Pending(j.ID)})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetJob handles GET /api/v1/jobs/{id}.
func (h *REST) GetJob(w http.ResponseWriter, r *http.Request) {
	if !h.jobsEnabled(w) {
		return
	}
	v, err := h.jobView(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// EditJob handles PATCH /api/v1/jobs/{id}. The edit is applied locally at
// once and synced to the backend after typing settles.
func (h *REST) EditJob(w http.ResponseWriter, r *http.Request) {
	if !h.jobsEnabled(w) {
		return
	}
	var req EditJobRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Jobs.Edit(id, req.Field, req.Value); err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.jobView(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, v)
}

// FlushJob handles POST /api/v1/jobs/{id}/flush and syncs a pending edit now.
func (h *REST) FlushJob(w http.ResponseWriter, r *http.Request) {
	if !h.jobsEnabled(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if _, ok := h.Jobs.Job(id); !ok {
		h.fail(w, r, &domain.JobNotFoundError{JobID: id})
		return
	}
	h.Jobs.Flush(id)
	v, err := h.jobView(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
