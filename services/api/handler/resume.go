package handler

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
)

// GetResume handles GET /api/v1/resume.
func (h *REST) GetResume(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Document.Snapshot())
}

// ReplaceResume handles PUT /api/v1/resume.
func (h *REST) ReplaceResume(w http.ResponseWriter, r *http.Request) {
	var snap resume.Snapshot
	if err := decode(r, &snap); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Document.Replace(r.Context(), &snap); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Document.Snapshot())
}

// ResetResumeSection handles PUT /api/v1/resume/{section}.
func (h *REST) ResetResumeSection(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decode(r, &raw); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Document.Reset(r.Context(), chi.URLParam(r, "section"), raw); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Document.Snapshot())
}

// ExportResume handles GET /api/v1/resume/export as a file download.
func (h *REST) ExportResume(w http.ResponseWriter, r *http.Request) {
	snap := h.Document.Snapshot()
	name := resume.ExportFileName(snap.Basics.Name, h.Now())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if err := resume.Export(w, snap); err != nil {
		h.logger.Error("export failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	}
}

// ImportResume handles POST /api/v1/resume/import.
func (h *REST) ImportResume(w http.ResponseWriter, r *http.Request) {
	res, err := resume.Import(r.Context(), r.Body, h.Document)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("resume imported", slog.Any("applied", res.Applied), slog.Any("skipped", res.Skipped))
	writeJSON(w, http.StatusOK, res)
}
