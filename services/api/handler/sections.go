package handler

import (
	"net/http"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/layout"
	"github.com/ramiqadoumi/go-resume-flow/internal/sections"
)

// SectionsView is the GET /sections response body.
type SectionsView struct {
	ActiveTemplate  int                         `json:"activeTemplate"`
	TemplateCount   int                         `json:"templateCount"`
	SectionOrder    []sections.ID               `json:"sectionOrder"`
	VisibilityFlags map[sections.ConfigKey]bool `json:"visibilityFlags"`
	Visible         []sections.ID               `json:"visible"`
	Available       []sections.Available        `json:"available"`
}

// TemplateView describes one selectable template.
type TemplateView struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type orderRequest struct {
	Order []sections.ID `json:"order"`
}

// visibilityRequest names the section either by id or by its visibility key.
type visibilityRequest struct {
	Section sections.ID        `json:"section"`
	Key     sections.ConfigKey `json:"key"`
	Visible bool               `json:"visible"`
}

type templateRequest struct {
	Index *int `json:"index"`
}

func (h *REST) sectionsView() SectionsView {
	cfg := h.Model.CurrentConfig()
	return SectionsView{
		ActiveTemplate:  h.Model.ActiveTemplate(),
		TemplateCount:   h.Model.TemplateCount(),
		SectionOrder:    cfg.SectionOrder,
		VisibilityFlags: cfg.VisibilityFlags,
		Visible:         h.Model.Visible(),
		Available:       h.Model.AvailableSections(),
	}
}

// GetSections handles GET /api/v1/sections.
func (h *REST) GetSections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sectionsView())
}

// UpdateSectionOrder handles PUT /api/v1/sections/order.
func (h *REST) UpdateSectionOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Model.UpdateSectionOrder(r.Context(), req.Order); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sectionsView())
}

// SetVisibility handles PUT /api/v1/sections/visibility.
func (h *REST) SetVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	var err error
	switch {
	case req.Section != "":
		err = h.Model.SetVisibility(r.Context(), req.Section, req.Visible)
	case req.Key != "":
		err = h.Model.ToggleVisibility(r.Context(), req.Key, req.Visible)
	default:
		err = &domain.ValidationError{Field: "section", Reason: "either section or key is required"}
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sectionsView())
}

// ResetSections handles POST /api/v1/sections/reset. Without an index the
// active template is reset.
func (h *REST) ResetSections(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	idx := h.Model.ActiveTemplate()
	if req.Index != nil {
		idx = *req.Index
	}
	if err := h.Model.ResetToDefault(r.Context(), idx); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sectionsView())
}

// ListTemplates handles GET /api/v1/templates.
func (h *REST) ListTemplates(w http.ResponseWriter, r *http.Request) {
	active := h.Model.ActiveTemplate()
	out := make([]TemplateView, 0, h.Catalog.Len())
	for i := 0; i < h.Catalog.Len(); i++ {
		tpl, err := h.Catalog.Get(i)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		out = append(out, TemplateView{Index: i, Name: tpl.Name(), Active: i == active})
	}
	writeJSON(w, http.StatusOK, out)
}

// SelectTemplate handles PUT /api/v1/template.
func (h *REST) SelectTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Index == nil {
		h.fail(w, r, &domain.ValidationError{Field: "index", Reason: "is required"})
		return
	}
	if err := h.Model.SelectTemplate(r.Context(), *req.Index); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sectionsView())
}

// Preview handles GET /api/v1/preview. ?template= draws a template other
// than the active one. With ?format=text the layout is drawn as plain text of
// the given ?width.
func (h *REST) Preview(w http.ResponseWriter, r *http.Request) {
	idx, err := queryInt(r, "template", h.Model.ActiveTemplate())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	l, err := layout.RenderTemplate(h.Model, h.Catalog, h.Registry, h.Document.Snapshot(), idx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, l)
	case "text":
		width, err := queryInt(r, "width", 100)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(l.Terminal(width)))
	default:
		h.fail(w, r, &domain.ValidationError{Field: "format", Reason: "must be json or text"})
	}
}
