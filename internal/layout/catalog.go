package layout

import (
	"fmt"
	"sync"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/resume"
	"github.com/ramiqadoumi/go-resume-flow/internal/sections"
)

// templateOverrides are the renderer overrides each built-in template layers
// over DefaultRenderers, keyed by template name.
var templateOverrides = map[string]Renderers{
	"modern":  {"skills": inlineSkills},
	"compact": {"work": compactWork, "skills": inlineSkills},
}

// Catalog maps template indexes to templates.
type Catalog struct {
	mu        sync.RWMutex
	templates []Template
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// FromSpecs builds the catalog of templates described by specs, in index
// order.
func FromSpecs(specs []sections.TemplateSpec) (*Catalog, error) {
	c := NewCatalog()
	for i, s := range specs {
		overrides := templateOverrides[s.Name]
		var t Template
		switch s.Layout {
		case KindSingleColumn, "":
			t = NewSingleColumn(s.Name, overrides)
		case KindTwoColumn:
			t = NewTwoColumn(s.Name, s.Sidebar, overrides)
		case KindGrid:
			t = NewGrid(s.Name, s.Columns, overrides)
		default:
			return nil, fmt.Errorf("template %d (%s): unknown layout %q", i, s.Name, s.Layout)
		}
		c.Register(t)
	}
	return c, nil
}

// Register appends t and returns its index. Safe to call concurrently.
func (c *Catalog) Register(t Template) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = append(c.templates, t)
	return len(c.templates) - 1
}

// Get returns the template at idx.
func (c *Catalog) Get(idx int) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if idx < 0 || idx >= len(c.templates) {
		return nil, &domain.ValidationError{
			Field:  "template",
			Reason: fmt.Sprintf("index %d out of range [0,%d)", idx, len(c.templates)),
		}
	}
	return c.templates[idx], nil
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// Render composes the active template of m over snap.
func Render(m *sections.Model, c *Catalog, reg *sections.Registry, snap *resume.Snapshot) (Layout, error) {
	return RenderTemplate(m, c, reg, snap, m.ActiveTemplate())
}

// RenderTemplate composes template idx with its own section config,
// whichever template is active.
func RenderTemplate(m *sections.Model, c *Catalog, reg *sections.Registry, snap *resume.Snapshot, idx int) (Layout, error) {
	t, err := c.Get(idx)
	if err != nil {
		return Layout{}, err
	}
	cfg, err := m.Config(idx)
	if err != nil {
		return Layout{}, err
	}
	return t.Compose(Input{
		Sections:  sections.Filter(cfg.SectionOrder, cfg.VisibilityFlags, reg),
		Renderers: DefaultRenderers(),
		Data:      snap,
		Registry:  reg,
	}), nil
}
