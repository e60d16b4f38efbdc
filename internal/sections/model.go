package sections

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
	"github.com/ramiqadoumi/go-resume-flow/internal/store"
	"github.com/ramiqadoumi/go-resume-flow/pkg/telemetry"
)

const (
	configsKey = "configs"
	activeKey  = "active"
)

// Available is a registry entry annotated with its current visibility.
type Available struct {
	Descriptor
	Visible bool `json:"visible"`
	InOrder bool `json:"inOrder"`
}

// Model owns the per-template section configs and is the only writer of
// them. Every mutation is applied to a copy, persisted, and only then
// committed, so a failed write leaves the model unchanged.
type Model struct {
	mu           sync.RWMutex
	registry     *Registry
	defaults     []TemplateConfig
	configs      []TemplateConfig
	active       int
	store        store.Collection // nil = not persisted
	managedOrder bool
	logger       *slog.Logger
}

// Option configures a Model.
type Option func(*Model)

func WithStore(c store.Collection) Option { return func(m *Model) { m.store = c } }
func WithLogger(l *slog.Logger) Option    { return func(m *Model) { m.logger = l } }

// WithManagedOrder makes SetVisibility append a re-shown section to the
// order when it is missing. Without it SetVisibility only sets the flag.
func WithManagedOrder() Option { return func(m *Model) { m.managedOrder = true } }

// NewModel creates a model whose templates start at defaults.
func NewModel(reg *Registry, defaults []TemplateConfig, opts ...Option) *Model {
	m := &Model{
		registry: reg,
		defaults: cloneConfigs(defaults),
		configs:  cloneConfigs(defaults),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load restores persisted configs and the active template. Templates with no
// persisted config keep their defaults; persisted entries beyond the known
// templates are ignored.
func (m *Model) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.store.Get(ctx, configsKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load section configs: %w", err)
	default:
		var saved []TemplateConfig
		if err := json.Unmarshal(data, &saved); err != nil {
			return fmt.Errorf("decode section configs: %w", err)
		}
		for i := 0; i < len(saved) && i < len(m.configs); i++ {
			cfg := saved[i].Clone()
			m.configs[i] = cfg
		}
	}

	raw, err := m.store.Get(ctx, activeKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load active template: %w", err)
	default:
		idx, convErr := strconv.Atoi(string(raw))
		if convErr != nil || idx < 0 || idx >= len(m.configs) {
			m.logger.Warn("ignoring persisted active template", slog.String("value", string(raw)))
			break
		}
		m.active = idx
	}
	return nil
}

// TemplateCount returns the number of selectable templates.
func (m *Model) TemplateCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}

// ActiveTemplate returns the selected template index.
func (m *Model) ActiveTemplate() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// SelectTemplate switches the active template.
func (m *Model) SelectTemplate(ctx context.Context, idx int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkIndex(idx); err != nil {
		return err
	}
	if m.store != nil {
		if err := m.store.Set(ctx, activeKey, []byte(strconv.Itoa(idx)), nil); err != nil {
			return fmt.Errorf("persist active template: %w", err)
		}
	}
	m.active = idx
	telemetry.SectionMutations.WithLabelValues("select_template").Inc()
	return nil
}

// CurrentConfig returns a copy of the active template's config.
func (m *Model) CurrentConfig() TemplateConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configs[m.active].Clone()
}

// Config returns a copy of template idx's config.
func (m *Model) Config(idx int) (TemplateConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkIndex(idx); err != nil {
		return TemplateConfig{}, err
	}
	return m.configs[idx].Clone(), nil
}

// SectionOrder returns the stored, unfiltered order of the active template.
func (m *Model) SectionOrder() []ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ID{}, m.configs[m.active].SectionOrder...)
}

// Visible returns the active template's render list.
func (m *Model) Visible() []ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := m.configs[m.active]
	return Filter(cfg.SectionOrder, cfg.VisibilityFlags, m.registry)
}

// AvailableSections lists every registered section for toggling, in
// registry order.
func (m *Model) AvailableSections() []Available {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := m.configs[m.active]
	inOrder := make(map[ID]bool, len(cfg.SectionOrder))
	for _, id := range cfg.SectionOrder {
		inOrder[id] = true
	}
	ids := m.registry.AllIDs()
	out := make([]Available, 0, len(ids))
	for _, id := range ids {
		d, _ := m.registry.Get(id)
		v, set := cfg.VisibilityFlags[d.VisibilityKey]
		out = append(out, Available{Descriptor: d, Visible: !set || v, InOrder: inOrder[id]})
	}
	return out
}

// UpdateSectionOrder replaces the active template's order wholesale. The
// caller computes the permutation; unknown or repeated ids are rejected.
func (m *Model) UpdateSectionOrder(ctx context.Context, order []ID) error {
	if err := validateOrder(order, m.registry); err != nil {
		return err
	}
	return m.mutate(ctx, "update_order", func(cfg *TemplateConfig) error {
		cfg.SectionOrder = append([]ID{}, order...)
		return nil
	})
}

// ToggleVisibility sets one visibility flag of the active template. It never
// touches the order: re-showing a section that is missing from the order
// leaves it hidden until the caller appends it.
func (m *Model) ToggleVisibility(ctx context.Context, key ConfigKey, visible bool) error {
	if _, ok := m.registry.ByKey(key); !ok {
		return &domain.ValidationError{Field: "visibilityKey", Reason: fmt.Sprintf("unknown key %q", key)}
	}
	return m.mutate(ctx, "toggle_visibility", func(cfg *TemplateConfig) error {
		cfg.VisibilityFlags[key] = visible
		return nil
	})
}

// SetVisibility sets the flag for section id. With managed order enabled a
// section shown again is appended to the order when absent.
func (m *Model) SetVisibility(ctx context.Context, id ID, visible bool) error {
	d, ok := m.registry.Get(id)
	if !ok {
		return &domain.ValidationError{Field: "section", Reason: fmt.Sprintf("unknown section %q", id)}
	}
	return m.mutate(ctx, "set_visibility", func(cfg *TemplateConfig) error {
		cfg.VisibilityFlags[d.VisibilityKey] = visible
		if visible && m.managedOrder && !containsID(cfg.SectionOrder, id) {
			cfg.SectionOrder = append(cfg.SectionOrder, id)
		}
		return nil
	})
}

// ResetToDefault restores template idx to its compiled-in default. Other
// templates are untouched.
func (m *Model) ResetToDefault(ctx context.Context, idx int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkIndex(idx); err != nil {
		return err
	}
	next := cloneConfigs(m.configs)
	next[idx] = m.defaults[idx].Clone()
	if err := m.persist(ctx, next); err != nil {
		return err
	}
	m.configs = next
	telemetry.SectionMutations.WithLabelValues("reset").Inc()
	m.logger.Info("template reset to default", slog.Int("template", idx))
	return nil
}

// mutate applies fn to a copy of the active config and commits it once the
// copy is persisted.
func (m *Model) mutate(ctx context.Context, op string, fn func(cfg *TemplateConfig) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := cloneConfigs(m.configs)
	if err := fn(&next[m.active]); err != nil {
		return err
	}
	if err := m.persist(ctx, next); err != nil {
		return err
	}
	m.configs = next
	telemetry.SectionMutations.WithLabelValues(op).Inc()
	return nil
}

// persist writes configs. Caller holds the write lock.
func (m *Model) persist(ctx context.Context, configs []TemplateConfig) error {
	if m.store == nil {
		return nil
	}
	data, err := json.Marshal(configs)
	if err != nil {
		return fmt.Errorf("encode section configs: %w", err)
	}
	if err := m.store.Set(ctx, configsKey, data, nil); err != nil {
		return fmt.Errorf("persist section configs: %w", err)
	}
	return nil
}

func (m *Model) checkIndex(idx int) error {
	if idx < 0 || idx >= len(m.configs) {
		return &domain.ValidationError{
			Field:  "template",
			Reason: fmt.Sprintf("index %d out of range [0,%d)", idx, len(m.configs)),
		}
	}
	return nil
}

func validateOrder(order []ID, reg *Registry) error {
	seen := make(map[ID]bool, len(order))
	for _, id := range order {
		if _, ok := reg.Get(id); !ok {
			return &domain.ValidationError{Field: "sectionOrder", Reason: fmt.Sprintf("unknown section %q", id)}
		}
		if seen[id] {
			return &domain.ValidationError{Field: "sectionOrder", Reason: fmt.Sprintf("duplicate section %q", id)}
		}
		seen[id] = true
	}
	return nil
}

func containsID(ids []ID, id ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func cloneConfigs(in []TemplateConfig) []TemplateConfig {
	out := make([]TemplateConfig, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
