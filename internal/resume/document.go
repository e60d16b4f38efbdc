package resume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ramiqadoumi/go-resume-flow/internal/store"
)

const primaryKey = "primary"

// Document is the primary résumé being edited. It owns its Snapshot and hands
// out clones only; writes are persisted before they become visible.
type Document struct {
	mu     sync.RWMutex
	snap   *Snapshot
	store  store.Collection // nil = not persisted
	logger *slog.Logger
}

// NewDocument returns an empty document backed by c. c may be nil.
func NewDocument(c store.Collection, logger *slog.Logger) *Document {
	if logger == nil {
		logger = slog.Default()
	}
	return &Document{snap: &Snapshot{}, store: c, logger: logger}
}

// Load reads the persisted document, keeping the empty one when nothing has
// been saved yet.
func (d *Document) Load(ctx context.Context) error {
	if d.store == nil {
		return nil
	}
	data, err := d.store.Get(ctx, primaryKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load resume: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode resume: %w", err)
	}
	d.mu.Lock()
	d.snap = &snap
	d.mu.Unlock()
	return nil
}

// Snapshot returns a deep copy of the current résumé.
func (d *Document) Snapshot() *Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap.Clone()
}

// Replace swaps the whole résumé for snap.
func (d *Document) Replace(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return &FieldError{Field: "resume", Reason: "document is required"}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	next := snap.Clone()
	if err := d.persist(ctx, next); err != nil {
		return err
	}
	d.snap = next
	return nil
}

// Reset replaces one top-level section with raw, which must decode into that
// section's type.
func (d *Document) Reset(ctx context.Context, section string, raw json.RawMessage) error {
	applied, skipped, err := d.Apply(ctx, map[string]json.RawMessage{section: raw})
	if err != nil {
		return err
	}
	if len(applied) == 0 && len(skipped) > 0 {
		return &FieldError{Field: "section", Reason: fmt.Sprintf("unknown resume section %q", section)}
	}
	return nil
}

// Apply resets every known section present in sections in one write. Unknown
// keys are returned in skipped and left alone. If any known section fails to
// decode nothing is applied.
func (d *Document) Apply(ctx context.Context, sections map[string]json.RawMessage) (applied, skipped []string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := d.snap.Clone()
	for _, key := range Keys {
		raw, ok := sections[key]
		if !ok {
			continue
		}
		if err := next.resetSection(key, raw); err != nil {
			return nil, nil, &FieldError{Field: key, Reason: err.Error()}
		}
		applied = append(applied, key)
	}
	for key := range sections {
		if !isKey(key) {
			skipped = append(skipped, key)
		}
	}
	sort.Strings(skipped)

	if len(applied) == 0 {
		return nil, skipped, nil
	}
	if err := d.persist(ctx, next); err != nil {
		return nil, nil, err
	}
	d.snap = next
	d.logger.Info("resume sections reset", slog.Any("sections", applied))
	return applied, skipped, nil
}

func (d *Document) persist(ctx context.Context, snap *Snapshot) error {
	if d.store == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode resume: %w", err)
	}
	if err := d.store.Set(ctx, primaryKey, data, nil); err != nil {
		return fmt.Errorf("persist resume: %w", err)
	}
	return nil
}

// resetSection decodes raw into the field named by key.
func (s *Snapshot) resetSection(key string, raw json.RawMessage) error {
	switch key {
	case KeyBasics:
		return decodeInto(raw, &s.Basics)
	case KeySkills:
		return decodeInto(raw, &s.Skills)
	case KeyWork:
		return decodeInto(raw, &s.Work)
	case KeyEducation:
		return decodeInto(raw, &s.Education)
	case KeyProjects:
		return decodeInto(raw, &s.Projects)
	case KeyActivities:
		return decodeInto(raw, &s.Activities)
	case KeyVolunteer:
		return decodeInto(raw, &s.Volunteer)
	case KeyAwards:
		return decodeInto(raw, &s.Awards)
	}
	return fmt.Errorf("unknown section %q", key)
}

// decodeInto decodes into a fresh value so nothing of the old section
// survives, then assigns it.
func decodeInto[T any](raw json.RawMessage, dst *T) error {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = v
	return nil
}

func isKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
