// Package notify delivers task status changes to the user through
// pluggable sinks.
package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
)

// Sink delivers one notification.
type Sink interface {
	Notify(ctx context.Context, tr *domain.Transition) error
	Name() string
}

// Registry holds the configured sinks by name.
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]Sink
}

func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]Sink)}
}

// Register adds s, replacing any sink with the same name.
func (r *Registry) Register(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[s.Name()] = s
}

// Get returns the sink registered as name.
func (r *Registry) Get(name string) (Sink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sinks[name]
	if !ok {
		return nil, &domain.ValidationError{Field: "sink", Reason: fmt.Sprintf("no sink named %q", name)}
	}
	return s, nil
}

// All returns every sink ordered by name.
func (r *Registry) All() []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Sink, 0, len(r.sinks))
	for _, s := range r.sinks {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}

// Notable reports whether tr is worth telling the user about: the task
// finished, one way or the other.
func Notable(tr *domain.Transition) bool {
	return tr != nil && tr.To.IsTerminal() && tr.From != tr.To
}
