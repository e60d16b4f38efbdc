// Package debounce runs a keyed action once a key has been quiet for a fixed
// delay. Scheduling a key that already has a pending action replaces it, so
// bursts of edits collapse into the latest one.
package debounce

import (
	"sync"
	"time"
)

type pending struct {
	timer *time.Timer
	fn    func()
	gen   uint64
}

// Scheduler holds at most one pending action per key.
type Scheduler struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pending
	gen     uint64
	stopped bool
}

// New returns a scheduler that waits delay after the last Schedule of a key.
func New(delay time.Duration) *Scheduler {
	return &Scheduler{delay: delay, pending: make(map[string]*pending)}
}

// Schedule sets fn as the pending action for key, cancelling the previous
// one. It is a no-op after Stop.
func (s *Scheduler) Schedule(key string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
	}
	s.gen++
	gen := s.gen
	p := &pending{fn: fn, gen: gen}
	p.timer = time.AfterFunc(s.delay, func() { s.fire(key, gen) })
	s.pending[key] = p
}

// fire runs the action for key if it has not been superseded since gen.
func (s *Scheduler) fire(key string, gen uint64) {
	s.mu.Lock()
	p, ok := s.pending[key]
	if !ok || p.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.mu.Unlock()
	p.fn()
}

// Cancel drops the pending action for key. It reports whether one existed.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[key]
	if ok {
		p.timer.Stop()
		delete(s.pending, key)
	}
	return ok
}

// Flush runs the pending action for key now, on the caller's goroutine.
func (s *Scheduler) Flush(key string) bool {
	s.mu.Lock()
	p, ok := s.pending[key]
	if ok {
		p.timer.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()
	if ok {
		p.fn()
	}
	return ok
}

// FlushAll runs every pending action now.
func (s *Scheduler) FlushAll() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.pending))
	for key, p := range s.pending {
		p.timer.Stop()
		fns = append(fns, p.fn)
		delete(s.pending, key)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Pending reports whether key has an action waiting.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// Stop cancels every pending action and rejects new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, key)
	}
}
