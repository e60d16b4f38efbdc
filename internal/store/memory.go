package store

import (
	"context"
	"sort"
	"sync"
)

type memRecord struct {
	value []byte
	idx   Index
}

// Memory is an in-process Collection. Values are copied on the way in and
// out so callers never alias stored bytes.
type Memory struct {
	mu      sync.RWMutex
	records map[string]memRecord
}

// NewMemory returns an empty in-memory collection.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]memRecord)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), rec.value...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, idx Index) error {
	cp := make(Index, len(idx))
	for k, v := range idx {
		cp[k] = v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = memRecord{value: append([]byte(nil), value...), idx: cp}
	return nil
}

func (m *Memory) List(_ context.Context) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(memRecord) bool { return true }), nil
}

func (m *Memory) ListByIndex(_ context.Context, name, value string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(r memRecord) bool { return r.idx[name] == value }), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; !ok {
		return ErrNotFound
	}
	delete(m.records, key)
	return nil
}

// collect returns matching values in key order. Caller holds the lock.
func (m *Memory) collect(match func(memRecord) bool) [][]byte {
	keys := make([]string, 0, len(m.records))
	for k, r := range m.records {
		if match(r) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		out = append(out, append([]byte(nil), m.records[k].value...))
	}
	return out
}
