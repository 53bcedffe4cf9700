package kv

import (
	"context"
	"iter"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory Store implementation backed by a map.
// It is safe for concurrent use and intended primarily for testing.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates a new in-memory Store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	v, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.mu.Lock()
	m.data[key] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) iter.Seq2[Entry, error] {
	// Snapshot matching entries under read lock, then yield outside it.
	m.mu.RLock()
	var matches []Entry
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			cp := make([]byte, len(v))
			copy(cp, v)
			matches = append(matches, Entry{Key: k, Value: cp})
		}
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].Key < matches[j].Key })

	return func(yield func(Entry, error) bool) {
		for _, e := range matches {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (m *Memory) Close() error { return nil }

// Compile-time interface check.
var _ Store = (*Memory)(nil)
