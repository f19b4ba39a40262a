package querycache

import (
	"context"
	"slices"
	"sync"
)

var _ Store[struct{}] = (*MemoryStore[struct{}])(nil)

type MemoryStore[P any] struct {
	entries map[string]Entry[P]
	mu      sync.RWMutex
}

func NewMemoryStore[P any]() *MemoryStore[P] {
	return &MemoryStore[P]{
		entries: make(map[string]Entry[P]),
	}
}

func (m *MemoryStore[P]) Get(_ context.Context, key Key) (Data[P], error) {
	m.mu.RLock()
	e, ok := m.entries[key.String()]
	m.mu.RUnlock()

	if !ok {
		return Data[P]{}, ErrNotFound
	}
	return e.Data.clone(), nil
}

func (m *MemoryStore[P]) Set(_ context.Context, key Key, data Data[P]) error {
	m.mu.Lock()
	m.entries[key.String()] = Entry[P]{Key: slices.Clone(key), Data: data.clone()}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore[P]) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	delete(m.entries, key.String())
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore[P]) List(_ context.Context, prefix Key) ([]Entry[P], error) {
	m.mu.RLock()
	entries := make([]Entry[P], 0, len(m.entries))
	for _, e := range m.entries {
		if e.Key.HasPrefix(prefix) {
			entries = append(entries, Entry[P]{Key: slices.Clone(e.Key), Data: e.Data.clone()})
		}
	}
	m.mu.RUnlock()

	sortEntries(entries)
	return entries, nil
}

func (m *MemoryStore[P]) Close() error {
	m.mu.Lock()
	clear(m.entries)
	m.mu.Unlock()
	return nil
}
