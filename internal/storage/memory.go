package storage

import (
	"context"
	"sync"
)

// MemoryStorage хранит записи в памяти. При переполнении вытесняются самые старые.
type MemoryStorage struct {
	mu         sync.RWMutex
	data       map[string]Entry
	order      []string
	maxEntries int
}

// NewMemoryStorage создаёт хранилище на maxEntries записей; 0 — без ограничения.
func NewMemoryStorage(maxEntries int) *MemoryStorage {
	return &MemoryStorage{
		data:       make(map[string]Entry),
		maxEntries: maxEntries,
	}
}

func (m *MemoryStorage) GetBatch(ctx context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if e, ok := m.data[key]; ok {
			out[key] = e.Value
		}
	}
	return out, nil
}

func (m *MemoryStorage) CreateBatch(ctx context.Context, items []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		if _, exists := m.data[item.Key]; exists {
			continue
		}
		m.data[item.Key] = item
		m.order = append(m.order, item.Key)
	}

	if m.maxEntries > 0 && len(m.order) > m.maxEntries {
		evict := len(m.order) - m.maxEntries
		for _, key := range m.order[:evict] {
			delete(m.data, key)
		}
		m.order = append([]string(nil), m.order[evict:]...)
	}
	return nil
}

// Len возвращает число записей.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	// In-memory хранилище всегда доступно
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
