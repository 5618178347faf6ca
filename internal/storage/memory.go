package storage

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store used in development and tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]BundleRecord
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]BundleRecord),
		now:     time.Now,
	}
}

func (m *Memory) GetBundle(_ context.Context, key string) (*BundleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) PutBundle(_ context.Context, rec *BundleRecord) error {
	if rec == nil || rec.Key == "" {
		return ErrEmptyKey
	}

	stored := *rec
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = m.now()
	}

	m.mu.Lock()
	m.records[stored.Key] = stored
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeleteBundle(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.records, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) PurgeBundlesBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, rec := range m.records {
		if rec.UpdatedAt.Before(cutoff) {
			delete(m.records, key)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Close() error { return nil }

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
