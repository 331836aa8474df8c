package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store backed by a map. It is the default store
// for tests and single-process demos.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

// Put creates or replaces rec.
func (m *Memory) Put(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = make(map[string]Record)
	}
	m.records[rec.TaskID] = rec
	return nil
}

// Get returns the record for taskID, or ErrNotFound.
func (m *Memory) Get(ctx context.Context, taskID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[taskID]
	if !ok {
		return Record{}, &ErrNotFound{TaskID: taskID}
	}
	return rec, nil
}

// ExistsTerminal reports whether taskID's record, if any, is Success or
// Failed. A missing record is reported as not terminal rather than an
// error, since "not yet registered" and "still pending" gate the same way.
func (m *Memory) ExistsTerminal(ctx context.Context, taskID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[taskID]
	return ok && rec.Status.IsTerminal(), nil
}

// FetchAll returns every record in the store.
func (m *Memory) FetchAll(ctx context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

var _ Store = (*Memory)(nil)
