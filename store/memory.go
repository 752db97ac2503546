package store

import (
	"context"
	"sync"

	"github.com/BaSui01/submind/orchestrator"
)

// MemoryStore keeps summaries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*orchestrator.Summary
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*orchestrator.Summary)}
}

func (m *MemoryStore) Save(ctx context.Context, s *orchestrator.Summary) error {
	if err := validate(s); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.records[s.ID] = clone(s)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*orchestrator.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	s, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func (m *MemoryStore) List(ctx context.Context, opts ListOptions) ([]*orchestrator.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	all := make([]*orchestrator.Summary, 0, len(m.records))
	for _, s := range m.records {
		all = append(all, header(s))
	}
	return page(all, opts), nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrStoreClosed
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// NopStore discards everything. It backs store type "none".
type NopStore struct{}

func (NopStore) Save(context.Context, *orchestrator.Summary) error { return nil }
func (NopStore) Get(context.Context, string) (*orchestrator.Summary, error) {
	return nil, ErrNotFound
}
func (NopStore) List(context.Context, ListOptions) ([]*orchestrator.Summary, error) {
	return []*orchestrator.Summary{}, nil
}
func (NopStore) Delete(context.Context, string) error { return ErrNotFound }
func (NopStore) Ping(context.Context) error           { return nil }
func (NopStore) Close() error                         { return nil }
