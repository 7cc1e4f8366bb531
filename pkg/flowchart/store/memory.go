package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryRepository keeps flowcharts in process memory.
// Payloads are stored in encoded form so callers never share maps with it.
type MemoryRepository struct {
	mu     sync.RWMutex
	rows   map[string]memoryRow
	closed bool
	now    func() time.Time
}

type memoryRow struct {
	name      string
	version   int64
	payload   []byte
	updatedAt time.Time
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[string]memoryRow), now: time.Now}
}

// Get implements Repository.
func (m *MemoryRepository) Get(ctx context.Context, id string) (*Flowchart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, notFound(id)
	}
	p, err := decode(row.payload)
	if err != nil {
		return nil, err
	}
	return &Flowchart{ID: id, Name: row.name, Version: row.version, Payload: p, UpdatedAt: row.updatedAt}, nil
}

// Save implements Repository.
func (m *MemoryRepository) Save(ctx context.Context, fc *Flowchart) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := encode(fc.Payload)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	current, exists := m.rows[fc.ID]
	switch {
	case !exists && fc.Version != 0:
		return 0, notFound(fc.ID)
	case exists && current.version != fc.Version:
		return 0, conflict(fc.ID, fc.Version, current.version)
	}

	next := fc.Version + 1
	m.rows[fc.ID] = memoryRow{name: fc.Name, version: next, payload: data, updatedAt: m.now().UTC()}
	return next, nil
}

// List implements Repository.
func (m *MemoryRepository) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	out := make([]Summary, 0, len(m.rows))
	for id, row := range m.rows {
		out = append(out, Summary{ID: id, Name: row.name, Version: row.version, UpdatedAt: row.updatedAt})
	}
	slices.SortFunc(out, func(a, b Summary) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// Delete implements Repository.
func (m *MemoryRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, ok := m.rows[id]; !ok {
		return notFound(id)
	}
	delete(m.rows, id)
	return nil
}

// Close implements Repository.
func (m *MemoryRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.rows = nil
	return nil
}
