package checkpoint

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory checkpoint store for tests and single-process
// debugging sessions. Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[string][]*Checkpoint // runID -> history, oldest first
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string][]*Checkpoint)}
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, cp *Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	history := m.runs[cp.RunID]
	cp.Sequence = len(history) + 1
	m.runs[cp.RunID] = append(history, cp.Clone())
	return nil
}

// Latest implements Store.
func (m *MemoryStore) Latest(ctx context.Context, runID string) (*Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	history := m.runs[runID]
	if len(history) == 0 {
		return nil, ErrNotFound
	}
	return history[len(history)-1].Clone(), nil
}

// List implements Store.
func (m *MemoryStore) List(ctx context.Context, runID string) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	history := m.runs[runID]
	infos := make([]Info, 0, len(history))
	for _, cp := range history {
		infos = append(infos, Info{
			RunID:     cp.RunID,
			NodeID:    cp.NodeID,
			Sequence:  cp.Sequence,
			Steps:     cp.Steps,
			Timestamp: cp.Timestamp,
			Size:      int64(len(cp.State)),
		})
	}
	return infos, nil
}

// DeleteRun implements Store.
func (m *MemoryStore) DeleteRun(ctx context.Context, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.runs, runID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.runs = nil
	return nil
}

// Len returns the total number of checkpoints across all runs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, history := range m.runs {
		count += len(history)
	}
	return count
}
