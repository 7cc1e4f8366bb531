// Package checkpoint persists paused flowchart runs so they can be resumed
// later, possibly by another process.
package checkpoint

import (
	"context"
	"errors"
	"time"
)

// Store persists checkpoints of paused runs.
// Each Save appends to the run's history; Latest returns the newest entry.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save appends a checkpoint and sets its Sequence.
	Save(ctx context.Context, cp *Checkpoint) error

	// Latest returns the newest checkpoint for a run.
	// Returns ErrNotFound if the run has none.
	Latest(ctx context.Context, runID string) (*Checkpoint, error)

	// List returns metadata for all checkpoints of a run, ordered by sequence.
	// Returns an empty slice (not error) if the run has no checkpoints.
	List(ctx context.Context, runID string) ([]Info, error)

	// DeleteRun removes all checkpoints for a run.
	// Returns nil if the run has no checkpoints.
	DeleteRun(ctx context.Context, runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading the encoded state.
type Info struct {
	RunID     string
	NodeID    string
	Sequence  int
	Steps     int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a run has no checkpoint.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")

	// ErrVersionMismatch indicates a checkpoint written by an incompatible format version.
	ErrVersionMismatch = errors.New("checkpoint version mismatch")

	// ErrUnknownEncoding indicates an unsupported codec or compression name.
	ErrUnknownEncoding = errors.New("unknown checkpoint encoding")
)
