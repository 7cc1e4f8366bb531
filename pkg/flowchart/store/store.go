// Package store persists flowchart definitions with optimistic versioning.
//
// Every saved flowchart carries a version that starts at 1 and increases by
// one on each successful Save. A writer passes the version it last read; a
// mismatch fails with ErrVersionConflict so concurrent edits never silently
// overwrite each other.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/flowchart/pkg/flowchart"
)

// Flowchart is a stored flowchart definition.
type Flowchart struct {
	ID        string
	Name      string
	Version   int64
	Payload   flowchart.Payload
	UpdatedAt time.Time
}

// Summary describes a stored flowchart without its payload.
type Summary struct {
	ID        string
	Name      string
	Version   int64
	UpdatedAt time.Time
}

// Repository persists flowcharts.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns the current version of a flowchart.
	// Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id string) (*Flowchart, error)

	// Save writes fc and returns its new version.
	// fc.Version must be 0 to create a flowchart, or the currently stored
	// version to replace one. Any other value fails with ErrVersionConflict.
	Save(ctx context.Context, fc *Flowchart) (int64, error)

	// List returns all flowcharts ordered by id.
	List(ctx context.Context) ([]Summary, error)

	// Delete removes a flowchart. Returns ErrNotFound if the id is unknown.
	Delete(ctx context.Context, id string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for repository operations.
var (
	// ErrNotFound indicates the flowchart id is unknown.
	ErrNotFound = errors.New("flowchart not found")

	// ErrVersionConflict indicates the stored version differs from the one the writer read.
	ErrVersionConflict = errors.New("flowchart version conflict")

	// ErrClosed indicates the repository has been closed.
	ErrClosed = errors.New("repository closed")

	// ErrUnknownDriver indicates an unsupported repository driver name.
	ErrUnknownDriver = errors.New("unknown repository driver")
)

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open creates a repository for the named driver. dsn is a file path for
// sqlite and a connection string for postgres; memory ignores it.
func Open(ctx context.Context, driver, dsn string) (Repository, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryRepository(), nil
	case DriverSQLite:
		return NewSQLiteRepository(dsn)
	case DriverPostgres:
		return NewPostgresRepository(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func conflict(id string, want, got int64) error {
	return fmt.Errorf("%w: %s is at version %d, write was based on %d", ErrVersionConflict, id, got, want)
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func encode(p flowchart.Payload) ([]byte, error) {
	data, err := flowchart.EncodePayload(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

func decode(data []byte) (flowchart.Payload, error) {
	p, err := flowchart.DecodePayload(data)
	if err != nil {
		return flowchart.Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}
