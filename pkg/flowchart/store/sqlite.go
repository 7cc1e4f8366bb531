package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteRepository persists flowcharts to a SQLite database file.
type SQLiteRepository struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (or creates) the database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS flowcharts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Get implements Repository.
func (s *SQLiteRepository) Get(ctx context.Context, id string) (*Flowchart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	fc := &Flowchart{ID: id}
	var (
		data      []byte
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, version, payload, updated_at FROM flowcharts WHERE id = ?`, id,
	).Scan(&fc.Name, &fc.Version, &data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get flowchart: %w", err)
	}
	if fc.Payload, err = decode(data); err != nil {
		return nil, err
	}
	if fc.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("get flowchart %s: updated_at: %w", id, err)
	}
	return fc, nil
}

// Save implements Repository.
func (s *SQLiteRepository) Save(ctx context.Context, fc *Flowchart) (int64, error) {
	data, err := encode(fc.Payload)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("save flowchart: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var current int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM flowcharts WHERE id = ?`, fc.ID).Scan(&current)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("read version: %w", err)
	}
	switch {
	case !exists && fc.Version != 0:
		return 0, notFound(fc.ID)
	case exists && current != fc.Version:
		return 0, conflict(fc.ID, fc.Version, current)
	}

	next := fc.Version + 1
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO flowcharts (id, name, version, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			version = excluded.version,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, fc.ID, fc.Name, next, data, now); err != nil {
		return 0, fmt.Errorf("save flowchart: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save flowchart: %w", err)
	}
	return next, nil
}

// List implements Repository.
func (s *SQLiteRepository) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, version, updated_at FROM flowcharts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list flowcharts: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum       Summary
			updatedAt string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Version, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan flowchart: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("list flowcharts: %s updated_at: %w", sum.ID, err)
		}
		sum.UpdatedAt = ts
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flowcharts: %w", err)
	}
	return out, nil
}

// Delete implements Repository.
func (s *SQLiteRepository) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM flowcharts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete flowchart: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(id)
	}
	return nil
}

// Close implements Repository.
func (s *SQLiteRepository) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
