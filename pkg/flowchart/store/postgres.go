package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository persists flowcharts in a PostgreSQL table with the
// payload stored as JSONB.
type PostgresRepository struct {
	pool *pgxpool.Pool
	own  bool
}

var _ Repository = (*PostgresRepository)(nil)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS flowcharts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		version BIGINT NOT NULL,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)
`

// NewPostgresRepository connects to dsn, verifies the connection and
// creates the flowcharts table if needed. Close releases the pool.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	r := &PostgresRepository{pool: pool, own: true}
	if err := r.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// NewPostgresRepositoryFromPool wraps an existing pool. The caller keeps
// ownership of the pool and must call Migrate before first use.
func NewPostgresRepositoryFromPool(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the flowcharts table if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Get implements Repository.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Flowchart, error) {
	query := `
		SELECT name, version, payload, updated_at
		FROM flowcharts
		WHERE id = $1
	`
	fc := &Flowchart{ID: id}
	var data []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(&fc.Name, &fc.Version, &data, &fc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get flowchart: %w", err)
	}
	if fc.Payload, err = decode(data); err != nil {
		return nil, err
	}
	return fc, nil
}

// Save implements Repository.
// Creation relies on the primary key and replacement on a version-guarded
// UPDATE, so concurrent writers are arbitrated by the database.
func (r *PostgresRepository) Save(ctx context.Context, fc *Flowchart) (int64, error) {
	data, err := encode(fc.Payload)
	if err != nil {
		return 0, err
	}
	next := fc.Version + 1
	now := time.Now().UTC()

	if fc.Version == 0 {
		tag, err := r.pool.Exec(ctx, `
			INSERT INTO flowcharts (id, name, version, payload, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, fc.ID, fc.Name, next, data, now)
		if err != nil {
			return 0, fmt.Errorf("insert flowchart: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return 0, r.mismatch(ctx, fc)
		}
		return next, nil
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE flowcharts
		SET name = $2, version = $3, payload = $4, updated_at = $5
		WHERE id = $1 AND version = $6
	`, fc.ID, fc.Name, next, data, now, fc.Version)
	if err != nil {
		return 0, fmt.Errorf("update flowchart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, r.mismatch(ctx, fc)
	}
	return next, nil
}

// mismatch explains why a guarded write touched no row.
func (r *PostgresRepository) mismatch(ctx context.Context, fc *Flowchart) error {
	var current int64
	err := r.pool.QueryRow(ctx, `SELECT version FROM flowcharts WHERE id = $1`, fc.ID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(fc.ID)
	}
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	return conflict(fc.ID, fc.Version, current)
}

// List implements Repository.
func (r *PostgresRepository) List(ctx context.Context) ([]Summary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, version, updated_at
		FROM flowcharts
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list flowcharts: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Version, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan flowchart: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete implements Repository.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM flowcharts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete flowchart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

// Close implements Repository.
func (r *PostgresRepository) Close() error {
	if r.own {
		r.pool.Close()
	}
	return nil
}
