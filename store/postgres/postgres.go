// Package postgres provides a PostgreSQL-backed checkpoint saver for
// deployments that need resume-after-crash across hosts.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phantomlabs/beastmode/store"
)

// DBPool is the subset of pgxpool.Pool the saver needs. Tests substitute a
// pgxmock pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Saver implements store.Saver on PostgreSQL, one row per thread.
type Saver struct {
	pool      DBPool
	tableName string
}

var _ store.Saver = (*Saver)(nil)

// Options configures the Postgres saver.
type Options struct {
	ConnString string
	TableName  string // default "checkpoints"
}

// NewSaver creates a connection pool and the saver on top of it.
func NewSaver(ctx context.Context, opts Options) (*Saver, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return NewSaverWithPool(pool, opts.TableName), nil
}

// NewSaverWithPool wraps an existing pool; useful for tests with mocks.
func NewSaverWithPool(pool DBPool, tableName string) *Saver {
	if tableName == "" {
		tableName = "checkpoints"
	}
	return &Saver{pool: pool, tableName: tableName}
}

// InitSchema creates the checkpoint table if it doesn't exist.
func (s *Saver) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			thread_id TEXT PRIMARY KEY,
			node_name TEXT NOT NULL,
			status TEXT NOT NULL,
			state JSONB NOT NULL,
			interrupt JSONB,
			step INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Saver) Close() {
	s.pool.Close()
}

// Put upserts the thread's checkpoint row.
func (s *Saver) Put(ctx context.Context, cp *store.Checkpoint) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (thread_id, node_name, status, state, interrupt, step, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (thread_id) DO UPDATE SET
			node_name = EXCLUDED.node_name,
			status = EXCLUDED.status,
			state = EXCLUDED.state,
			interrupt = EXCLUDED.interrupt,
			step = EXCLUDED.step,
			updated_at = EXCLUDED.updated_at
	`, s.tableName)

	var interrupt []byte
	if len(cp.Interrupt) > 0 {
		interrupt = cp.Interrupt
	}
	_, err := s.pool.Exec(ctx, query,
		cp.ThreadID,
		cp.NodeName,
		string(cp.Status),
		[]byte(cp.State),
		interrupt,
		cp.Step,
		cp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Get loads the thread's checkpoint row.
func (s *Saver) Get(ctx context.Context, threadID string) (*store.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT thread_id, node_name, status, state, interrupt, step, updated_at
		FROM %s WHERE thread_id = $1
	`, s.tableName)

	var cp store.Checkpoint
	var status string
	var state, interrupt []byte
	err := s.pool.QueryRow(ctx, query, threadID).Scan(
		&cp.ThreadID,
		&cp.NodeName,
		&status,
		&state,
		&interrupt,
		&cp.Step,
		&cp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, threadID)
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	cp.Status = store.RunStatus(status)
	cp.State = state
	cp.Interrupt = interrupt
	return &cp, nil
}

// Delete removes the thread's checkpoint row.
func (s *Saver) Delete(ctx context.Context, threadID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE thread_id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, threadID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
