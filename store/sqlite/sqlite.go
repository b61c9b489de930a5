// Package sqlite provides a file-backed checkpoint saver suitable for
// single-host deployments that need resume-after-restart.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/phantomlabs/beastmode/store"
)

// Saver implements store.Saver on a SQLite database, one row per thread.
type Saver struct {
	db        *sql.DB
	tableName string
}

var _ store.Saver = (*Saver)(nil)

// Options configures the SQLite saver.
type Options struct {
	Path      string
	TableName string // default "checkpoints"
}

// NewSaver opens (creating if needed) the database at opts.Path.
func NewSaver(opts Options) (*Saver, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "checkpoints"
	}

	s := &Saver{db: db, tableName: tableName}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Saver) initSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			thread_id TEXT PRIMARY KEY,
			node_name TEXT NOT NULL,
			status TEXT NOT NULL,
			state TEXT NOT NULL,
			interrupt TEXT,
			step INTEGER NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Saver) Close() error {
	return s.db.Close()
}

// Put upserts the thread's checkpoint row.
func (s *Saver) Put(ctx context.Context, cp *store.Checkpoint) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (thread_id, node_name, status, state, interrupt, step, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			node_name = excluded.node_name,
			status = excluded.status,
			state = excluded.state,
			interrupt = excluded.interrupt,
			step = excluded.step,
			updated_at = excluded.updated_at
	`, s.tableName)

	_, err := s.db.ExecContext(ctx, query,
		cp.ThreadID,
		cp.NodeName,
		string(cp.Status),
		string(cp.State),
		string(cp.Interrupt),
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
		FROM %s WHERE thread_id = ?
	`, s.tableName)

	var cp store.Checkpoint
	var status, state, interrupt string
	err := s.db.QueryRowContext(ctx, query, threadID).Scan(
		&cp.ThreadID,
		&cp.NodeName,
		&status,
		&state,
		&interrupt,
		&cp.Step,
		&cp.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, threadID)
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	cp.Status = store.RunStatus(status)
	cp.State = []byte(state)
	if interrupt != "" {
		cp.Interrupt = []byte(interrupt)
	}
	return &cp, nil
}

// Delete removes the thread's checkpoint row.
func (s *Saver) Delete(ctx context.Context, threadID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE thread_id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, threadID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
