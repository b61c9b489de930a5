// Package store defines the checkpoint contract: one durable snapshot per
// thread holding the merged state, the next-node cursor, and the run status.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// RunStatus is the lifecycle tag on a checkpoint.
type RunStatus string

const (
	// StatusCreated marks a run that has been registered but not yet stepped.
	StatusCreated RunStatus = "created"
	// StatusRunning marks a run between nodes.
	StatusRunning RunStatus = "running"
	// StatusSuspended marks a run waiting for an external resume value.
	StatusSuspended RunStatus = "suspended"
	// StatusCompleted marks a run that reached the terminal node.
	StatusCompleted RunStatus = "completed"
	// StatusFailed marks a run halted by a node-fatal failure.
	StatusFailed RunStatus = "failed"
)

// ErrNotFound is returned by Get when no checkpoint exists for a thread.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is the latest snapshot for one thread. NodeName is the node the
// run executes next (or the suspended node awaiting resume); State is the
// JSON-encoded merged aggregate.
type Checkpoint struct {
	ThreadID  string          `json:"thread_id"`
	NodeName  string          `json:"node_name"`
	Status    RunStatus       `json:"status"`
	State     json.RawMessage `json:"state"`
	Interrupt json.RawMessage `json:"interrupt,omitempty"`
	Step      int             `json:"step"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Saver persists checkpoints keyed by thread id. Implementations must keep
// distinct threads fully isolated; the in-memory saver suits single-process
// deployments, the sqlite/postgres/redis savers survive restarts.
type Saver interface {
	// Put stores the checkpoint, replacing any previous one for the thread.
	Put(ctx context.Context, cp *Checkpoint) error

	// Get returns the latest checkpoint for the thread, or ErrNotFound.
	Get(ctx context.Context, threadID string) (*Checkpoint, error)

	// Delete removes the checkpoint for the thread. Missing is not an error.
	Delete(ctx context.Context, threadID string) error
}
