package graph

import (
	"context"
	"errors"
	"fmt"
)

// END is the terminal sentinel. Routing a run to END completes it.
const END = "END"

var (
	// ErrEntryPointNotSet is returned by Compile when no entry point was set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when an edge or route references an unknown node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when a non-terminal node has no route out.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrAmbiguousRouting is returned by Compile when a node declares both an
	// unconditional and a conditional outgoing edge.
	ErrAmbiguousRouting = errors.New("node has both unconditional and conditional outgoing edges")

	// ErrUndeclaredChannel is returned by Compile when a node declares a write
	// to a channel the schema does not register.
	ErrUndeclaredChannel = errors.New("write to undeclared channel")

	// ErrNotSuspended is returned by Resume when the thread is not waiting for input.
	ErrNotSuspended = errors.New("run is not suspended")
)

// NodeFunc is the unit of work. It receives the current merged state and a
// per-run context, and returns either a partial update or a suspend request.
// A returned error is a node-fatal failure: the runner marks the run FAILED
// and stops. Transient failures (rate limits and such) must be retried inside
// the node or its collaborators before surfacing here.
type NodeFunc[S, U any] func(ctx context.Context, state S, run *RunContext) (*NodeResult[U], error)

// Predicate resolves the successor of a node from the just-merged state.
// Predicates must be pure: they re-run during checkpoint replay.
type Predicate[S any] func(state S) string

// Node is a named unit of work plus the channels it is allowed to write.
type Node[S, U any] struct {
	Name        string
	Description string
	Writes      []string
	Function    NodeFunc[S, U]
}

// Edge is an unconditional connection between two nodes.
type Edge struct {
	From string
	To   string
}

// NodeResult is the tagged outcome of a node invocation: a partial state
// update, or a request to suspend the run until an external actor resumes it.
type NodeResult[U any] struct {
	update    U
	suspended bool
	payload   any
}

// Update wraps a partial state update. Fields the node has no opinion about
// must be left unset; the schema's reducers treat absence as "keep current".
func Update[U any](u U) *NodeResult[U] {
	return &NodeResult[U]{update: u}
}

// Suspend requests an interrupt. The runner persists a SUSPENDED checkpoint
// carrying payload and returns control to the caller; a later Resume re-enters
// the same node with the resume value available on the RunContext.
func Suspend[U any](payload any) *NodeResult[U] {
	return &NodeResult[U]{suspended: true, payload: payload}
}

// Suspended reports whether the result is an interrupt request.
func (r *NodeResult[U]) Suspended() bool { return r.suspended }

// Payload returns the interrupt payload for a suspended result.
func (r *NodeResult[U]) Payload() any { return r.payload }

// Update returns the partial update for a non-suspended result.
func (r *NodeResult[U]) Value() U { return r.update }

// Interrupt is returned (as an error) by Run/Resume when a node suspended the
// run. Callers detect it with errors.As, surface Value to the human actor, and
// later call Resume with their answer.
type Interrupt struct {
	ThreadID string
	Node     string
	Value    any
}

func (e *Interrupt) Error() string {
	return fmt.Sprintf("run %s interrupted at node %s", e.ThreadID, e.Node)
}

// RunContext carries per-invocation runtime data into a node.
type RunContext struct {
	ThreadID string
	Step     int
	Metadata map[string]string

	resume    any
	hasResume bool
}

// ResumeValue returns the value supplied to Resume when this node is being
// re-entered after an interrupt. ok is false on a first (non-resumed) entry.
func (rc *RunContext) ResumeValue() (any, bool) {
	return rc.resume, rc.hasResume
}
