package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/phantomlabs/beastmode/log"
	"github.com/phantomlabs/beastmode/retry"
	"github.com/phantomlabs/beastmode/store"
)

// RetryPolicy is the engine-level retry applied around every node invocation.
// Node-internal collaborators are expected to retry their own rate limits;
// this is a second line of defense for nodes that surface retryable errors.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retryable   func(error) bool
}

// Runner executes a compiled graph against a checkpoint saver. A runner is
// safe for concurrent use across distinct thread ids; runs never share
// mutable state except through the saver's keyed storage.
type Runner[S, U any] struct {
	graph     *CompiledGraph[S, U]
	saver     store.Saver
	logger    log.Logger
	listeners []RunListener[S]
}

// NewRunner wires a compiled graph to a checkpoint saver.
func NewRunner[S, U any](g *CompiledGraph[S, U], saver store.Saver, logger log.Logger) *Runner[S, U] {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Runner[S, U]{graph: g, saver: saver, logger: logger}
}

// AddListener registers an observer for node and checkpoint events.
func (r *Runner[S, U]) AddListener(l RunListener[S]) {
	r.listeners = append(r.listeners, l)
}

// Run executes the graph from its entry point under threadID. It returns the
// final state on completion, an *Interrupt error when a node suspended the
// run, or the failure that halted it.
func (r *Runner[S, U]) Run(ctx context.Context, threadID string, initial S) (S, error) {
	return r.loop(ctx, threadID, initial, r.graph.entryPoint, 0, nil, false)
}

// Resume re-enters a SUSPENDED run with the value the interrupt asked for.
// The interrupted node runs again from its start with the resume value
// available on the RunContext, so interrupt/resume is transparent to every
// downstream node.
func (r *Runner[S, U]) Resume(ctx context.Context, threadID string, value any) (S, error) {
	var zero S
	cp, err := r.saver.Get(ctx, threadID)
	if err != nil {
		return zero, fmt.Errorf("load checkpoint for %s: %w", threadID, err)
	}
	if cp.Status != store.StatusSuspended {
		return zero, fmt.Errorf("%w: thread %s is %s", ErrNotSuspended, threadID, cp.Status)
	}

	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return zero, fmt.Errorf("decode checkpoint state for %s: %w", threadID, err)
	}
	return r.loop(ctx, threadID, state, cp.NodeName, cp.Step, value, true)
}

// Load returns the latest persisted state and run status for a thread.
func (r *Runner[S, U]) Load(ctx context.Context, threadID string) (S, store.RunStatus, error) {
	var zero S
	cp, err := r.saver.Get(ctx, threadID)
	if err != nil {
		return zero, "", err
	}
	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return zero, "", fmt.Errorf("decode checkpoint state for %s: %w", threadID, err)
	}
	return state, cp.Status, nil
}

// loop is the scheduling core: invoke node, merge through the channel
// registry, route, checkpoint, repeat. The checkpoint is written strictly
// after each merge and carries the resolved next-node cursor, so a crash
// between nodes resumes at the correct node with the correct accumulated
// state, never re-running a completed node and never skipping one.
func (r *Runner[S, U]) loop(ctx context.Context, threadID string, state S, current string, step int, resume any, resumed bool) (S, error) {
	for current != END {
		node, ok := r.graph.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		rc := &RunContext{
			ThreadID:  threadID,
			Step:      step,
			Metadata:  map[string]string{"node": current},
			resume:    resume,
			hasResume: resumed,
		}
		resume, resumed = nil, false

		r.notifyNodeStart(ctx, threadID, current, state)
		result, err := r.invoke(ctx, node, state, rc)
		r.notifyNodeEnd(ctx, threadID, current, state, err)

		if err != nil {
			failed := r.graph.schema.Fail(state, err.Error())
			r.checkpoint(ctx, threadID, current, store.StatusFailed, failed, nil, step)
			r.logger.Error("run %s failed at node %s: %v", threadID, current, err)
			return failed, fmt.Errorf("node %s: %w", current, err)
		}

		if result.Suspended() {
			payload, merr := json.Marshal(result.Payload())
			if merr != nil {
				payload = nil
			}
			r.checkpoint(ctx, threadID, current, store.StatusSuspended, state, payload, step)
			r.logger.Info("run %s suspended at node %s", threadID, current)
			return state, &Interrupt{ThreadID: threadID, Node: current, Value: result.Payload()}
		}

		state, err = r.graph.schema.Apply(state, result.Value())
		if err != nil {
			failed := r.graph.schema.Fail(state, err.Error())
			r.checkpoint(ctx, threadID, current, store.StatusFailed, failed, nil, step)
			return failed, fmt.Errorf("merge after node %s: %w", current, err)
		}

		next, err := r.graph.route(current, state)
		if err != nil {
			failed := r.graph.schema.Fail(state, err.Error())
			r.checkpoint(ctx, threadID, current, store.StatusFailed, failed, nil, step)
			return failed, fmt.Errorf("route after node %s: %w", current, err)
		}

		step++
		status := store.StatusRunning
		if next == END {
			status = store.StatusCompleted
		}
		if err := r.checkpoint(ctx, threadID, next, status, state, nil, step); err != nil {
			return state, fmt.Errorf("persist checkpoint after node %s: %w", current, err)
		}

		current = next
	}
	return state, nil
}

// invoke runs one node, honoring the engine retry policy when set.
func (r *Runner[S, U]) invoke(ctx context.Context, node Node[S, U], state S, rc *RunContext) (*NodeResult[U], error) {
	if r.graph.retryPolicy == nil {
		return node.Function(ctx, state, rc)
	}

	policy := retry.Policy{
		MaxAttempts: r.graph.retryPolicy.MaxAttempts,
		BaseDelay:   r.graph.retryPolicy.BaseDelay,
		Factor:      2.0,
		Retryable:   r.graph.retryPolicy.Retryable,
	}
	var result *NodeResult[U]
	err := retry.Do(ctx, policy, func() error {
		var ferr error
		result, ferr = node.Function(ctx, state, rc)
		return ferr
	})
	return result, err
}

func (r *Runner[S, U]) checkpoint(ctx context.Context, threadID, nextNode string, status store.RunStatus, state S, interrupt json.RawMessage, step int) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	cp := &store.Checkpoint{
		ThreadID:  threadID,
		NodeName:  nextNode,
		Status:    status,
		State:     raw,
		Interrupt: interrupt,
		Step:      step,
		UpdatedAt: time.Now().UTC(),
	}
	if err := r.saver.Put(ctx, cp); err != nil {
		return err
	}
	for _, l := range r.listeners {
		l.OnCheckpoint(ctx, cp)
	}
	return nil
}

func (r *Runner[S, U]) notifyNodeStart(ctx context.Context, threadID, node string, state S) {
	for _, l := range r.listeners {
		l.OnNodeStart(ctx, threadID, node, state)
	}
}

func (r *Runner[S, U]) notifyNodeEnd(ctx context.Context, threadID, node string, state S, err error) {
	for _, l := range r.listeners {
		l.OnNodeEnd(ctx, threadID, node, state, err)
	}
}
