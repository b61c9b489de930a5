package graph

// Schema defines the state structure and merge logic for a graph. S is the
// full aggregate threaded through every node, U the partial-update type nodes
// return. Apply must be pure: it runs on every merge, including replays during
// resume, so checkpointing stays deterministic.
type Schema[S, U any] interface {
	// Zero returns the initial state with every channel at its default.
	Zero() S

	// Apply folds a partial update into the current state through the
	// per-channel reducers. Channels the update does not touch keep their
	// current value.
	Apply(current S, update U) (S, error)

	// Fail records a node-fatal failure on the state (status + error reason).
	Fail(current S, reason string) S

	// Channels lists the registered channel names. Compile validates every
	// node's declared writes against this set.
	Channels() []string
}
