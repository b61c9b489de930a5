package graph

import (
	"fmt"
	"slices"
)

// StateGraph is the mutable builder for a workflow definition: named nodes,
// directed edges (unconditional and conditional), and one entry point.
// Compile freezes it into a CompiledGraph after structural validation.
type StateGraph[S, U any] struct {
	nodes            map[string]Node[S, U]
	edges            []Edge
	conditionalEdges map[string]Predicate[S]
	entryPoint       string
	schema           Schema[S, U]
	retryPolicy      *RetryPolicy
}

// NewStateGraph creates an empty state graph builder.
func NewStateGraph[S, U any]() *StateGraph[S, U] {
	return &StateGraph[S, U]{
		nodes:            make(map[string]Node[S, U]),
		conditionalEdges: make(map[string]Predicate[S]),
	}
}

// AddNode registers a node. writes declares every channel the node's updates
// may touch; Compile rejects writes to channels the schema does not register.
func (g *StateGraph[S, U]) AddNode(name, description string, writes []string, fn NodeFunc[S, U]) {
	g.nodes[name] = Node[S, U]{
		Name:        name,
		Description: description,
		Writes:      writes,
		Function:    fn,
	}
}

// AddEdge adds an unconditional edge from one node to another (or to END).
func (g *StateGraph[S, U]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// AddConditionalEdge routes from a node through a pure predicate evaluated
// against the just-merged state. The predicate must return a declared node
// name or END.
func (g *StateGraph[S, U]) AddConditionalEdge(from string, predicate Predicate[S]) {
	g.conditionalEdges[from] = predicate
}

// SetEntryPoint names the node a fresh run starts at.
func (g *StateGraph[S, U]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetSchema attaches the channel registry governing state merges.
func (g *StateGraph[S, U]) SetSchema(schema Schema[S, U]) {
	g.schema = schema
}

// SetRetryPolicy applies an engine-level retry policy to every node.
func (g *StateGraph[S, U]) SetRetryPolicy(policy *RetryPolicy) {
	g.retryPolicy = policy
}

// CompiledGraph is an immutable, validated graph definition ready to run.
type CompiledGraph[S, U any] struct {
	nodes            map[string]Node[S, U]
	edges            map[string]string
	conditionalEdges map[string]Predicate[S]
	entryPoint       string
	schema           Schema[S, U]
	retryPolicy      *RetryPolicy
}

// Compile validates the graph structure and freezes it. Validation errors are
// construction errors, not runtime ones: every edge endpoint must exist, a
// node may not carry both edge kinds, the chain is sequential (at most one
// unconditional successor), and every node must be reachable from the entry.
func (g *StateGraph[S, U]) Compile() (*CompiledGraph[S, U], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if g.schema == nil {
		return nil, fmt.Errorf("schema not set")
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: entry point %s", ErrNodeNotFound, g.entryPoint)
	}

	edges := make(map[string]string, len(g.edges))
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge from %s", ErrNodeNotFound, e.From)
		}
		if e.To != END {
			if _, ok := g.nodes[e.To]; !ok {
				return nil, fmt.Errorf("%w: edge to %s", ErrNodeNotFound, e.To)
			}
		}
		if _, dup := edges[e.From]; dup {
			return nil, fmt.Errorf("node %s has more than one unconditional outgoing edge", e.From)
		}
		if _, cond := g.conditionalEdges[e.From]; cond {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguousRouting, e.From)
		}
		edges[e.From] = e.To
	}
	for from := range g.conditionalEdges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: conditional edge from %s", ErrNodeNotFound, from)
		}
	}

	channels := g.schema.Channels()
	for name, node := range g.nodes {
		for _, w := range node.Writes {
			if !slices.Contains(channels, w) {
				return nil, fmt.Errorf("%w: node %s writes %q", ErrUndeclaredChannel, name, w)
			}
		}
	}

	if err := g.checkReachability(edges); err != nil {
		return nil, err
	}

	return &CompiledGraph[S, U]{
		nodes:            g.nodes,
		edges:            edges,
		conditionalEdges: g.conditionalEdges,
		entryPoint:       g.entryPoint,
		schema:           g.schema,
		retryPolicy:      g.retryPolicy,
	}, nil
}

// checkReachability walks unconditional edges and conservatively assumes a
// conditional edge may reach any node; every declared node must be reachable
// from the entry point and every non-terminal node must have a route out.
func (g *StateGraph[S, U]) checkReachability(edges map[string]string) error {
	reachable := map[string]bool{g.entryPoint: true}
	frontier := []string{g.entryPoint}
	for len(frontier) > 0 {
		name := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		to, hasEdge := edges[name]
		_, hasCond := g.conditionalEdges[name]
		if !hasEdge && !hasCond {
			return fmt.Errorf("%w: %s", ErrNoOutgoingEdge, name)
		}
		if hasEdge && to != END && !reachable[to] {
			reachable[to] = true
			frontier = append(frontier, to)
		}
		if hasCond {
			// A predicate may return any declared node; treat them all as
			// reachable so chains behind a branch still get validated.
			for candidate := range g.nodes {
				if !reachable[candidate] {
					reachable[candidate] = true
					frontier = append(frontier, candidate)
				}
			}
		}
	}
	for name := range g.nodes {
		if !reachable[name] {
			return fmt.Errorf("node %s is unreachable from entry point %s", name, g.entryPoint)
		}
	}
	return nil
}

// EntryPoint returns the name of the entry node.
func (c *CompiledGraph[S, U]) EntryPoint() string { return c.entryPoint }

// Schema returns the channel registry the graph merges through.
func (c *CompiledGraph[S, U]) Schema() Schema[S, U] { return c.schema }

// route resolves the successor of a completed node against the merged state.
func (c *CompiledGraph[S, U]) route(name string, state S) (string, error) {
	if predicate, ok := c.conditionalEdges[name]; ok {
		next := predicate(state)
		if next == "" {
			return "", fmt.Errorf("conditional edge from %s returned empty target", name)
		}
		if next != END {
			if _, ok := c.nodes[next]; !ok {
				return "", fmt.Errorf("%w: conditional edge from %s returned %s", ErrNodeNotFound, name, next)
			}
		}
		return next, nil
	}
	if to, ok := c.edges[name]; ok {
		return to, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, name)
}
