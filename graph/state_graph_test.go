package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testState and testSchema are the minimal channel registry used across the
// engine tests: an append channel, an overwrite channel, and the error
// channel with clear-on-success semantics.
type testState struct {
	Values []string `json:"values"`
	Status string   `json:"status"`
	Err    string   `json:"err"`
}

type testUpdate struct {
	Add    string
	Status string
	Err    string
}

type testSchema struct{}

func (testSchema) Zero() testState { return testState{} }

func (testSchema) Apply(current testState, update *testUpdate) (testState, error) {
	next := current
	if update != nil {
		if update.Add != "" {
			next.Values = append(append([]string(nil), current.Values...), update.Add)
		}
		if update.Status != "" {
			next.Status = update.Status
		}
	}
	if update != nil && update.Err != "" {
		next.Err = update.Err
	} else {
		next.Err = ""
	}
	return next, nil
}

func (testSchema) Fail(current testState, reason string) testState {
	next := current
	next.Status = "failed"
	next.Err = reason
	return next
}

func (testSchema) Channels() []string { return []string{"values", "status", "err"} }

func appendNode(value string) NodeFunc[testState, *testUpdate] {
	return func(_ context.Context, _ testState, _ *RunContext) (*NodeResult[*testUpdate], error) {
		return Update(&testUpdate{Add: value}), nil
	}
}

func TestCompileRequiresEntryPoint(t *testing.T) {
	g := NewStateGraph[testState, *testUpdate]()
	g.SetSchema(testSchema{})
	g.AddNode("a", "", nil, appendNode("a"))

	_, err := g.Compile()
	assert.ErrorIs(t, err, ErrEntryPointNotSet)
}

func TestCompileRequiresKnownEdgeTargets(t *testing.T) {
	g := NewStateGraph[testState, *testUpdate]()
	g.SetSchema(testSchema{})
	g.AddNode("a", "", nil, appendNode("a"))
	g.SetEntryPoint("a")
	g.AddEdge("a", "ghost")

	_, err := g.Compile()
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestCompileRejectsAmbiguousRouting(t *testing.T) {
	g := NewStateGraph[testState, *testUpdate]()
	g.SetSchema(testSchema{})
	g.AddNode("a", "", nil, appendNode("a"))
	g.AddNode("b", "", nil, appendNode("b"))
	g.SetEntryPoint("a")
	g.AddEdge("a", "b")
	g.AddConditionalEdge("a", func(testState) string { return END })
	g.AddEdge("b", END)

	_, err := g.Compile()
	assert.ErrorIs(t, err, ErrAmbiguousRouting)
}

func TestCompileRejectsUndeclaredChannelWrites(t *testing.T) {
	g := NewStateGraph[testState, *testUpdate]()
	g.SetSchema(testSchema{})
	g.AddNode("a", "", []string{"values", "typo_channel"}, appendNode("a"))
	g.SetEntryPoint("a")
	g.AddEdge("a", END)

	_, err := g.Compile()
	assert.ErrorIs(t, err, ErrUndeclaredChannel)
}

func TestCompileRejectsUnreachableNodes(t *testing.T) {
	g := NewStateGraph[testState, *testUpdate]()
	g.SetSchema(testSchema{})
	g.AddNode("a", "", nil, appendNode("a"))
	g.AddNode("island", "", nil, appendNode("x"))
	g.SetEntryPoint("a")
	g.AddEdge("a", END)
	g.AddEdge("island", END)

	_, err := g.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestCompileRequiresOutgoingEdges(t *testing.T) {
	g := NewStateGraph[testState, *testUpdate]()
	g.SetSchema(testSchema{})
	g.AddNode("a", "", nil, appendNode("a"))
	g.SetEntryPoint("a")

	_, err := g.Compile()
	assert.ErrorIs(t, err, ErrNoOutgoingEdge)
}

func TestRouteConditional(t *testing.T) {
	g := NewStateGraph[testState, *testUpdate]()
	g.SetSchema(testSchema{})
	g.AddNode("decide", "", []string{"status"}, appendNode("d"))
	g.AddNode("yes", "", nil, appendNode("y"))
	g.SetEntryPoint("decide")
	g.AddConditionalEdge("decide", func(s testState) string {
		if s.Status == "go" {
			return "yes"
		}
		return END
	})
	g.AddEdge("yes", END)

	compiled, err := g.Compile()
	require.NoError(t, err)

	next, err := compiled.route("decide", testState{Status: "go"})
	require.NoError(t, err)
	assert.Equal(t, "yes", next)

	next, err = compiled.route("decide", testState{Status: "stop"})
	require.NoError(t, err)
	assert.Equal(t, END, next)
}

func TestRouteRejectsUnknownPredicateTarget(t *testing.T) {
	g := NewStateGraph[testState, *testUpdate]()
	g.SetSchema(testSchema{})
	g.AddNode("a", "", nil, appendNode("a"))
	g.SetEntryPoint("a")
	g.AddConditionalEdge("a", func(testState) string { return "ghost" })

	compiled, err := g.Compile()
	require.NoError(t, err)

	_, err = compiled.route("a", testState{})
	assert.ErrorIs(t, err, ErrNodeNotFound)
}
