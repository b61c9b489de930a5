package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phantomlabs/beastmode/store"
	"github.com/phantomlabs/beastmode/store/memory"
)

// recordingSaver keeps every checkpoint written, in order.
type recordingSaver struct {
	*memory.Saver
	mu  sync.Mutex
	log []store.Checkpoint
}

func newRecordingSaver() *recordingSaver {
	return &recordingSaver{Saver: memory.NewSaver()}
}

func (r *recordingSaver) Put(ctx context.Context, cp *store.Checkpoint) error {
	r.mu.Lock()
	r.log = append(r.log, *cp)
	r.mu.Unlock()
	return r.Saver.Put(ctx, cp)
}

func linearGraph(t *testing.T) *CompiledGraph[testState, *testUpdate] {
	t.Helper()
	g := NewStateGraph[testState, *testUpdate]()
	g.SetSchema(testSchema{})
	g.AddNode("first", "", []string{"values"}, appendNode("one"))
	g.AddNode("second", "", []string{"values"}, appendNode("two"))
	g.SetEntryPoint("first")
	g.AddEdge("first", "second")
	g.AddEdge("second", END)

	compiled, err := g.Compile()
	require.NoError(t, err)
	return compiled
}

func TestRunLinearGraph(t *testing.T) {
	saver := newRecordingSaver()
	runner := NewRunner(linearGraph(t), saver, nil)

	final, err := runner.Run(context.Background(), "t1", testState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, final.Values)

	// one checkpoint per node, the last tagged completed with the END cursor
	require.Len(t, saver.log, 2)
	assert.Equal(t, "second", saver.log[0].NodeName)
	assert.Equal(t, store.StatusRunning, saver.log[0].Status)
	assert.Equal(t, 1, saver.log[0].Step)
	assert.Equal(t, END, saver.log[1].NodeName)
	assert.Equal(t, store.StatusCompleted, saver.log[1].Status)
	assert.Equal(t, 2, saver.log[1].Step)
}

func TestRunIsolatesThreads(t *testing.T) {
	saver := newRecordingSaver()
	runner := NewRunner(linearGraph(t), saver, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := runner.Run(context.Background(), fmt.Sprintf("thread-%d", i), testState{})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		state, status, err := runner.Load(context.Background(), fmt.Sprintf("thread-%d", i))
		require.NoError(t, err)
		assert.Equal(t, store.StatusCompleted, status)
		assert.Equal(t, []string{"one", "two"}, state.Values)
	}
}

func TestNodeErrorWritesSingleFailedCheckpoint(t *testing.T) {
	g := NewStateGraph[testState, *testUpdate]()
	g.SetSchema(testSchema{})
	g.AddNode("boom", "", nil, func(context.Context, testState, *RunContext) (*NodeResult[*testUpdate], error) {
		return nil, errors.New("exploded")
	})
	g.AddNode("after", "", nil, func(context.Context, testState, *RunContext) (*NodeResult[*testUpdate], error) {
		t.Fatal("node after a failure must not run")
		return nil, nil
	})
	g.SetEntryPoint("boom")
	g.AddEdge("boom", "after")
	g.AddEdge("after", END)
	compiled, err := g.Compile()
	require.NoError(t, err)

	saver := newRecordingSaver()
	runner := NewRunner(compiled, saver, nil)

	final, err := runner.Run(context.Background(), "t1", testState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exploded")
	assert.Equal(t, "failed", final.Status)
	assert.Equal(t, "exploded", final.Err)

	require.Len(t, saver.log, 1)
	assert.Equal(t, store.StatusFailed, saver.log[0].Status)
}

func TestSuspendAndResume(t *testing.T) {
	g := NewStateGraph[testState, *testUpdate]()
	g.SetSchema(testSchema{})
	g.AddNode("ask", "", []string{"values"}, func(_ context.Context, _ testState, rc *RunContext) (*NodeResult[*testUpdate], error) {
		value, resumed := rc.ResumeValue()
		if !resumed {
			return Suspend[*testUpdate](map[string]string{"question": "proceed?"}), nil
		}
		return Update(&testUpdate{Add: fmt.Sprintf("answer=%v", value)}), nil
	})
	g.AddNode("after", "", []string{"values"}, appendNode("done"))
	g.SetEntryPoint("ask")
	g.AddEdge("ask", "after")
	g.AddEdge("after", END)
	compiled, err := g.Compile()
	require.NoError(t, err)

	saver := newRecordingSaver()
	runner := NewRunner(compiled, saver, nil)
	ctx := context.Background()

	_, err = runner.Run(ctx, "t1", testState{})
	var interrupt *Interrupt
	require.ErrorAs(t, err, &interrupt)
	assert.Equal(t, "ask", interrupt.Node)
	assert.Equal(t, "t1", interrupt.ThreadID)

	cp, err := saver.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusSuspended, cp.Status)
	assert.Equal(t, "ask", cp.NodeName)
	assert.JSONEq(t, `{"question": "proceed?"}`, string(cp.Interrupt))

	final, err := runner.Resume(ctx, "t1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"answer=true", "done"}, final.Values)

	_, _, err = runner.Load(ctx, "t1")
	require.NoError(t, err)
}

func TestResumeRequiresSuspendedRun(t *testing.T) {
	saver := newRecordingSaver()
	runner := NewRunner(linearGraph(t), saver, nil)
	ctx := context.Background()

	_, err := runner.Run(ctx, "t1", testState{})
	require.NoError(t, err)

	_, err = runner.Resume(ctx, "t1", true)
	assert.ErrorIs(t, err, ErrNotSuspended)

	_, err = runner.Resume(ctx, "missing", true)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResumeValueReachesOnlyTheInterruptedNode(t *testing.T) {
	var afterSawResume bool
	g := NewStateGraph[testState, *testUpdate]()
	g.SetSchema(testSchema{})
	g.AddNode("ask", "", nil, func(_ context.Context, _ testState, rc *RunContext) (*NodeResult[*testUpdate], error) {
		if _, resumed := rc.ResumeValue(); !resumed {
			return Suspend[*testUpdate]("need input"), nil
		}
		return Update[*testUpdate](nil), nil
	})
	g.AddNode("after", "", nil, func(_ context.Context, _ testState, rc *RunContext) (*NodeResult[*testUpdate], error) {
		_, afterSawResume = rc.ResumeValue()
		return Update[*testUpdate](nil), nil
	})
	g.SetEntryPoint("ask")
	g.AddEdge("ask", "after")
	g.AddEdge("after", END)
	compiled, err := g.Compile()
	require.NoError(t, err)

	runner := NewRunner(compiled, newRecordingSaver(), nil)
	ctx := context.Background()

	_, err = runner.Run(ctx, "t1", testState{})
	var interrupt *Interrupt
	require.ErrorAs(t, err, &interrupt)

	_, err = runner.Resume(ctx, "t1", "yes")
	require.NoError(t, err)
	assert.False(t, afterSawResume)
}

func TestEngineRetryPolicy(t *testing.T) {
	attempts := 0
	g := NewStateGraph[testState, *testUpdate]()
	g.SetSchema(testSchema{})
	g.SetRetryPolicy(&RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Retryable:   func(err error) bool { return err.Error() == "flaky" },
	})
	g.AddNode("flaky", "", []string{"values"}, func(context.Context, testState, *RunContext) (*NodeResult[*testUpdate], error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("flaky")
		}
		return Update(&testUpdate{Add: "ok"}), nil
	})
	g.SetEntryPoint("flaky")
	g.AddEdge("flaky", END)
	compiled, err := g.Compile()
	require.NoError(t, err)

	runner := NewRunner(compiled, newRecordingSaver(), nil)
	final, err := runner.Run(context.Background(), "t1", testState{})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []string{"ok"}, final.Values)
}

func TestCrashRecoveryResumesAtNextNode(t *testing.T) {
	saver := newRecordingSaver()
	runner := NewRunner(linearGraph(t), saver, nil)
	ctx := context.Background()

	_, err := runner.Run(ctx, "t1", testState{})
	require.NoError(t, err)

	// a fresh runner over the same saver sees the finished run exactly as
	// the original left it
	rebuilt := NewRunner(linearGraph(t), saver, nil)
	state, status, err := rebuilt.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, status)
	assert.Equal(t, []string{"one", "two"}, state.Values)
}
