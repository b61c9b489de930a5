package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phantomlabs/beastmode/store"
)

func newTestSaver(t *testing.T) *Saver {
	t.Helper()
	saver, err := NewSaver(Options{Path: filepath.Join(t.TempDir(), "checkpoints.db")})
	require.NoError(t, err)
	t.Cleanup(func() { saver.Close() })
	return saver
}

func TestPutGetRoundTrip(t *testing.T) {
	saver := newTestSaver(t)
	ctx := context.Background()

	cp := &store.Checkpoint{
		ThreadID:  "t1",
		NodeName:  "vision",
		Status:    store.StatusRunning,
		State:     json.RawMessage(`{"status":"validated"}`),
		Step:      4,
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, saver.Put(ctx, cp))

	got, err := saver.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ThreadID)
	assert.Equal(t, "vision", got.NodeName)
	assert.Equal(t, store.StatusRunning, got.Status)
	assert.Equal(t, 4, got.Step)
	assert.JSONEq(t, `{"status":"validated"}`, string(got.State))
	assert.Nil(t, got.Interrupt)
}

func TestPutUpsertsOnThreadID(t *testing.T) {
	saver := newTestSaver(t)
	ctx := context.Background()

	first := &store.Checkpoint{
		ThreadID:  "t1",
		NodeName:  "human_approval",
		Status:    store.StatusSuspended,
		State:     json.RawMessage(`{}`),
		Interrupt: json.RawMessage(`{"niche":"Solar Installers"}`),
		Step:      2,
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, saver.Put(ctx, first))

	second := &store.Checkpoint{
		ThreadID:  "t1",
		NodeName:  "prospecting",
		Status:    store.StatusRunning,
		State:     json.RawMessage(`{"status":"validated"}`),
		Step:      3,
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, saver.Put(ctx, second))

	got, err := saver.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "prospecting", got.NodeName)
	assert.Equal(t, store.StatusRunning, got.Status)
	assert.Equal(t, 3, got.Step)
	assert.Nil(t, got.Interrupt)
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	ctx := context.Background()

	saver, err := NewSaver(Options{Path: path})
	require.NoError(t, err)
	require.NoError(t, saver.Put(ctx, &store.Checkpoint{
		ThreadID:  "t1",
		NodeName:  "closer",
		Status:    store.StatusCompleted,
		State:     json.RawMessage(`{"status":"complete"}`),
		Step:      6,
		UpdatedAt: time.Now().UTC(),
	}))
	require.NoError(t, saver.Close())

	reopened, err := NewSaver(Options{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	assert.Equal(t, "closer", got.NodeName)
}

func TestGetMissingThread(t *testing.T) {
	saver := newTestSaver(t)
	_, err := saver.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete(t *testing.T) {
	saver := newTestSaver(t)
	ctx := context.Background()

	require.NoError(t, saver.Put(ctx, &store.Checkpoint{
		ThreadID:  "t1",
		NodeName:  "feedback",
		Status:    store.StatusRunning,
		State:     json.RawMessage(`{}`),
		UpdatedAt: time.Now().UTC(),
	}))
	require.NoError(t, saver.Delete(ctx, "t1"))

	_, err := saver.Get(ctx, "t1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.NoError(t, saver.Delete(ctx, "t1"))
}

func TestCustomTableName(t *testing.T) {
	saver, err := NewSaver(Options{
		Path:      filepath.Join(t.TempDir(), "checkpoints.db"),
		TableName: "hunt_runs",
	})
	require.NoError(t, err)
	defer saver.Close()
	ctx := context.Background()

	require.NoError(t, saver.Put(ctx, &store.Checkpoint{
		ThreadID:  "t1",
		NodeName:  "strategist",
		Status:    store.StatusRunning,
		State:     json.RawMessage(`{}`),
		UpdatedAt: time.Now().UTC(),
	}))

	got, err := saver.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "strategist", got.NodeName)
}
