package graph

import (
	"context"

	"github.com/phantomlabs/beastmode/log"
	"github.com/phantomlabs/beastmode/store"
)

// RunListener observes a run as it executes. Listeners are the observability
// seam: logging, metrics, and test instrumentation all hang off these hooks.
// Implementations must not mutate state.
type RunListener[S any] interface {
	OnNodeStart(ctx context.Context, threadID, node string, state S)
	OnNodeEnd(ctx context.Context, threadID, node string, state S, err error)
	OnCheckpoint(ctx context.Context, cp *store.Checkpoint)
}

// LoggingListener logs node transitions and checkpoint writes.
type LoggingListener[S any] struct {
	Logger log.Logger
}

// NewLoggingListener creates a listener writing to the given logger.
func NewLoggingListener[S any](logger log.Logger) *LoggingListener[S] {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &LoggingListener[S]{Logger: logger}
}

func (l *LoggingListener[S]) OnNodeStart(_ context.Context, threadID, node string, _ S) {
	l.Logger.Debug("run %s: entering node %s", threadID, node)
}

func (l *LoggingListener[S]) OnNodeEnd(_ context.Context, threadID, node string, _ S, err error) {
	if err != nil {
		l.Logger.Warn("run %s: node %s returned error: %v", threadID, node, err)
		return
	}
	l.Logger.Debug("run %s: node %s done", threadID, node)
}

func (l *LoggingListener[S]) OnCheckpoint(_ context.Context, cp *store.Checkpoint) {
	l.Logger.Debug("run %s: checkpoint step=%d next=%s status=%s", cp.ThreadID, cp.Step, cp.NodeName, cp.Status)
}
