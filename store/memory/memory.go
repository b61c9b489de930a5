// Package memory provides the in-process checkpoint saver. It does not
// survive restarts; use the sqlite, postgres, or redis savers when
// crash-recovery matters.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/phantomlabs/beastmode/store"
)

// Saver keeps the latest checkpoint per thread in a mutex-guarded map.
type Saver struct {
	mu          sync.RWMutex
	checkpoints map[string]*store.Checkpoint
}

var _ store.Saver = (*Saver)(nil)

// NewSaver creates an empty in-memory checkpoint saver.
func NewSaver() *Saver {
	return &Saver{checkpoints: make(map[string]*store.Checkpoint)}
}

// Put stores a copy of the checkpoint so callers cannot mutate it afterwards.
func (s *Saver) Put(_ context.Context, cp *store.Checkpoint) error {
	if cp.ThreadID == "" {
		return fmt.Errorf("checkpoint missing thread id")
	}
	clone := *cp
	clone.State = append([]byte(nil), cp.State...)
	clone.Interrupt = append([]byte(nil), cp.Interrupt...)

	s.mu.Lock()
	s.checkpoints[cp.ThreadID] = &clone
	s.mu.Unlock()
	return nil
}

// Get returns the latest checkpoint for the thread.
func (s *Saver) Get(_ context.Context, threadID string) (*store.Checkpoint, error) {
	s.mu.RLock()
	cp, ok := s.checkpoints[threadID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, threadID)
	}
	clone := *cp
	return &clone, nil
}

// Delete removes the checkpoint for the thread.
func (s *Saver) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	delete(s.checkpoints, threadID)
	s.mu.Unlock()
	return nil
}
