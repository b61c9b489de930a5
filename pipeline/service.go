package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/phantomlabs/beastmode/agents"
	"github.com/phantomlabs/beastmode/graph"
	"github.com/phantomlabs/beastmode/log"
	"github.com/phantomlabs/beastmode/state"
	"github.com/phantomlabs/beastmode/store"
	"github.com/phantomlabs/beastmode/tool"
)

// Service drives pipeline runs for the HTTP server and CLI. Hunts execute in
// the background; progress reaches the human through the followup sender
// keyed by the run's interaction token.
type Service struct {
	runner   *graph.Runner[state.AgentState, *state.Update]
	deps     *agents.Deps
	followup *tool.FollowupSender
	logger   log.Logger
}

// NewService wires a compiled graph, its checkpoint saver, and the shared
// collaborators.
func NewService(g *graph.CompiledGraph[state.AgentState, *state.Update], saver store.Saver, deps *agents.Deps, followup *tool.FollowupSender, logger log.Logger) *Service {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Service{
		runner:   graph.NewRunner(g, saver, logger),
		deps:     deps,
		followup: followup,
		logger:   logger,
	}
}

// Runner exposes the underlying runner, mainly for listener registration.
func (s *Service) Runner() *graph.Runner[state.AgentState, *state.Update] {
	return s.runner
}

// StartHunt begins a run for the niche in the background and returns its
// thread id immediately.
func (s *Service) StartHunt(niche, discordToken string) string {
	threadID := uuid.New().String()
	go func() {
		// The trigger request finishes long before the run does; the run
		// owns its own lifetime.
		_, err := s.RunHunt(context.Background(), threadID, niche, discordToken)
		s.report(threadID, discordToken, err)
	}()
	return threadID
}

// RunHunt executes a run synchronously under the given thread id and returns
// the final state. An *Interrupt error means the run is waiting for
// approval, not that it failed.
func (s *Service) RunHunt(ctx context.Context, threadID, niche, discordToken string) (state.AgentState, error) {
	if niche == "" {
		niche = DefaultNiche
	}
	initial := state.NewRegistry().Zero()
	initial.Niche = niche
	initial.DiscordToken = discordToken

	s.logger.Info("hunt %s starting for niche %q", threadID, niche)
	return s.runner.Run(ctx, threadID, initial)
}

// Resume applies a reviewer decision to a suspended run in the background.
func (s *Service) Resume(threadID string, approve bool) {
	go func() {
		final, err := s.runner.Resume(context.Background(), threadID, agents.ApprovalDecision{Approve: approve})
		s.report(threadID, final.DiscordToken, err)
	}()
}

// ResumeSync applies a reviewer decision and waits for the run to finish or
// suspend again.
func (s *Service) ResumeSync(ctx context.Context, threadID string, approve bool) (state.AgentState, error) {
	return s.runner.Resume(ctx, threadID, agents.ApprovalDecision{Approve: approve})
}

// ProcessLead runs the per-lead enrichment outside any graph run.
func (s *Service) ProcessLead(ctx context.Context, leadID, token string) error {
	return s.deps.ProcessLead(ctx, leadID, token)
}

// Status returns the latest persisted state and run status for a thread.
func (s *Service) Status(ctx context.Context, threadID string) (state.AgentState, store.RunStatus, error) {
	return s.runner.Load(ctx, threadID)
}

// report sends the end-of-run followup for a background execution.
func (s *Service) report(threadID, token string, err error) {
	var interrupt *graph.Interrupt
	switch {
	case errors.As(err, &interrupt):
		s.notifyToken(token, fmt.Sprintf("Hunt `%s` is paused for your approval. Reply with approve or reject.", threadID))
	case err != nil:
		s.logger.Error("hunt %s failed: %v", threadID, err)
		s.notifyToken(token, fmt.Sprintf("Hunt `%s` failed: %v", threadID, err))
	default:
		s.notifyToken(token, fmt.Sprintf("Hunt `%s` finished.", threadID))
	}
}

func (s *Service) notifyToken(token, content string) {
	ctx := context.Background()
	if s.followup != nil && token != "" {
		if err := s.followup.Send(ctx, token, content); err != nil {
			s.logger.Warn("followup failed: %v", err)
		}
		return
	}
	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.Notify(ctx, content); err != nil {
			s.logger.Warn("notification failed: %v", err)
		}
	}
}
