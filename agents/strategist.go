package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/phantomlabs/beastmode/db"
	"github.com/phantomlabs/beastmode/graph"
	"github.com/phantomlabs/beastmode/state"
)

const strategistPrompt = `Propose 5 specific, underserved B2B niches that would pay for
outbound lead generation services. Prefer boring, local, high-ticket trades
over tech. Respond with JSON: {"niches": ["...", "..."]}`

// dedupeDistance is the cosine distance under which a proposed niche counts
// as one we already researched.
const dedupeDistance = 0.2

// StrategistWrites is the channel write-set of the strategist node.
var StrategistWrites = []string{state.ChannelNiche, state.ChannelStatus, state.ChannelMessages}

// Strategist invents candidate niches, drops the ones already covered via
// embedding distance, saves the rest, and picks the first new one for this
// run. When every idea is a near-duplicate the run keeps its current niche.
func (d *Deps) Strategist(ctx context.Context, s state.AgentState, run *graph.RunContext) (*graph.NodeResult[*state.Update], error) {
	var resp struct {
		Niches []string `json:"niches"`
	}
	if err := d.LLM.GenerateJSON(ctx, strategistPrompt, &resp); err != nil {
		return nil, fmt.Errorf("generate niche ideas: %w", err)
	}

	var fresh []string
	for _, idea := range resp.Niches {
		isNew, err := d.registerNiche(ctx, idea)
		if err != nil {
			d.logger().Warn("run %s: skipping niche idea %q: %v", run.ThreadID, idea, err)
			continue
		}
		if isNew {
			fresh = append(fresh, idea)
		}
	}

	chosen := s.Niche
	if len(fresh) > 0 {
		chosen = fresh[0]
	}
	if chosen == "" {
		return nil, fmt.Errorf("strategist produced no usable niche")
	}

	return graph.Update(&state.Update{
		Niche:  state.Ptr(chosen),
		Status: state.Ptr(state.StatusResearching),
		Messages: []state.Message{
			state.NewMessage("assistant", fmt.Sprintf("Strategist picked %q (%d new of %d ideas).", chosen, len(fresh), len(resp.Niches))),
		},
	}), nil
}

// registerNiche embeds an idea, checks it against stored niches, and saves
// it as a candidate when it is genuinely new.
func (d *Deps) registerNiche(ctx context.Context, idea string) (bool, error) {
	embedding, err := d.LLM.Embed(ctx, idea)
	if err != nil {
		return false, err
	}

	match, err := d.Niches.MatchNiche(ctx, embedding)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return false, err
	}
	if match != nil && match.Distance < dedupeDistance {
		d.logger().Debug("niche idea %q deduplicated against %q (distance %.3f)", idea, match.Name, match.Distance)
		return false, nil
	}

	id, err := d.Niches.UpsertNiche(ctx, db.Niche{Name: idea, Status: "candidate"})
	if err != nil {
		return false, err
	}
	if err := d.Niches.SaveNicheEmbedding(ctx, id, embedding); err != nil {
		d.logger().Warn("failed to save embedding for niche %q: %v", idea, err)
	}
	return true, nil
}
