package agents

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/phantomlabs/beastmode/db"
	"github.com/phantomlabs/beastmode/graph"
	"github.com/phantomlabs/beastmode/state"
)

const analyzePrompt = `You are a B2B market analyst. Below are research findings on the "%s" niche.

%s

Extract the niche's pain points and score its viability. Respond with JSON:
{
  "pain_points": [{"problem": "...", "why_it_hurts": "...", "pain_score": 1-10}],
  "analysis": "two-paragraph summary of the niche's viability",
  "scores": {"market_size": 1-10, "competition": 1-10, "willingness_to_pay": 1-10}
}`

// validationThreshold is the minimum overall score for a niche to proceed.
const validationThreshold = 7

type analysisResponse struct {
	PainPoints []state.PainPoint `json:"pain_points"`
	Analysis   string            `json:"analysis"`
	Scores     struct {
		MarketSize       int `json:"market_size"`
		Competition      int `json:"competition"`
		WillingnessToPay int `json:"willingness_to_pay"`
	} `json:"scores"`
}

// ResearchAnalyzeWrites is the channel write-set of the analysis node.
var ResearchAnalyzeWrites = []string{
	state.ChannelPainPoints, state.ChannelResearchNotes, state.ChannelScores,
	state.ChannelStatus, state.ChannelMessages,
}

// ResearchAnalyze extracts structured pain points and viability scores from
// the research findings, decides validated vs rejected, and persists the
// niche row with its embedding.
func (d *Deps) ResearchAnalyze(ctx context.Context, s state.AgentState, run *graph.RunContext) (*graph.NodeResult[*state.Update], error) {
	var resp analysisResponse
	prompt := fmt.Sprintf(analyzePrompt, s.Niche, strings.Join(s.SearchResults, "\n\n"))
	if err := d.LLM.GenerateJSON(ctx, prompt, &resp); err != nil {
		return nil, fmt.Errorf("analyze niche: %w", err)
	}

	scores := state.Scores{
		MarketSize:       resp.Scores.MarketSize,
		Competition:      resp.Scores.Competition,
		WillingnessToPay: resp.Scores.WillingnessToPay,
		Overall:          OverallScore(resp.Scores.MarketSize, resp.Scores.Competition, resp.Scores.WillingnessToPay),
	}

	status := state.StatusRejected
	if scores.Overall >= validationThreshold {
		status = state.StatusValidated
	}

	d.persistNiche(ctx, s.Niche, scores, resp.Analysis, status)
	d.notify(ctx, fmt.Sprintf("Niche %q scored %d/10 (%s).", s.Niche, scores.Overall, status))

	return graph.Update(&state.Update{
		PainPoints:    state.Ptr(resp.PainPoints),
		ResearchNotes: state.Ptr(resp.Analysis),
		Scores:        state.Ptr(scores),
		Status:        state.Ptr(status),
		Messages: []state.Message{
			state.NewMessage("assistant", fmt.Sprintf("Analysis complete: overall %d/10, %d pain points.", scores.Overall, len(resp.PainPoints))),
		},
	}), nil
}

// OverallScore combines the three viability scores. Competition is inverted:
// a crowded market lowers viability.
func OverallScore(marketSize, competition, willingnessToPay int) int {
	return int(math.Round(float64(marketSize+(11-competition)+willingnessToPay) / 3.0))
}

// persistNiche upserts the niche row and attaches its embedding. Persistence
// failures here degrade the run rather than fail it; prospecting re-checks
// the row and is the point where a missing niche becomes fatal.
func (d *Deps) persistNiche(ctx context.Context, name string, scores state.Scores, analysis string, status state.Status) {
	id, err := d.Niches.UpsertNiche(ctx, db.Niche{
		Name:             name,
		MarketSize:       scores.MarketSize,
		Competition:      scores.Competition,
		WillingnessToPay: scores.WillingnessToPay,
		Overall:          scores.Overall,
		ResearchNotes:    analysis,
		Status:           string(status),
	})
	if err != nil {
		d.logger().Warn("failed to persist niche %q: %v", name, err)
		return
	}

	embedding, err := d.LLM.Embed(ctx, name+"\n"+analysis)
	if err != nil {
		d.logger().Warn("failed to embed niche %q: %v", name, err)
		return
	}
	if err := d.Niches.SaveNicheEmbedding(ctx, id, embedding); err != nil {
		d.logger().Warn("failed to save embedding for niche %q: %v", name, err)
	}
}
