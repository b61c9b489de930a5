package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/phantomlabs/beastmode/graph"
	"github.com/phantomlabs/beastmode/state"
)

// FeedbackWrites is the channel write-set of the feedback node.
var FeedbackWrites = []string{state.ChannelMessages}

// Feedback closes the loop on a finished run: it aggregates lead stage
// counts into a report and cools off the niche when the run produced
// prospects but no drafted outreach, so the next strategist pass deprioritizes
// it. Reporting failures degrade to a bare message; they never fail the run.
func (d *Deps) Feedback(ctx context.Context, s state.AgentState, run *graph.RunContext) (*graph.NodeResult[*state.Update], error) {
	counts, err := d.Leads.LeadStageCounts(ctx)
	if err != nil {
		d.logger().Warn("run %s: stage counts unavailable: %v", run.ThreadID, err)
		return graph.Update(&state.Update{
			Messages: []state.Message{
				state.NewMessage("system", "Run finished; pipeline stats unavailable."),
			},
		}), nil
	}

	total, drafted := 0, 0
	var parts []string
	for _, c := range counts {
		total += c.Count
		if c.Stage == "drafted" {
			drafted = c.Count
		}
		parts = append(parts, fmt.Sprintf("%s: %d", c.Stage, c.Count))
	}

	if len(s.Leads) > 0 && drafted == 0 {
		if err := d.Niches.UpdateNicheStatus(ctx, s.Niche, "cooling"); err != nil {
			d.logger().Warn("failed to cool niche %q: %v", s.Niche, err)
		}
	}

	report := fmt.Sprintf("Pipeline report for %q: %d leads total (%s).", s.Niche, total, strings.Join(parts, ", "))
	d.notify(ctx, report)

	return graph.Update(&state.Update{
		Messages: []state.Message{state.NewMessage("system", report)},
	}), nil
}
