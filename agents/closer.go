package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/phantomlabs/beastmode/graph"
	"github.com/phantomlabs/beastmode/state"
)

const draftPrompt = `Write a short, personalized cold outreach email to %s, %s at %s,
a business in the "%s" niche. Known pain points in this niche:
%s
%s
Keep it under 120 words, specific, no hype. Respond with JSON:
{"subject": "...", "content": "..."}`

// CloserWrites is the channel write-set of the closer node.
var CloserWrites = []string{state.ChannelLeads, state.ChannelStatus, state.ChannelMessages}

// Closer drafts personalized outreach for every lead and stores each draft.
// A failed draft skips that lead; the run finishes at complete regardless of
// how many drafts landed.
func (d *Deps) Closer(ctx context.Context, s state.AgentState, run *graph.RunContext) (*graph.NodeResult[*state.Update], error) {
	leads := make([]state.Lead, len(s.Leads))
	copy(leads, s.Leads)

	drafted := 0
	for i := range leads {
		if err := d.draftForLead(ctx, s, &leads[i]); err != nil {
			d.logger().Warn("run %s: draft failed for lead %s: %v", run.ThreadID, leads[i].ID, err)
			continue
		}
		drafted++
	}

	d.notify(ctx, fmt.Sprintf("Drafted outreach for %d of %d leads in %q.", drafted, len(leads), s.Niche))

	return graph.Update(&state.Update{
		Leads:  state.Ptr(leads),
		Status: state.Ptr(state.StatusComplete),
		Messages: []state.Message{
			state.NewMessage("assistant", fmt.Sprintf("Outreach drafted for %d of %d leads.", drafted, len(leads))),
		},
	}), nil
}

// draftForLead generates and persists one outreach draft.
func (d *Deps) draftForLead(ctx context.Context, s state.AgentState, lead *state.Lead) error {
	visualNote := ""
	if lead.VisualAnalysis != "" {
		visualNote = "Their website: " + lead.VisualAnalysis
	}

	var draft state.Draft
	prompt := fmt.Sprintf(draftPrompt, lead.Name, lead.Role, lead.Company, s.Niche,
		formatPainPoints(s.PainPoints), visualNote)
	if err := d.LLM.GenerateJSON(ctx, prompt, &draft); err != nil {
		return err
	}
	if strings.TrimSpace(draft.Content) == "" {
		return fmt.Errorf("empty draft for lead %s", lead.ID)
	}

	lead.EmailDraft = &draft
	lead.Stage = "drafted"

	if _, err := d.Leads.InsertMessageDraft(ctx, lead.ID, draft); err != nil {
		d.logger().Warn("failed to persist draft for lead %s: %v", lead.ID, err)
	}
	return nil
}

func formatPainPoints(points []state.PainPoint) string {
	if len(points) == 0 {
		return "- (none recorded)"
	}
	var sb strings.Builder
	for _, p := range points {
		fmt.Fprintf(&sb, "- %s: %s (severity %d/10)\n", p.Problem, p.WhyItHurts, p.PainScore)
	}
	return sb.String()
}
