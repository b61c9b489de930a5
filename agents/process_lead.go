package agents

import (
	"context"
	"fmt"

	"github.com/phantomlabs/beastmode/state"
)

// ProcessLead runs the full per-lead enrichment (visual analysis then
// outreach draft) for one persisted lead, outside any graph run. It backs
// the queue worker and the direct process-lead endpoint; a lead goes through
// either this path or the in-graph vision/closer nodes, never both.
func (d *Deps) ProcessLead(ctx context.Context, leadID, token string) error {
	lead, err := d.Leads.GetLead(ctx, leadID)
	if err != nil {
		return fmt.Errorf("load lead %s: %w", leadID, err)
	}

	s := state.AgentState{}
	if lead.NicheID != "" {
		niche, err := d.Niches.GetNiche(ctx, lead.NicheID)
		if err != nil {
			d.logger().Warn("niche context unavailable for lead %s: %v", leadID, err)
		} else {
			s.Niche = niche.Name
			s.ResearchNotes = niche.ResearchNotes
		}
	}
	s.DiscordToken = token

	if lead.URL != "" {
		if err := d.analyzeLeadVisual(ctx, s.Niche, lead); err != nil {
			d.logger().Warn("vision failed for lead %s: %v", leadID, err)
		}
	}

	if err := d.draftForLead(ctx, s, lead); err != nil {
		return fmt.Errorf("draft for lead %s: %w", leadID, err)
	}

	d.notify(ctx, fmt.Sprintf("Lead %s (%s) processed and drafted.", lead.Name, lead.Company))
	return nil
}
