package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/phantomlabs/beastmode/graph"
	"github.com/phantomlabs/beastmode/state"
)

const rolesPrompt = `For the "%s" niche, list the 3 job titles of the people who decide
whether to buy B2B services. Respond with JSON: {"roles": ["...", "...", "..."]}`

const leadExtractionPrompt = `Below are web search results for decision makers in the "%s" niche.

%s

Extract every real person you can identify. Respond with JSON:
{"leads": [{"name": "...", "company": "...", "role": "...", "linkedin_url": "...", "url": "company website if visible", "score": 1-10 fit score}]}
Only include entries where you found a name and a LinkedIn profile URL.`

var defaultRoles = []string{"Owner", "Founder", "CEO"}

type leadCandidate struct {
	Name        string `json:"name"`
	Company     string `json:"company"`
	Role        string `json:"role"`
	LinkedInURL string `json:"linkedin_url"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
}

// ProspectingWrites is the channel write-set of the prospecting node.
var ProspectingWrites = []string{state.ChannelLeads, state.ChannelMessages}

// Prospecting finds decision-maker leads for the validated niche and
// persists each one. The niche row must exist by now; its absence is the one
// unrecoverable condition in this node. When a dispatcher is configured the
// node enqueues each persisted lead for background enrichment instead of
// leaving it to the in-graph vision and closer nodes.
func (d *Deps) Prospecting(ctx context.Context, s state.AgentState, run *graph.RunContext) (*graph.NodeResult[*state.Update], error) {
	niche, err := d.Niches.GetNicheByName(ctx, s.Niche)
	if err != nil {
		return nil, fmt.Errorf("niche record required before prospecting: %w", err)
	}

	roles := d.targetRoles(ctx, s.Niche)
	queries := make([]string, 0, len(roles))
	for _, role := range roles {
		queries = append(queries, fmt.Sprintf(`site:linkedin.com/in %q %q`, role, s.Niche))
	}

	blocks := d.runSearches(ctx, queries)
	if len(blocks) == 0 {
		d.logger().Warn("run %s: prospecting found no search results for %q", run.ThreadID, s.Niche)
		return graph.Update(&state.Update{
			Messages: []state.Message{
				state.NewMessage("assistant", fmt.Sprintf("No leads surfaced for %q.", s.Niche)),
			},
		}), nil
	}

	var extracted struct {
		Leads []leadCandidate `json:"leads"`
	}
	prompt := fmt.Sprintf(leadExtractionPrompt, s.Niche, strings.Join(blocks, "\n\n"))
	if err := d.LLM.GenerateJSON(ctx, prompt, &extracted); err != nil {
		return nil, fmt.Errorf("extract leads: %w", err)
	}

	leads := d.persistLeads(ctx, niche.ID, s.DiscordToken, extracted.Leads)
	d.notify(ctx, fmt.Sprintf("Prospecting found %d leads for %q.", len(leads), s.Niche))

	return graph.Update(&state.Update{
		Leads: state.Ptr(leads),
		Messages: []state.Message{
			state.NewMessage("assistant", fmt.Sprintf("Persisted %d of %d extracted leads.", len(leads), len(extracted.Leads))),
		},
	}), nil
}

// targetRoles asks the model which job titles to hunt for, falling back to a
// generic decision-maker set when the response is unusable.
func (d *Deps) targetRoles(ctx context.Context, niche string) []string {
	var resp struct {
		Roles []string `json:"roles"`
	}
	if err := d.LLM.GenerateJSON(ctx, fmt.Sprintf(rolesPrompt, niche), &resp); err != nil || len(resp.Roles) == 0 {
		if err != nil {
			d.logger().Warn("role generation failed, using defaults: %v", err)
		}
		return defaultRoles
	}
	if len(resp.Roles) > 3 {
		resp.Roles = resp.Roles[:3]
	}
	return resp.Roles
}

// persistLeads upserts each usable candidate and returns the leads that made
// it into the database, ids assigned. A failed upsert skips that lead only.
func (d *Deps) persistLeads(ctx context.Context, nicheID, token string, candidates []leadCandidate) []state.Lead {
	leads := make([]state.Lead, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.LinkedInURL) == "" {
			continue
		}
		lead := state.Lead{
			NicheID:     nicheID,
			Name:        c.Name,
			Company:     c.Company,
			Role:        c.Role,
			LinkedInURL: c.LinkedInURL,
			URL:         c.URL,
			Score:       c.Score,
			Stage:       "prospect",
		}
		id, err := d.Leads.UpsertLead(ctx, lead)
		if err != nil {
			d.logger().Warn("failed to persist lead %q: %v", c.Name, err)
			continue
		}
		lead.ID = id
		leads = append(leads, lead)

		if d.Dispatcher != nil {
			if err := d.Dispatcher.Dispatch(ctx, id, token); err != nil {
				d.logger().Warn("failed to dispatch lead %s: %v", id, err)
			}
		}
	}
	return leads
}
