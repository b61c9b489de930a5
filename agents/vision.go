package agents

import (
	"context"
	"fmt"

	"github.com/phantomlabs/beastmode/graph"
	"github.com/phantomlabs/beastmode/llm"
	"github.com/phantomlabs/beastmode/state"
	"github.com/phantomlabs/beastmode/tool"
)

const visionPrompt = `This is a screenshot of the website of %s (%s), a business in the "%s" niche.
Judge how professional and current their web presence looks. Respond with JSON:
{"visual_vibe_score": 1-10, "visual_analysis": "two sentences on what dates or weakens the site"}`

const textVisionPrompt = `Below is the extracted text of the website of %s (%s), a business in the "%s" niche.

%s

Judge how professional and current their web presence reads. Respond with JSON:
{"visual_vibe_score": 1-10, "visual_analysis": "two sentences on what dates or weakens the site"}`

type visionResponse struct {
	VisualVibeScore int    `json:"visual_vibe_score"`
	VisualAnalysis  string `json:"visual_analysis"`
}

// VisionWrites is the channel write-set of the vision node.
var VisionWrites = []string{state.ChannelLeads, state.ChannelMessages}

// Vision evaluates each lead's web presence: screenshot plus multimodal
// analysis, degrading to a text-only page summary when capture fails. A
// failure on one lead carries that lead through unmodified; the batch never
// aborts.
func (d *Deps) Vision(ctx context.Context, s state.AgentState, run *graph.RunContext) (*graph.NodeResult[*state.Update], error) {
	leads := make([]state.Lead, len(s.Leads))
	copy(leads, s.Leads)

	analyzed := 0
	for i := range leads {
		if leads[i].URL == "" {
			continue
		}
		if err := d.analyzeLeadVisual(ctx, s.Niche, &leads[i]); err != nil {
			d.logger().Warn("run %s: vision failed for lead %s: %v", run.ThreadID, leads[i].ID, err)
			continue
		}
		analyzed++
	}

	return graph.Update(&state.Update{
		Leads: state.Ptr(leads),
		Messages: []state.Message{
			state.NewMessage("assistant", fmt.Sprintf("Visual analysis done for %d of %d leads.", analyzed, len(leads))),
		},
	}), nil
}

// analyzeLeadVisual runs the visual evaluation for one lead and persists the
// result onto its row.
func (d *Deps) analyzeLeadVisual(ctx context.Context, niche string, lead *state.Lead) error {
	raw, err := d.captureAndDescribe(ctx, niche, lead)
	if err != nil {
		return err
	}

	var resp visionResponse
	if err := llm.UnmarshalResponse(raw, &resp); err != nil {
		return err
	}

	lead.VisualVibeScore = resp.VisualVibeScore
	lead.VisualAnalysis = resp.VisualAnalysis
	lead.Stage = "analyzed"

	if err := d.Leads.UpdateLeadVision(ctx, lead.ID, resp.VisualVibeScore, resp.VisualAnalysis); err != nil {
		d.logger().Warn("failed to persist vision for lead %s: %v", lead.ID, err)
	}
	return nil
}

// captureAndDescribe prefers a screenshot with the multimodal model and
// falls back to fetching the page text when the browser is absent or times
// out.
func (d *Deps) captureAndDescribe(ctx context.Context, niche string, lead *state.Lead) (string, error) {
	if d.Browser != nil {
		img, err := d.Browser.Capture(ctx, lead.URL)
		if err == nil {
			return d.LLM.GenerateVision(ctx, fmt.Sprintf(visionPrompt, lead.Name, lead.Company, niche), img)
		}
		d.logger().Warn("screenshot of %s failed, using text fallback: %v", lead.URL, err)
	}

	summary, err := tool.PageSummary(ctx, d.HTTPClient, lead.URL)
	if err != nil {
		return "", fmt.Errorf("no visual signal for %s: %w", lead.URL, err)
	}
	return d.LLM.Generate(ctx, fmt.Sprintf(textVisionPrompt, lead.Name, lead.Company, niche, summary))
}
