// Package agents implements the product workflow nodes: research, analysis,
// human approval, prospecting, visual evaluation, outreach drafting, niche
// ideation, and the feedback loop. Every node is a pure function of
// (state, collaborators) returning a partial update; all external clients
// are injected through Deps so tests substitute fakes.
package agents

import (
	"context"
	"net/http"

	"github.com/phantomlabs/beastmode/db"
	"github.com/phantomlabs/beastmode/llm"
	"github.com/phantomlabs/beastmode/log"
	"github.com/phantomlabs/beastmode/state"
	"github.com/phantomlabs/beastmode/tool"
)

// Node names, as declared in the pipeline graph.
const (
	NodeStrategist      = "strategist"
	NodeResearchSearch  = "research_search"
	NodeResearchAnalyze = "research_analyze"
	NodeHumanApproval   = "human_approval"
	NodeProspecting     = "prospecting"
	NodeVision          = "vision"
	NodeCloser          = "closer"
	NodeFeedback        = "feedback"
)

// NicheStore is the niche persistence surface the nodes use.
type NicheStore interface {
	UpsertNiche(ctx context.Context, n db.Niche) (string, error)
	GetNiche(ctx context.Context, nicheID string) (*db.Niche, error)
	GetNicheByName(ctx context.Context, name string) (*db.Niche, error)
	UpdateNicheStatus(ctx context.Context, name, status string) error
	SaveNicheEmbedding(ctx context.Context, nicheID string, embedding []float32) error
	MatchNiche(ctx context.Context, embedding []float32) (*db.NicheMatch, error)
}

// LeadStore is the lead persistence surface the nodes use.
type LeadStore interface {
	GetLead(ctx context.Context, leadID string) (*state.Lead, error)
	UpsertLead(ctx context.Context, lead state.Lead) (string, error)
	UpdateLeadVision(ctx context.Context, leadID string, vibeScore int, analysis string) error
	UpdateLeadStage(ctx context.Context, leadID, stage string) error
	InsertMessageDraft(ctx context.Context, leadID string, draft state.Draft) (string, error)
	LeadStageCounts(ctx context.Context) ([]db.StageCount, error)
}

// Dispatcher hands a persisted lead off to the background queue instead of
// enriching it inline.
type Dispatcher interface {
	Dispatch(ctx context.Context, leadID, token string) error
}

// Deps bundles every collaborator the nodes consume. LLM, Niches, and Leads
// are required; the rest are optional and each node degrades when one is
// absent.
type Deps struct {
	LLM        llm.Client
	Search     tool.WebSearcher
	Browser    tool.Browser
	Notifier   tool.Notifier
	Niches     NicheStore
	Leads      LeadStore
	Dispatcher Dispatcher
	HTTPClient *http.Client
	Logger     log.Logger
}

func (d *Deps) logger() log.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return log.GetDefaultLogger()
}

// notify sends a best-effort progress update.
func (d *Deps) notify(ctx context.Context, content string) {
	if d.Notifier == nil {
		return
	}
	if err := d.Notifier.Notify(ctx, content); err != nil {
		d.logger().Warn("notification failed: %v", err)
	}
}
