// Package pipeline assembles the product workflow graph and wraps it in a
// service the server and CLI drive.
package pipeline

import (
	"fmt"

	"github.com/phantomlabs/beastmode/agents"
	"github.com/phantomlabs/beastmode/graph"
	"github.com/phantomlabs/beastmode/retry"
	"github.com/phantomlabs/beastmode/state"
)

// DefaultNiche is used by scheduled triggers that carry no niche parameter.
const DefaultNiche = "Solar Installers"

// Options selects the graph shape.
type Options struct {
	// UseStrategist prepends the niche-ideation node; the run may then swap
	// its niche before research starts.
	UseStrategist bool

	// DispatchLeads enqueues each persisted lead for background enrichment
	// and drops the in-graph vision and closer nodes. A lead is enriched by
	// exactly one of the two paths, never both.
	DispatchLeads bool
}

// Build wires the workflow graph:
//
//	research_search → research_analyze → human_approval → prospecting →
//	vision → closer → feedback → END
//
// The two conditional edges both key on status == validated; any other
// status routes straight to END. In dispatch mode the prospecting node hands
// leads to the queue and the graph skips straight to feedback.
func Build(deps *agents.Deps, opts Options) (*graph.CompiledGraph[state.AgentState, *state.Update], error) {
	if opts.DispatchLeads && deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatch mode requires a dispatcher")
	}
	if !opts.DispatchLeads && deps.Dispatcher != nil {
		return nil, fmt.Errorf("dispatcher configured but in-graph enrichment selected; leads would be processed twice")
	}

	g := graph.NewStateGraph[state.AgentState, *state.Update]()
	g.SetSchema(state.NewRegistry())
	g.SetRetryPolicy(&graph.RetryPolicy{
		MaxAttempts: retry.DefaultPolicy().MaxAttempts,
		BaseDelay:   retry.DefaultPolicy().BaseDelay,
		Retryable:   retry.IsRateLimit,
	})

	g.AddNode(agents.NodeResearchSearch, "generate and run niche research queries", agents.ResearchSearchWrites, deps.ResearchSearch)
	g.AddNode(agents.NodeResearchAnalyze, "extract pain points and score viability", agents.ResearchAnalyzeWrites, deps.ResearchAnalyze)
	g.AddNode(agents.NodeHumanApproval, "pause for reviewer sign-off", agents.HumanApprovalWrites, deps.HumanApproval)
	g.AddNode(agents.NodeProspecting, "discover and persist decision-maker leads", agents.ProspectingWrites, deps.Prospecting)
	g.AddNode(agents.NodeFeedback, "report pipeline stats and cool idle niches", agents.FeedbackWrites, deps.Feedback)

	if opts.UseStrategist {
		g.AddNode(agents.NodeStrategist, "invent and deduplicate candidate niches", agents.StrategistWrites, deps.Strategist)
		g.SetEntryPoint(agents.NodeStrategist)
		g.AddEdge(agents.NodeStrategist, agents.NodeResearchSearch)
	} else {
		g.SetEntryPoint(agents.NodeResearchSearch)
	}

	g.AddEdge(agents.NodeResearchSearch, agents.NodeResearchAnalyze)
	g.AddConditionalEdge(agents.NodeResearchAnalyze, state.RouteIfValidated(agents.NodeHumanApproval))
	g.AddConditionalEdge(agents.NodeHumanApproval, state.RouteIfValidated(agents.NodeProspecting))

	if opts.DispatchLeads {
		g.AddEdge(agents.NodeProspecting, agents.NodeFeedback)
	} else {
		g.AddNode(agents.NodeVision, "evaluate each lead's web presence", agents.VisionWrites, deps.Vision)
		g.AddNode(agents.NodeCloser, "draft personalized outreach per lead", agents.CloserWrites, deps.Closer)
		g.AddEdge(agents.NodeProspecting, agents.NodeVision)
		g.AddEdge(agents.NodeVision, agents.NodeCloser)
		g.AddEdge(agents.NodeCloser, agents.NodeFeedback)
	}

	g.AddEdge(agents.NodeFeedback, graph.END)
	return g.Compile()
}
