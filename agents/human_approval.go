package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phantomlabs/beastmode/graph"
	"github.com/phantomlabs/beastmode/state"
)

// ApprovalRequest is the interrupt payload surfaced to the human reviewer.
type ApprovalRequest struct {
	Niche      string            `json:"niche"`
	Scores     state.Scores      `json:"scores"`
	PainPoints []state.PainPoint `json:"pain_points"`
}

// ApprovalDecision is the resume value the reviewer supplies.
type ApprovalDecision struct {
	Approve bool `json:"approve"`
}

// HumanApprovalWrites is the channel write-set of the approval node.
var HumanApprovalWrites = []string{state.ChannelStatus, state.ChannelMessages}

// HumanApproval is the pipeline's single suspension point. On first entry it
// suspends the run with the niche summary; when resumed it applies the
// reviewer's decision. Approval keeps the run on the validated path, so an
// approved resume is indistinguishable to downstream nodes from a run that
// never paused.
func (d *Deps) HumanApproval(ctx context.Context, s state.AgentState, run *graph.RunContext) (*graph.NodeResult[*state.Update], error) {
	value, resumed := run.ResumeValue()
	if !resumed {
		d.notify(ctx, fmt.Sprintf("Niche %q (overall %d/10) awaits your approval.", s.Niche, s.Scores.Overall))
		return graph.Suspend[*state.Update](ApprovalRequest{
			Niche:      s.Niche,
			Scores:     s.Scores,
			PainPoints: s.PainPoints,
		}), nil
	}

	approved, err := decodeDecision(value)
	if err != nil {
		return nil, fmt.Errorf("resume human approval: %w", err)
	}

	if !approved {
		return graph.Update(&state.Update{
			Status: state.Ptr(state.StatusRejected),
			Messages: []state.Message{
				state.NewMessage("system", fmt.Sprintf("Niche %q rejected by reviewer.", s.Niche)),
			},
		}), nil
	}

	return graph.Update(&state.Update{
		Status: state.Ptr(state.StatusValidated),
		Messages: []state.Message{
			state.NewMessage("system", fmt.Sprintf("Niche %q approved by reviewer.", s.Niche)),
		},
	}), nil
}

// decodeDecision accepts the shapes a resume value arrives in: a bare bool,
// an ApprovalDecision, or the JSON-decoded map a transport hands over.
func decodeDecision(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case ApprovalDecision:
		return v.Approve, nil
	case *ApprovalDecision:
		return v.Approve, nil
	case map[string]any:
		if approve, ok := v["approve"].(bool); ok {
			return approve, nil
		}
		return false, fmt.Errorf("resume value missing approve field")
	case json.RawMessage:
		var decision ApprovalDecision
		if err := json.Unmarshal(v, &decision); err != nil {
			return false, fmt.Errorf("malformed resume value: %w", err)
		}
		return decision.Approve, nil
	default:
		return false, fmt.Errorf("unsupported resume value type %T", value)
	}
}
