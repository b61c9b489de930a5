// Package state defines the AgentState aggregate threaded through the
// pipeline and the channel registry that governs how node updates merge.
package state

import (
	"github.com/google/uuid"
)

// Status drives conditional routing. Exactly one value is active at a time;
// it is the only signal predicates inspect.
type Status string

const (
	StatusResearching Status = "researching"
	StatusAnalyzing   Status = "analyzing"
	StatusValidated   Status = "validated"
	StatusRejected    Status = "rejected"
	StatusFailed      Status = "failed"
	StatusComplete    Status = "complete"
)

// Scores holds the 1-10 niche viability scores produced by analysis.
type Scores struct {
	MarketSize       int `json:"market_size"`
	Competition      int `json:"competition"`
	WillingnessToPay int `json:"willingness_to_pay"`
	Overall          int `json:"overall"`
}

// PainPoint is one structured finding extracted from research results.
type PainPoint struct {
	Problem    string `json:"problem"`
	WhyItHurts string `json:"why_it_hurts"`
	PainScore  int    `json:"pain_score"`
}

// Draft is a generated outreach message for a lead.
type Draft struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// Lead is a prospective contact. ID is assigned once at persistence time and
// never changes; downstream nodes locate a lead by ID, never by position.
type Lead struct {
	ID              string         `json:"id"`
	NicheID         string         `json:"niche_id,omitempty"`
	Name            string         `json:"name"`
	Company         string         `json:"company"`
	Role            string         `json:"role"`
	LinkedInURL     string         `json:"linkedin_url"`
	URL             string         `json:"url,omitempty"`
	Score           int            `json:"score"`
	Stage           string         `json:"stage"`
	VisualVibeScore int            `json:"visual_vibe_score,omitempty"`
	VisualAnalysis  string         `json:"visual_analysis,omitempty"`
	EmailDraft      *Draft         `json:"email_draft,omitempty"`
	Context         map[string]any `json:"context,omitempty"`
}

// Message is one entry in the conversational log.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a message with a fresh identity.
func NewMessage(role, content string) Message {
	return Message{ID: uuid.New().String(), Role: role, Content: content}
}

// AgentState is the single mutable aggregate of a run. It is created fresh
// per invocation (or reconstituted from a checkpoint on resume) and mutated
// exclusively by the executor applying node updates through the registry.
type AgentState struct {
	Niche         string      `json:"niche"`
	Queries       []string    `json:"queries"`
	SearchResults []string    `json:"search_results"`
	PainPoints    []PainPoint `json:"pain_points"`
	ResearchNotes string      `json:"research_notes"`
	Scores        Scores      `json:"scores"`
	Status        Status      `json:"status"`
	Leads         []Lead      `json:"leads"`
	Messages      []Message   `json:"messages"`
	DiscordToken  string      `json:"discord_token,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// Update is a partial state write. A nil field means the node has no opinion
// on that channel and the current value is kept; the messages channel is the
// one append-merged exception.
type Update struct {
	Niche         *string
	Queries       *[]string
	SearchResults *[]string
	PainPoints    *[]PainPoint
	ResearchNotes *string
	Scores        *Scores
	Status        *Status
	Leads         *[]Lead
	Messages      []Message
	DiscordToken  *string
	Error         *string
}

// Ptr returns a pointer to v, for building Update literals.
func Ptr[T any](v T) *T { return &v }
