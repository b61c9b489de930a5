package state

// Channel names. Every node declares its write-set against these; graph
// compilation rejects writes to anything not listed here.
const (
	ChannelNiche         = "niche"
	ChannelQueries       = "queries"
	ChannelSearchResults = "search_results"
	ChannelPainPoints    = "pain_points"
	ChannelResearchNotes = "research_notes"
	ChannelScores        = "scores"
	ChannelStatus        = "status"
	ChannelLeads         = "leads"
	ChannelMessages      = "messages"
	ChannelDiscordToken  = "discord_token"
	ChannelError         = "error"
)

// Registry is the channel schema for AgentState. Each channel carries a
// reducer; the default is "take the incoming value when the update sets it,
// keep the current one otherwise". Two channels deviate:
//
//   - messages appends, deduplicating by message ID with first-write-wins
//   - error resets on every successful merge unless the update sets it, so
//     a stale failure never outlives the node that recovered from it
type Registry struct {
	channels []string
}

// NewRegistry builds the schema with all AgentState channels registered.
func NewRegistry() *Registry {
	return &Registry{
		channels: []string{
			ChannelNiche,
			ChannelQueries,
			ChannelSearchResults,
			ChannelPainPoints,
			ChannelResearchNotes,
			ChannelScores,
			ChannelStatus,
			ChannelLeads,
			ChannelMessages,
			ChannelDiscordToken,
			ChannelError,
		},
	}
}

// Zero returns the initial state for a fresh run.
func (r *Registry) Zero() AgentState {
	return AgentState{
		Status:        StatusResearching,
		Queries:       []string{},
		SearchResults: []string{},
		PainPoints:    []PainPoint{},
		Leads:         []Lead{},
		Messages:      []Message{},
	}
}

// Apply folds one partial update into the current state. A nil update is a
// successful no-op merge, which still clears the error channel.
func (r *Registry) Apply(current AgentState, update *Update) (AgentState, error) {
	next := current

	if update != nil {
		if update.Niche != nil {
			next.Niche = *update.Niche
		}
		if update.Queries != nil {
			next.Queries = *update.Queries
		}
		if update.SearchResults != nil {
			next.SearchResults = *update.SearchResults
		}
		if update.PainPoints != nil {
			next.PainPoints = *update.PainPoints
		}
		if update.ResearchNotes != nil {
			next.ResearchNotes = *update.ResearchNotes
		}
		if update.Scores != nil {
			next.Scores = *update.Scores
		}
		if update.Status != nil {
			next.Status = *update.Status
		}
		if update.Leads != nil {
			next.Leads = *update.Leads
		}
		if len(update.Messages) > 0 {
			next.Messages = appendMessages(current.Messages, update.Messages)
		}
		if update.DiscordToken != nil {
			next.DiscordToken = *update.DiscordToken
		}
	}

	// A merge only happens after a node succeeded, so any previously recorded
	// error is stale unless this very update reasserts one.
	if update != nil && update.Error != nil {
		next.Error = *update.Error
	} else {
		next.Error = ""
	}

	return next, nil
}

// Fail records a node-fatal failure: status flips to failed and the reason is
// kept on the error channel.
func (r *Registry) Fail(current AgentState, reason string) AgentState {
	next := current
	next.Status = StatusFailed
	next.Error = reason
	return next
}

// Channels lists the registered channel names.
func (r *Registry) Channels() []string {
	out := make([]string, len(r.channels))
	copy(out, r.channels)
	return out
}

// appendMessages merges incoming messages onto the log. Duplicate IDs keep
// the earliest occurrence, including duplicates within the incoming batch.
func appendMessages(current, incoming []Message) []Message {
	seen := make(map[string]struct{}, len(current)+len(incoming))
	out := make([]Message, 0, len(current)+len(incoming))
	for _, m := range current {
		if m.ID != "" {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
		}
		out = append(out, m)
	}
	for _, m := range incoming {
		if m.ID != "" {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
		}
		out = append(out, m)
	}
	return out
}
