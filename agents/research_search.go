package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/phantomlabs/beastmode/graph"
	"github.com/phantomlabs/beastmode/state"
	"github.com/phantomlabs/beastmode/tool"
)

const researchQueryPrompt = `You are a B2B market researcher investigating the "%s" niche.
Produce exactly 3 web search queries that would surface the biggest operational
pain points, complaints, and unmet needs of businesses in this niche.
Output one query per line, each prefixed with [QUERY]. No other text.`

const internalKnowledgePrompt = `Web search is unavailable. Using only your own knowledge,
write a concise research brief on the "%s" niche: the most common operational
pain points, who feels them, and how severe they are. Plain text.`

// ResearchSearchWrites is the channel write-set of the research search node.
var ResearchSearchWrites = []string{
	state.ChannelQueries, state.ChannelSearchResults, state.ChannelStatus, state.ChannelMessages,
}

// ResearchSearch generates search queries for the niche, runs them
// concurrently, and aggregates the findings. When search is unconfigured or
// comes back empty it degrades to the model's internal knowledge instead of
// failing the run.
func (d *Deps) ResearchSearch(ctx context.Context, s state.AgentState, run *graph.RunContext) (*graph.NodeResult[*state.Update], error) {
	raw, err := d.LLM.Generate(ctx, fmt.Sprintf(researchQueryPrompt, s.Niche))
	if err != nil {
		return nil, fmt.Errorf("generate research queries: %w", err)
	}

	queries := extractQueries(raw)
	if len(queries) == 0 {
		queries = seedQueries(s.Niche)
	}

	results := d.runSearches(ctx, queries)
	if len(results) == 0 {
		d.logger().Warn("run %s: no search results for %q, falling back to internal knowledge", run.ThreadID, s.Niche)
		brief, err := d.LLM.Generate(ctx, fmt.Sprintf(internalKnowledgePrompt, s.Niche))
		if err != nil {
			return nil, fmt.Errorf("internal knowledge fallback: %w", err)
		}
		results = []string{"[internal knowledge] " + brief}
	}

	return graph.Update(&state.Update{
		Queries:       state.Ptr(queries),
		SearchResults: state.Ptr(results),
		Status:        state.Ptr(state.StatusAnalyzing),
		Messages: []state.Message{
			state.NewMessage("assistant", fmt.Sprintf("Researched %q with %d queries, %d result sets.", s.Niche, len(queries), len(results))),
		},
	}), nil
}

// runSearches executes the queries concurrently and keeps per-query result
// blocks in query order. Individual query failures are logged and dropped.
func (d *Deps) runSearches(ctx context.Context, queries []string) []string {
	if d.Search == nil {
		return nil
	}

	blocks := make([]string, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			hits, err := d.Search.Search(ctx, q)
			if err != nil {
				d.logger().Warn("search %q failed: %v", q, err)
				return
			}
			if len(hits) == 0 {
				return
			}
			blocks[i] = fmt.Sprintf("Results for %q:\n%s", q, tool.FormatResults(hits))
		}(i, q)
	}
	wg.Wait()

	var out []string
	for _, b := range blocks {
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}

// extractQueries pulls [QUERY]-tagged lines from a model response. When the
// model ignored the tag protocol it falls back to treating each non-empty
// line as a query, stripping list markers.
func extractQueries(raw string) []string {
	var tagged []string
	lines := strings.Split(raw, "\n")
	for _, line := range lines {
		if idx := strings.Index(line, "[QUERY]"); idx >= 0 {
			q := strings.TrimSpace(line[idx+len("[QUERY]"):])
			if q != "" {
				tagged = append(tagged, q)
			}
		}
	}
	if len(tagged) > 0 {
		return capQueries(tagged)
	}

	var loose []string
	for _, line := range lines {
		q := strings.TrimSpace(line)
		q = strings.TrimLeft(q, "-*0123456789. ")
		q = strings.Trim(q, `"`)
		if q != "" {
			loose = append(loose, q)
		}
	}
	return capQueries(loose)
}

func capQueries(queries []string) []string {
	if len(queries) > 3 {
		return queries[:3]
	}
	return queries
}

// seedQueries is the last-resort query set when generation produced nothing
// usable.
func seedQueries(niche string) []string {
	return []string{
		fmt.Sprintf("%s biggest pain points", niche),
		fmt.Sprintf("%s industry challenges 2025", niche),
		fmt.Sprintf("%s business owners complaints forum", niche),
	}
}
