// Beast Mode - LLM-Orchestrated B2B Lead Generation Pipeline
//
// Beast Mode runs an autonomous hunt for validated business niches and
// qualified leads. The pipeline is a typed state graph: each agent node
// consumes the shared hunt state, returns a partial update, and the engine
// merges updates through per-channel reducers, checkpointing after every
// step so a run can suspend for human review or survive a crash.
//
// # Quick Start
//
// Install the binary:
//
//	go install github.com/phantomlabs/beastmode/cmd/beastmode@latest
//
// Run a hunt end to end from the terminal:
//
//	export OPENAI_API_KEY=sk-...
//	export DATABASE_URL=postgres://localhost/beastmode
//	beastmode hunt --niche "Solar Installers"
//
// Or serve the HTTP and Discord interaction endpoints:
//
//	beastmode serve
//
// # Pipeline Stages
//
//   - strategist (optional): proposes fresh niche ideas, deduplicating
//     against past hunts by embedding distance
//   - research_search: expands the niche into web search queries and
//     gathers a research brief
//   - research_analyze: scores market size, competition, and willingness
//     to pay; a niche is validated at overall score 7 or above
//   - human_approval: suspends the run and waits for a reviewer decision
//   - prospecting: finds decision-makers on LinkedIn and upserts them,
//     deduplicated by profile URL
//   - vision: screenshots each lead's site and scores its visual vibe
//   - closer: drafts personalized cold outreach for every analyzed lead
//   - feedback: aggregates stage conversion counts and cools off niches
//     that produce prospects but no drafts
//
// Rejected or low-scoring niches route straight to the end; only a
// validated, approved niche reaches prospecting.
//
// # Package Structure
//
// graph/
// The execution engine: typed state graph with declared node write-sets,
// conditional routing, suspend/resume interrupts, and per-step
// checkpointing.
//
//	g := graph.NewStateGraph[state.AgentState, *state.Update]()
//	g.SetSchema(state.NewRegistry())
//	g.AddNode("research_search", "gather research", agents.ResearchSearchWrites, node)
//	g.SetEntryPoint("research_search")
//	g.AddEdge("research_search", graph.END)
//	compiled, err := g.Compile()
//
// state/
// The hunt aggregate and its channel registry: merge reducers per field,
// append-with-dedupe message history, and the error channel that clears
// on the next successful step.
//
// agents/
// The node implementations listed above, written against injected
// collaborator interfaces so tests can script every dependency.
//
// store/
// Checkpoint savers: in-memory, SQLite, PostgreSQL, and Redis. All keep
// one snapshot per thread so a suspended or crashed run resumes at the
// node after its last completed step.
//
// db/
// The pgvector-backed niche and lead store: upserts keyed on niche name
// and lead LinkedIn URL, embedding similarity lookups, and per-stage
// conversion counts.
//
// llm/, tool/
// OpenAI client (text, JSON, vision, embeddings) with rate-limit retry,
// plus the web search, headless browser, and Discord collaborators.
//
// pipeline/, tasks/, server/
// Graph assembly and the service facade, the Redis lead queue with its
// worker loop, and the HTTP/Discord interaction endpoints.
//
// # Human in the Loop
//
// When research validates a niche, the run suspends with an approval
// payload and the reviewer decides over HTTP or Discord:
//
//	curl -X POST localhost:8080/resume \
//	    -d '{"thread_id": "...", "approve": true}'
//
// Resume re-enters the approval node with the decision; everything before
// it is never re-executed.
//
// # Configuration
//
// Settings load from an optional YAML file, then environment variables:
//
//   - OPENAI_API_KEY: OpenAI API key (required)
//   - DATABASE_URL: PostgreSQL connection string (required)
//   - GOOGLE_SEARCH_API_KEY / GOOGLE_SEARCH_ENGINE_ID: web search
//   - DISCORD_WEBHOOK_URL / DISCORD_APP_ID: notifications
//   - CHECKPOINT_BACKEND: memory, sqlite, postgres, or redis
//   - REDIS_ADDR: lead queue and redis checkpoints
package beastmode // import "github.com/phantomlabs/beastmode"
