package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phantomlabs/beastmode/db"
	"github.com/phantomlabs/beastmode/state"
	"github.com/phantomlabs/beastmode/tool"
)

// mockLLM scripts model behavior per call kind. Nil funcs fail loudly so a
// test only exercises the calls it scripted.
type mockLLM struct {
	generate     func(prompt string) (string, error)
	generateJSON func(prompt string, out any) error
	vision       func(prompt, imageB64 string) (string, error)
	embed        func(text string) ([]float32, error)
}

func (m *mockLLM) Generate(_ context.Context, prompt string) (string, error) {
	if m.generate == nil {
		return "", fmt.Errorf("unexpected Generate call")
	}
	return m.generate(prompt)
}

func (m *mockLLM) GenerateJSON(_ context.Context, prompt string, out any) error {
	if m.generateJSON == nil {
		return fmt.Errorf("unexpected GenerateJSON call")
	}
	return m.generateJSON(prompt, out)
}

func (m *mockLLM) GenerateVision(_ context.Context, prompt, imageB64 string) (string, error) {
	if m.vision == nil {
		return "", fmt.Errorf("unexpected GenerateVision call")
	}
	return m.vision(prompt, imageB64)
}

func (m *mockLLM) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embed == nil {
		return nil, fmt.Errorf("unexpected Embed call")
	}
	return m.embed(text)
}

// decodeJSON is a test helper for scripting generateJSON responses.
func decodeJSON(raw string, out any) error {
	return json.Unmarshal([]byte(raw), out)
}

type mockSearcher struct {
	results map[string][]tool.SearchResult
	err     error
	calls   []string
}

func (m *mockSearcher) Search(_ context.Context, query string) ([]tool.SearchResult, error) {
	m.calls = append(m.calls, query)
	if m.err != nil {
		return nil, m.err
	}
	if hits, ok := m.results[query]; ok {
		return hits, nil
	}
	// Unscripted queries return a single generic hit so order-sensitive
	// prompts still have material.
	return []tool.SearchResult{{Title: "hit", URL: "https://example.com", Snippet: "snippet for " + query}}, nil
}

type mockBrowser struct {
	image string
	err   error
}

func (m *mockBrowser) Capture(_ context.Context, _ string) (string, error) {
	return m.image, m.err
}

type mockNotifier struct {
	notes []string
}

func (m *mockNotifier) Notify(_ context.Context, content string) error {
	m.notes = append(m.notes, content)
	return nil
}

type mockNicheStore struct {
	niches     map[string]*db.Niche
	upserts    []db.Niche
	embeddings map[string][]float32
	match      *db.NicheMatch
	matchErr   error
	statuses   map[string]string
}

func newMockNicheStore() *mockNicheStore {
	return &mockNicheStore{
		niches:     map[string]*db.Niche{},
		embeddings: map[string][]float32{},
		statuses:   map[string]string{},
	}
}

func (m *mockNicheStore) UpsertNiche(_ context.Context, n db.Niche) (string, error) {
	m.upserts = append(m.upserts, n)
	if existing, ok := m.niches[n.Name]; ok {
		return existing.ID, nil
	}
	id := fmt.Sprintf("niche-%d", len(m.niches)+1)
	stored := n
	stored.ID = id
	m.niches[n.Name] = &stored
	return id, nil
}

func (m *mockNicheStore) GetNiche(_ context.Context, nicheID string) (*db.Niche, error) {
	for _, n := range m.niches {
		if n.ID == nicheID {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: niche %s", db.ErrNotFound, nicheID)
}

func (m *mockNicheStore) GetNicheByName(_ context.Context, name string) (*db.Niche, error) {
	if n, ok := m.niches[name]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("%w: niche %s", db.ErrNotFound, name)
}

func (m *mockNicheStore) UpdateNicheStatus(_ context.Context, name, status string) error {
	m.statuses[name] = status
	return nil
}

func (m *mockNicheStore) SaveNicheEmbedding(_ context.Context, nicheID string, embedding []float32) error {
	m.embeddings[nicheID] = embedding
	return nil
}

func (m *mockNicheStore) MatchNiche(_ context.Context, _ []float32) (*db.NicheMatch, error) {
	if m.matchErr != nil {
		return nil, m.matchErr
	}
	if m.match == nil {
		return nil, fmt.Errorf("%w: no embedded niches", db.ErrNotFound)
	}
	return m.match, nil
}

type mockLeadStore struct {
	leads      map[string]*state.Lead
	upserts    []state.Lead
	visions    map[string]string
	drafts     map[string]state.Draft
	stages     map[string]string
	counts     []db.StageCount
	upsertErr  error
	draftErr   error
	visionErr  error
	countsErr  error
	nextLeadID int
}

func newMockLeadStore() *mockLeadStore {
	return &mockLeadStore{
		leads:   map[string]*state.Lead{},
		visions: map[string]string{},
		drafts:  map[string]state.Draft{},
		stages:  map[string]string{},
	}
}

func (m *mockLeadStore) GetLead(_ context.Context, leadID string) (*state.Lead, error) {
	if lead, ok := m.leads[leadID]; ok {
		copied := *lead
		return &copied, nil
	}
	return nil, fmt.Errorf("%w: lead %s", db.ErrNotFound, leadID)
}

func (m *mockLeadStore) UpsertLead(_ context.Context, lead state.Lead) (string, error) {
	if m.upsertErr != nil {
		return "", m.upsertErr
	}
	m.upserts = append(m.upserts, lead)
	for id, existing := range m.leads {
		if existing.LinkedInURL == lead.LinkedInURL {
			lead.ID = id
			m.leads[id] = &lead
			return id, nil
		}
	}
	m.nextLeadID++
	id := fmt.Sprintf("lead-%d", m.nextLeadID)
	lead.ID = id
	m.leads[id] = &lead
	return id, nil
}

func (m *mockLeadStore) UpdateLeadVision(_ context.Context, leadID string, vibeScore int, analysis string) error {
	if m.visionErr != nil {
		return m.visionErr
	}
	m.visions[leadID] = analysis
	return nil
}

func (m *mockLeadStore) UpdateLeadStage(_ context.Context, leadID, stage string) error {
	m.stages[leadID] = stage
	return nil
}

func (m *mockLeadStore) InsertMessageDraft(_ context.Context, leadID string, draft state.Draft) (string, error) {
	if m.draftErr != nil {
		return "", m.draftErr
	}
	m.drafts[leadID] = draft
	return "draft-" + leadID, nil
}

func (m *mockLeadStore) LeadStageCounts(_ context.Context) ([]db.StageCount, error) {
	if m.countsErr != nil {
		return nil, m.countsErr
	}
	return m.counts, nil
}

type mockDispatcher struct {
	dispatched []string
	err        error
}

func (m *mockDispatcher) Dispatch(_ context.Context, leadID, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.dispatched = append(m.dispatched, leadID)
	return nil
}
