// Package db persists niches, leads, and message drafts to PostgreSQL.
// Write semantics mirror the state model: niches are keyed by name, leads by
// LinkedIn URL, and re-running a pipeline updates rows instead of
// duplicating them.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phantomlabs/beastmode/state"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Querier is the subset of pgxpool.Pool the store uses. Tests substitute a
// pgxmock pool.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Niche is a validated market row.
type Niche struct {
	ID               string
	Name             string
	MarketSize       int
	Competition      int
	WillingnessToPay int
	Overall          int
	ResearchNotes    string
	Status           string
	CreatedAt        time.Time
}

// NicheMatch is the nearest stored niche to an embedding.
type NicheMatch struct {
	ID       string
	Name     string
	Distance float64
}

// StageCount is the number of leads sitting at one pipeline stage.
type StageCount struct {
	Stage string
	Count int
}

// Store is the PostgreSQL persistence layer.
type Store struct {
	pool Querier
}

// NewStore opens a connection pool.
func NewStore(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return NewStoreWithPool(pool), nil
}

// NewStoreWithPool wraps an existing pool; useful for tests with mocks.
func NewStoreWithPool(pool Querier) *Store {
	return &Store{pool: pool}
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// InitSchema creates the tables if they don't exist. The embedding column
// needs the pgvector extension installed.
func (s *Store) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS niches (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL UNIQUE,
			market_size INTEGER NOT NULL DEFAULT 0,
			competition INTEGER NOT NULL DEFAULT 0,
			willingness_to_pay INTEGER NOT NULL DEFAULT 0,
			overall INTEGER NOT NULL DEFAULT 0,
			research_notes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'validated',
			embedding vector(768),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS leads (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			niche_id UUID REFERENCES niches(id),
			name TEXT NOT NULL,
			company TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT '',
			linkedin_url TEXT NOT NULL UNIQUE,
			url TEXT NOT NULL DEFAULT '',
			score INTEGER NOT NULL DEFAULT 0,
			stage TEXT NOT NULL DEFAULT 'prospect',
			visual_vibe_score INTEGER,
			visual_analysis TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS message_drafts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			lead_id UUID NOT NULL REFERENCES leads(id),
			subject TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// UpsertNiche inserts the niche or refreshes its scores and notes when the
// name already exists, and returns the row id either way.
func (s *Store) UpsertNiche(ctx context.Context, n Niche) (string, error) {
	query := `
		INSERT INTO niches (name, market_size, competition, willingness_to_pay, overall, research_notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			market_size = EXCLUDED.market_size,
			competition = EXCLUDED.competition,
			willingness_to_pay = EXCLUDED.willingness_to_pay,
			overall = EXCLUDED.overall,
			research_notes = EXCLUDED.research_notes,
			status = EXCLUDED.status
		RETURNING id
	`
	var id string
	err := s.pool.QueryRow(ctx, query,
		n.Name, n.MarketSize, n.Competition, n.WillingnessToPay, n.Overall, n.ResearchNotes, n.Status,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert niche: %w", err)
	}
	return id, nil
}

// GetNicheByName loads a niche row by its unique name.
func (s *Store) GetNicheByName(ctx context.Context, name string) (*Niche, error) {
	query := `
		SELECT id, name, market_size, competition, willingness_to_pay, overall, research_notes, status, created_at
		FROM niches WHERE name = $1
	`
	var n Niche
	err := s.pool.QueryRow(ctx, query, name).Scan(
		&n.ID, &n.Name, &n.MarketSize, &n.Competition, &n.WillingnessToPay,
		&n.Overall, &n.ResearchNotes, &n.Status, &n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: niche %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to load niche: %w", err)
	}
	return &n, nil
}

// GetNiche loads a niche row by id.
func (s *Store) GetNiche(ctx context.Context, nicheID string) (*Niche, error) {
	query := `
		SELECT id, name, market_size, competition, willingness_to_pay, overall, research_notes, status, created_at
		FROM niches WHERE id = $1
	`
	var n Niche
	err := s.pool.QueryRow(ctx, query, nicheID).Scan(
		&n.ID, &n.Name, &n.MarketSize, &n.Competition, &n.WillingnessToPay,
		&n.Overall, &n.ResearchNotes, &n.Status, &n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: niche %s", ErrNotFound, nicheID)
		}
		return nil, fmt.Errorf("failed to load niche: %w", err)
	}
	return &n, nil
}

// SaveNicheEmbedding attaches the embedding vector to a niche row.
func (s *Store) SaveNicheEmbedding(ctx context.Context, nicheID string, embedding []float32) error {
	query := `UPDATE niches SET embedding = $2 WHERE id = $1`
	if _, err := s.pool.Exec(ctx, query, nicheID, formatVector(embedding)); err != nil {
		return fmt.Errorf("failed to save niche embedding: %w", err)
	}
	return nil
}

// MatchNiche returns the stored niche nearest to the embedding by cosine
// distance, or ErrNotFound when no niche has an embedding yet. Callers
// decide what distance counts as "the same niche".
func (s *Store) MatchNiche(ctx context.Context, embedding []float32) (*NicheMatch, error) {
	query := `
		SELECT id, name, embedding <=> $1 AS distance
		FROM niches
		WHERE embedding IS NOT NULL
		ORDER BY distance
		LIMIT 1
	`
	var m NicheMatch
	err := s.pool.QueryRow(ctx, query, formatVector(embedding)).Scan(&m.ID, &m.Name, &m.Distance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no embedded niches", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to match niche: %w", err)
	}
	return &m, nil
}

// UpdateNicheStatus moves a niche to a new status, for the feedback loop
// that cools off niches with poor engagement.
func (s *Store) UpdateNicheStatus(ctx context.Context, name, status string) error {
	query := `UPDATE niches SET status = $2 WHERE name = $1`
	tag, err := s.pool.Exec(ctx, query, name, status)
	if err != nil {
		return fmt.Errorf("failed to update niche status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: niche %s", ErrNotFound, name)
	}
	return nil
}

// UpsertLead inserts the lead or refreshes it when the LinkedIn URL already
// exists, and returns the row id either way.
func (s *Store) UpsertLead(ctx context.Context, lead state.Lead) (string, error) {
	query := `
		INSERT INTO leads (niche_id, name, company, role, linkedin_url, url, score, stage)
		VALUES (NULLIF($1, '')::uuid, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (linkedin_url) DO UPDATE SET
			name = EXCLUDED.name,
			company = EXCLUDED.company,
			role = EXCLUDED.role,
			url = EXCLUDED.url,
			score = EXCLUDED.score,
			stage = EXCLUDED.stage,
			updated_at = now()
		RETURNING id
	`
	stage := lead.Stage
	if stage == "" {
		stage = "prospect"
	}
	var id string
	err := s.pool.QueryRow(ctx, query,
		lead.NicheID, lead.Name, lead.Company, lead.Role, lead.LinkedInURL, lead.URL, lead.Score, stage,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert lead: %w", err)
	}
	return id, nil
}

// GetLead loads one lead row by id.
func (s *Store) GetLead(ctx context.Context, leadID string) (*state.Lead, error) {
	query := `
		SELECT id, COALESCE(niche_id::text, ''), name, company, role, linkedin_url, url, score, stage
		FROM leads WHERE id = $1
	`
	var lead state.Lead
	err := s.pool.QueryRow(ctx, query, leadID).Scan(
		&lead.ID, &lead.NicheID, &lead.Name, &lead.Company, &lead.Role,
		&lead.LinkedInURL, &lead.URL, &lead.Score, &lead.Stage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: lead %s", ErrNotFound, leadID)
		}
		return nil, fmt.Errorf("failed to load lead: %w", err)
	}
	return &lead, nil
}

// UpdateLeadVision records the visual analysis results on a lead.
func (s *Store) UpdateLeadVision(ctx context.Context, leadID string, vibeScore int, analysis string) error {
	query := `
		UPDATE leads SET visual_vibe_score = $2, visual_analysis = $3, stage = 'analyzed', updated_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query, leadID, vibeScore, analysis)
	if err != nil {
		return fmt.Errorf("failed to update lead vision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: lead %s", ErrNotFound, leadID)
	}
	return nil
}

// UpdateLeadStage moves a lead to a new pipeline stage.
func (s *Store) UpdateLeadStage(ctx context.Context, leadID, stage string) error {
	query := `UPDATE leads SET stage = $2, updated_at = now() WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, leadID, stage)
	if err != nil {
		return fmt.Errorf("failed to update lead stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: lead %s", ErrNotFound, leadID)
	}
	return nil
}

// InsertMessageDraft stores an outreach draft for a lead and moves the lead
// to the drafted stage.
func (s *Store) InsertMessageDraft(ctx context.Context, leadID string, draft state.Draft) (string, error) {
	query := `
		INSERT INTO message_drafts (lead_id, subject, content)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id string
	if err := s.pool.QueryRow(ctx, query, leadID, draft.Subject, draft.Content).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert message draft: %w", err)
	}
	if err := s.UpdateLeadStage(ctx, leadID, "drafted"); err != nil {
		return "", err
	}
	return id, nil
}

// LeadStageCounts returns how many leads sit at each stage, for the
// feedback report.
func (s *Store) LeadStageCounts(ctx context.Context) ([]StageCount, error) {
	query := `SELECT stage, COUNT(*) FROM leads GROUP BY stage ORDER BY stage`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count lead stages: %w", err)
	}
	defer rows.Close()

	var counts []StageCount
	for rows.Next() {
		var sc StageCount
		if err := rows.Scan(&sc.Stage, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan stage count: %w", err)
		}
		counts = append(counts, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stage counts: %w", err)
	}
	return counts, nil
}

// formatVector renders an embedding in pgvector's text format.
func formatVector(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
