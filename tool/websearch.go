// Package tool holds the external-world collaborators the agents call:
// web search, headless browser capture, and Discord notifications. Each is
// behind a small interface so agent tests run against fakes.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearcher finds pages for a query. An empty result slice with a nil
// error means the query genuinely matched nothing.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// GoogleSearch implements WebSearcher on the Google Custom Search JSON API.
type GoogleSearch struct {
	apiKey    string
	engineID  string
	baseURL   string
	count     int
	client    *http.Client
	sanitizer *bluemonday.Policy
}

var _ WebSearcher = (*GoogleSearch)(nil)

type GoogleOption func(*GoogleSearch)

// WithGoogleBaseURL overrides the API endpoint, mainly for tests.
func WithGoogleBaseURL(baseURL string) GoogleOption {
	return func(g *GoogleSearch) { g.baseURL = baseURL }
}

// WithGoogleCount sets the number of results to request (1-10).
func WithGoogleCount(count int) GoogleOption {
	return func(g *GoogleSearch) {
		if count < 1 {
			count = 1
		}
		if count > 10 {
			count = 10
		}
		g.count = count
	}
}

// WithGoogleHTTPClient overrides the HTTP client.
func WithGoogleHTTPClient(client *http.Client) GoogleOption {
	return func(g *GoogleSearch) { g.client = client }
}

// NewGoogleSearch creates the search tool. Empty credentials fall back to
// the GOOGLE_SEARCH_API_KEY and GOOGLE_SEARCH_ENGINE_ID environment
// variables; if either is still missing the constructor fails, so a
// misconfigured deployment surfaces at startup rather than mid-run.
func NewGoogleSearch(apiKey, engineID string, opts ...GoogleOption) (*GoogleSearch, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_SEARCH_API_KEY")
	}
	if engineID == "" {
		engineID = os.Getenv("GOOGLE_SEARCH_ENGINE_ID")
	}
	if apiKey == "" || engineID == "" {
		return nil, fmt.Errorf("google search not configured: api key and engine id required")
	}

	g := &GoogleSearch{
		apiKey:    apiKey,
		engineID:  engineID,
		baseURL:   "https://www.googleapis.com/customsearch/v1",
		count:     10,
		client:    http.DefaultClient,
		sanitizer: bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type googleResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Snippet     string `json:"snippet"`
		HTMLSnippet string `json:"htmlSnippet"`
	} `json:"items"`
}

// Search runs the query and returns sanitized results.
func (g *GoogleSearch) Search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", query)
	params.Set("num", fmt.Sprintf("%d", g.count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google search api returned status: %d", resp.StatusCode)
	}

	var body googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]SearchResult, 0, len(body.Items))
	for _, item := range body.Items {
		snippet := item.Snippet
		if snippet == "" {
			snippet = item.HTMLSnippet
		}
		results = append(results, SearchResult{
			Title:   strings.TrimSpace(g.sanitizer.Sanitize(item.Title)),
			URL:     item.Link,
			Snippet: strings.TrimSpace(g.sanitizer.Sanitize(snippet)),
		})
	}
	return results, nil
}

// FormatResults renders search hits as the numbered block the research
// prompts expect.
func FormatResults(results []SearchResult) string {
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. Title: %s\nURL: %s\nSnippet: %s\n\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return sb.String()
}
