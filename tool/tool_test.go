package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGoogleSearchRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SEARCH_API_KEY", "")
	t.Setenv("GOOGLE_SEARCH_ENGINE_ID", "")

	_, err := NewGoogleSearch("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestGoogleSearchSanitizesSnippets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "solar installer pain points", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items": [
			{"title": "Solar <b>Review</b>", "link": "https://example.com/a", "htmlSnippet": "Installers <b>struggle</b> with lead gen"},
			{"title": "Forum", "link": "https://example.com/b", "snippet": "plain snippet"}
		]}`))
	}))
	defer server.Close()

	g, err := NewGoogleSearch("test-key", "test-cx", WithGoogleBaseURL(server.URL))
	require.NoError(t, err)

	results, err := g.Search(context.Background(), "solar installer pain points")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Solar Review", results[0].Title)
	assert.Equal(t, "Installers struggle with lead gen", results[0].Snippet)
	assert.Equal(t, "plain snippet", results[1].Snippet)
}

func TestGoogleSearchNoHits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	g, err := NewGoogleSearch("k", "cx", WithGoogleBaseURL(server.URL))
	require.NoError(t, err)

	results, err := g.Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGoogleSearchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	g, err := NewGoogleSearch("k", "cx", WithGoogleBaseURL(server.URL))
	require.NoError(t, err)

	_, err = g.Search(context.Background(), "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestFormatResults(t *testing.T) {
	out := FormatResults([]SearchResult{
		{Title: "A", URL: "https://a", Snippet: "first"},
		{Title: "B", URL: "https://b", Snippet: "second"},
	})
	assert.Contains(t, out, "1. Title: A")
	assert.Contains(t, out, "2. Title: B")
	assert.Contains(t, out, "Snippet: second")
}

func TestPageSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head>
			<title>Acme Solar</title>
			<meta name="description" content="Residential solar installs">
			<script>var x = 1;</script>
		</head><body><p>We install panels.</p></body></html>`))
	}))
	defer server.Close()

	summary, err := PageSummary(context.Background(), server.Client(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, summary, "Title: Acme Solar")
	assert.Contains(t, summary, "Description: Residential solar installs")
	assert.Contains(t, summary, "We install panels.")
	assert.NotContains(t, summary, "var x")
}

func TestDiscordWebhookNotify(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		got = string(body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewDiscordWebhook(server.URL, server.Client())
	err := d.Notify(context.Background(), "niche validated: Solar Installers")
	require.NoError(t, err)
	assert.Contains(t, got, "niche validated: Solar Installers")
}

func TestDiscordWebhookTruncates(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		got = string(body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewDiscordWebhook(server.URL, server.Client())
	err := d.Notify(context.Background(), strings.Repeat("x", 3000))
	require.NoError(t, err)
	assert.Contains(t, got, "...")
	assert.Less(t, len(got), 2100)
}

func TestDiscordWebhookUnconfiguredIsNoOp(t *testing.T) {
	d := NewDiscordWebhook("", nil)
	assert.NoError(t, d.Notify(context.Background(), "dropped"))
}
