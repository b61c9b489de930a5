// Package llm abstracts the language model behind a small client interface
// so agents can be tested with canned responses.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Client is the model surface the agents consume.
type Client interface {
	// Generate returns the raw text completion for a prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateJSON prompts for a JSON response and unmarshals it into out.
	GenerateJSON(ctx context.Context, prompt string, out any) error

	// GenerateVision runs a multimodal prompt over a base64-encoded PNG.
	GenerateVision(ctx context.Context, prompt, imageB64 string) (string, error)

	// Embed returns the embedding vector for a text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ExtractJSON pulls a JSON document out of a model response. Models wrap
// payloads in markdown fences or chatter around them; this strips a
// ```json fence when present and otherwise cuts from the first opening
// brace or bracket to the matching last one.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "JSON")
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}

	objStart := strings.Index(s, "{")
	arrStart := strings.Index(s, "[")
	start := objStart
	closer := "}"
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start = arrStart
		closer = "]"
	}
	if start < 0 {
		return s
	}
	end := strings.LastIndex(s, closer)
	if end <= start {
		return s
	}
	return s[start : end+1]
}

// UnmarshalResponse extracts and decodes a JSON model response into out.
func UnmarshalResponse(raw string, out any) error {
	doc := ExtractJSON(raw)
	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return nil
}
