package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONFromFence(t *testing.T) {
	raw := "Here you go:\n```json\n{\"overall\": 8}\n```\nLet me know!"
	assert.Equal(t, `{"overall": 8}`, ExtractJSON(raw))
}

func TestExtractJSONFromBareFence(t *testing.T) {
	raw := "```\n{\"a\": 1}\n```"
	assert.Equal(t, `{"a": 1}`, ExtractJSON(raw))
}

func TestExtractJSONFromChatter(t *testing.T) {
	raw := `Sure. The scores are {"market_size": 9, "competition": 4} as requested.`
	assert.Equal(t, `{"market_size": 9, "competition": 4}`, ExtractJSON(raw))
}

func TestExtractJSONArray(t *testing.T) {
	raw := `Leads found: [{"name": "Ada"}, {"name": "Grace"}] total 2`
	assert.Equal(t, `[{"name": "Ada"}, {"name": "Grace"}]`, ExtractJSON(raw))
}

func TestExtractJSONPassthrough(t *testing.T) {
	assert.Equal(t, "no json here", ExtractJSON("  no json here "))
}

func TestUnmarshalResponse(t *testing.T) {
	var out struct {
		Overall int `json:"overall"`
	}
	err := UnmarshalResponse("```json\n{\"overall\": 7}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, 7, out.Overall)
}

func TestUnmarshalResponseError(t *testing.T) {
	var out map[string]any
	err := UnmarshalResponse("{broken", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse model response")
}
