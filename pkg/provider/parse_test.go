package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nogap/remedy/pkg/goal"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "json code fence",
			text: "Here is the ordering:\n```json\n{\"goal_id\": \"g1\"}\n```\nDone.",
			want: `{"goal_id": "g1"}`,
		},
		{
			name: "plain code fence",
			text: "```\n{\"goal_id\": \"g1\"}\n```",
			want: `{"goal_id": "g1"}`,
		},
		{
			name: "bare object with prose",
			text: "Sure! {\"goal_id\": \"g1\"} Hope that helps.",
			want: `{"goal_id": "g1"}`,
		},
		{
			name: "no json at all",
			text: "I cannot do that.",
			want: "I cannot do that.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.text))
		})
	}
}

func TestParseOrderingResponse(t *testing.T) {
	t.Run("parses fenced response", func(t *testing.T) {
		text := "```json\n" + `{
  "goal_id": "g1",
  "entries": [
    {"policy_id": "pol-1", "order": 1, "confidence": 0.9, "reason": "highest risk"},
    {"policy_id": "pol-2", "order": 2, "confidence": 0.7, "reason": "reboot penalty"}
  ]
}` + "\n```"

		resp, err := ParseOrderingResponse(text)
		require.NoError(t, err)
		assert.Equal(t, "g1", resp.GoalID)
		require.Len(t, resp.Entries, 2)
		assert.Equal(t, "pol-1", resp.Entries[0].PolicyID)
		assert.Equal(t, 1, resp.Entries[0].Order)
		assert.Equal(t, 0.9, resp.Entries[0].Confidence)
	})

	t.Run("rejects non-json output", func(t *testing.T) {
		_, err := ParseOrderingResponse("I refuse to order these policies.")
		assert.Error(t, err)
	})

	t.Run("rejects empty entries", func(t *testing.T) {
		_, err := ParseOrderingResponse(`{"goal_id": "g1", "entries": []}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no entries")
	})
}

func TestBuildOrderingPrompt(t *testing.T) {
	g := goal.MinimizeRisk(0.8)
	prompt := BuildOrderingPrompt(OrderingRequest{
		Goal: g,
		Candidates: []OrderingCandidate{
			{PolicyID: "pol-1", RiskScore: 0.9, Severity: "high", Constraints: []string{"requires_reboot"}},
		},
		MaxSteps: 50,
	})

	assert.Contains(t, prompt, g.ID)
	assert.Contains(t, prompt, "pol-1")
	assert.Contains(t, prompt, "requires_reboot")
	assert.Contains(t, prompt, "MUST NOT invent new policies")
	assert.Contains(t, prompt, "MUST NOT suggest executing")
	assert.Contains(t, prompt, "human review only")
}
