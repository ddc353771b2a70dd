package conversation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/wayloft-concierge/internal/llm"
)

func TestPromptBuilderIncludesRulesAndKnownFacts(t *testing.T) {
	b := NewPromptBuilder(PromptConfig{
		Destinations: []string{"Morocco", "Jordan"},
		MaxTokens:    400,
		Temperature:  0.4,
	})
	req := b.Build(StageContactEmail, CapturedLead{Destination: "Morocco", Name: "John"}, []ChatMessage{
		{Role: RoleAssistant, Text: "Where to?"},
		{Role: RoleUser, Text: "Morocco"},
		{Role: RoleUser, Text: "   "},
	})

	require.Len(t, req.System, 2)
	assert.Contains(t, req.System[0], "Morocco, Jordan")
	assert.Contains(t, req.System[0], "TOTAL for the whole trip")
	assert.Contains(t, req.System[1], "- destination: Morocco")
	assert.Contains(t, req.System[1], "- name: John")
	assert.Contains(t, req.System[1], "Still unknown:")
	assert.Contains(t, req.System[1], "email address")
	assert.EqualValues(t, 400, req.MaxTokens)
	assert.InDelta(t, 0.4, req.Temperature, 0.0001)

	assert.Equal(t, []llm.Message{
		{Role: llm.RoleAssistant, Content: "Where to?"},
		{Role: llm.RoleUser, Content: "Morocco"},
	}, req.Messages)
}

func TestPromptBuilderTrimsHistory(t *testing.T) {
	b := NewPromptBuilder(PromptConfig{Destinations: []string{"Turkey"}, HistoryLimit: 3})
	var history []ChatMessage
	for i := 0; i < 10; i++ {
		history = append(history, ChatMessage{Role: RoleUser, Text: fmt.Sprintf("message %d", i)})
	}
	req := b.Build(StageIntake, CapturedLead{}, history)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "message 7", req.Messages[0].Content)
	assert.False(t, strings.Contains(req.System[1], "next question"), "intake has no fixed follow-up")
}
