package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverseAPI struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (f *fakeConverseAPI) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = params
	return f.out, f.err
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(12),
			OutputTokens: aws.Int32(8),
			TotalTokens:  aws.Int32(20),
		},
	}
}

func TestBedrockClient_Complete(t *testing.T) {
	api := &fakeConverseAPI{out: textOutput(`  {"reply":"hi"}  `)}
	client := NewBedrockClient(api, "anthropic.claude-haiku")

	resp, err := client.Complete(context.Background(), Request{
		System: []string{"be brief", "  "},
		Messages: []Message{
			{Role: RoleAssistant, Content: "Hello!"},
			{Role: RoleUser, Content: "Morocco please"},
			{Role: RoleSystem, Content: "known facts"},
		},
		MaxTokens:   200,
		Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"reply":"hi"}`, resp.Text)
	assert.Equal(t, int32(20), resp.Usage.TotalTokens)
	assert.Equal(t, "end_turn", resp.StopReason)

	require.NotNil(t, api.input)
	assert.Equal(t, "anthropic.claude-haiku", aws.ToString(api.input.ModelId))
	assert.Len(t, api.input.System, 2, "blank system block dropped, system-role message promoted")
	assert.Len(t, api.input.Messages, 2)
	assert.Equal(t, int32(200), aws.ToInt32(api.input.InferenceConfig.MaxTokens))
}

func TestBedrockClient_RequiresModel(t *testing.T) {
	client := NewBedrockClient(&fakeConverseAPI{}, "")
	_, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	assert.Error(t, err)
}

func TestBedrockClient_RejectsUnknownRole(t *testing.T) {
	client := NewBedrockClient(&fakeConverseAPI{out: textOutput("x")}, "m")
	_, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: "tool", Content: "hi"}}})
	assert.Error(t, err)
}

func TestBedrockClient_PropagatesErrors(t *testing.T) {
	boom := errors.New("throttled")
	client := NewBedrockClient(&fakeConverseAPI{err: boom}, "m")
	_, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	assert.ErrorIs(t, err, boom)
}

func TestBedrockClient_EmptyText(t *testing.T) {
	client := NewBedrockClient(&fakeConverseAPI{out: textOutput("   ")}, "m")
	_, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	assert.Error(t, err)
}
