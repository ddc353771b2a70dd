package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when neither the client nor the request names a model.
const DefaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicMessager is the slice of the SDK the client uses; tests substitute it.
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicClient completes requests through the Anthropic Messages API.
type AnthropicClient struct {
	messages AnthropicMessager
	model    string
}

// NewAnthropicClient builds a client from an API key.
func NewAnthropicClient(apiKey, model string) (*AnthropicClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm: anthropic api key is required")
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicClientWithMessager(&c.Messages, model), nil
}

func NewAnthropicClientWithMessager(messages AnthropicMessager, model string) *AnthropicClient {
	if messages == nil {
		panic("llm: anthropic messages service cannot be nil")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicClient{messages: messages, model: model}
}

func (c *AnthropicClient) Complete(ctx context.Context, req Request) (Response, error) {
	model := c.model
	if strings.TrimSpace(req.Model) != "" {
		model = req.Model
	}

	var system []anthropic.TextBlockParam
	for _, block := range req.System {
		if strings.TrimSpace(block) != "" {
			system = append(system, anthropic.TextBlockParam{Text: block})
		}
	}

	turns := alternateTurns(req.Messages)
	if len(turns) == 0 {
		return Response{}, errors.New("llm: anthropic requires at least one user message")
	}
	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, turn := range turns {
		block := anthropic.NewTextBlock(turn.Content)
		if turn.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
	}
	if req.Temperature >= 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}

	resp, err := c.messages.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("llm: anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return Response{}, errors.New("llm: anthropic response contained no text")
	}
	return Response{
		Text:       strings.TrimSpace(sb.String()),
		StopReason: string(resp.StopReason),
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.InputTokens),
			OutputTokens: int32(resp.Usage.OutputTokens),
			TotalTokens:  int32(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// alternateTurns drops system and leading assistant messages and merges
// consecutive same-role messages; the Messages API wants user-first alternation.
func alternateTurns(in []Message) []Message {
	var out []Message
	for _, msg := range in {
		content := strings.TrimSpace(msg.Content)
		if content == "" || msg.Role == RoleSystem {
			continue
		}
		role := RoleUser
		if msg.Role == RoleAssistant {
			role = RoleAssistant
		}
		if len(out) == 0 && role == RoleAssistant {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content += "\n\n" + content
			continue
		}
		out = append(out, Message{Role: role, Content: content})
	}
	return out
}
