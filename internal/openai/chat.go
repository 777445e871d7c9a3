package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/corpusai/corpusd/internal/domain"
)

// ChatClient issues chat completion calls, translating between domain
// chat types and the OpenAI wire types.
type ChatClient struct {
	client *openai.Client
}

// NewChatClient creates a ChatClient for the given API key.
func NewChatClient(apiKey string) *ChatClient {
	return &ChatClient{client: openai.NewClient(apiKey)}
}

// ChatCompletion sends one generation call and returns the assistant
// message, which may carry tool call requests instead of content.
func (c *ChatClient) ChatCompletion(ctx context.Context, req domain.ChatRequest) (domain.ChatMessage, error) {
	apiReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		Messages:    toAPIMessages(req.Messages),
		Tools:       toAPITools(req.Tools),
	}

	resp, err := c.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return domain.ChatMessage{}, errors.New("no completion choices returned")
	}

	return fromAPIMessage(resp.Choices[0].Message), nil
}

func toAPIMessages(messages []domain.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		apiMsg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			apiMsg.ToolCalls = append(apiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		out = append(out, apiMsg)
	}
	return out
}

func toAPITools(tools []domain.ToolSpec) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(t.Parameters),
			},
		})
	}
	return out
}

func fromAPIMessage(m openai.ChatCompletionMessage) domain.ChatMessage {
	out := domain.ChatMessage{
		Role:    m.Role,
		Content: m.Content,
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out
}
