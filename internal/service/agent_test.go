package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/corpusai/corpusd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedChatClient replays canned replies and records every request it
// receives.
type scriptedChatClient struct {
	replies  []domain.ChatMessage
	err      error
	requests []domain.ChatRequest
}

func (c *scriptedChatClient) ChatCompletion(ctx context.Context, req domain.ChatRequest) (domain.ChatMessage, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return domain.ChatMessage{}, c.err
	}
	if len(c.replies) == 0 {
		return domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: "out of script"}, nil
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply, nil
}

// echoTool returns its raw arguments as the observation.
type echoTool struct {
	name      string
	failWith  error
	lastArgs  json.RawMessage
	callCount int
}

func (t *echoTool) Name() string                { return t.name }
func (t *echoTool) Description() string         { return "echo" }
func (t *echoTool) Parameters() json.RawMessage { return json.RawMessage(`{}`) }
func (t *echoTool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	t.callCount++
	t.lastArgs = args
	if t.failWith != nil {
		return "", t.failWith
	}
	return fmt.Sprintf("echo: %s", string(args)), nil
}

func TestConversationMemory_AppendAndWindow(t *testing.T) {
	mem := NewConversationMemory(2)

	mem.Append("q1", "a1")
	mem.Append("q2", "a2")
	mem.Append("q3", "a3")

	msgs := mem.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "q2", msgs[0].Content)
	assert.Equal(t, "a2", msgs[1].Content)
	assert.Equal(t, "q3", msgs[2].Content)
	assert.Equal(t, "a3", msgs[3].Content)
}

func TestConversationMemory_Clear(t *testing.T) {
	mem := NewConversationMemory(5)
	mem.Append("q", "a")
	mem.Clear()
	assert.Empty(t, mem.Messages())
}

func TestConversationMemory_MessagesReturnsCopy(t *testing.T) {
	mem := NewConversationMemory(5)
	mem.Append("q", "a")

	msgs := mem.Messages()
	msgs[0].Content = "mutated"

	assert.Equal(t, "q", mem.Messages()[0].Content)
}

func TestAgentExecutor_DirectAnswer(t *testing.T) {
	chat := &scriptedChatClient{replies: []domain.ChatMessage{
		{Role: domain.ChatRoleAssistant, Content: "final answer"},
	}}
	exec := NewAgentExecutor(chat, AgentConfig{Model: "gpt-4o-mini", Temperature: 0.2})

	out, err := exec.Run(context.Background(), "question", nil)
	require.NoError(t, err)
	assert.Equal(t, "final answer", out.Answer)
	assert.Empty(t, out.Observations)

	// The exchange lands in memory for the next run.
	msgs := exec.Memory().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "question", msgs[0].Content)
	assert.Equal(t, "final answer", msgs[1].Content)
}

func TestAgentExecutor_ToolCallLoop(t *testing.T) {
	args := json.RawMessage(`{"query":"refunds"}`)
	chat := &scriptedChatClient{replies: []domain.ChatMessage{
		{
			Role: domain.ChatRoleAssistant,
			ToolCalls: []domain.ToolCall{
				{ID: "call_1", Name: "echo", Arguments: args},
			},
		},
		{Role: domain.ChatRoleAssistant, Content: "used the tool"},
	}}
	tool := &echoTool{name: "echo"}
	exec := NewAgentExecutor(chat, AgentConfig{Model: "gpt-4o-mini"})

	out, err := exec.Run(context.Background(), "question", []Tool{tool})
	require.NoError(t, err)
	assert.Equal(t, "used the tool", out.Answer)
	require.Len(t, out.Observations, 1)
	assert.Equal(t, `echo: {"query":"refunds"}`, out.Observations[0])
	assert.Equal(t, 1, tool.callCount)

	// The second request carries the tool reply back to the model.
	require.Len(t, chat.requests, 2)
	second := chat.requests[1]
	last := second.Messages[len(second.Messages)-1]
	assert.Equal(t, domain.ChatRoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Equal(t, out.Observations[0], last.Content)
}

func TestAgentExecutor_ToolErrorBecomesObservation(t *testing.T) {
	chat := &scriptedChatClient{replies: []domain.ChatMessage{
		{
			Role: domain.ChatRoleAssistant,
			ToolCalls: []domain.ToolCall{
				{ID: "call_1", Name: "echo", Arguments: json.RawMessage(`{}`)},
			},
		},
		{Role: domain.ChatRoleAssistant, Content: "recovered"},
	}}
	tool := &echoTool{name: "echo", failWith: errors.New("backend down")}
	exec := NewAgentExecutor(chat, AgentConfig{Model: "gpt-4o-mini"})

	out, err := exec.Run(context.Background(), "question", []Tool{tool})
	require.NoError(t, err)
	assert.Equal(t, "recovered", out.Answer)
	require.Len(t, out.Observations, 1)
	assert.Equal(t, "Error: backend down", out.Observations[0])
}

func TestAgentExecutor_UnknownTool(t *testing.T) {
	chat := &scriptedChatClient{replies: []domain.ChatMessage{
		{
			Role: domain.ChatRoleAssistant,
			ToolCalls: []domain.ToolCall{
				{ID: "call_1", Name: "missing", Arguments: json.RawMessage(`{}`)},
			},
		},
		{Role: domain.ChatRoleAssistant, Content: "done"},
	}}
	exec := NewAgentExecutor(chat, AgentConfig{Model: "gpt-4o-mini"})

	out, err := exec.Run(context.Background(), "question", nil)
	require.NoError(t, err)
	require.Len(t, out.Observations, 1)
	assert.Equal(t, `Error: unknown tool "missing"`, out.Observations[0])
}

func TestAgentExecutor_IterationCeiling(t *testing.T) {
	// Every reply requests another tool call, so the loop never
	// produces an answer.
	looping := domain.ChatMessage{
		Role: domain.ChatRoleAssistant,
		ToolCalls: []domain.ToolCall{
			{ID: "call_x", Name: "echo", Arguments: json.RawMessage(`{}`)},
		},
	}
	chat := &scriptedChatClient{replies: []domain.ChatMessage{
		looping, looping, looping,
	}}
	tool := &echoTool{name: "echo"}
	exec := NewAgentExecutor(chat, AgentConfig{Model: "gpt-4o-mini", MaxIterations: 3})

	_, err := exec.Run(context.Background(), "question", []Tool{tool})
	assert.ErrorIs(t, err, domain.ErrMaxIterationsExceeded)
	assert.Equal(t, 3, tool.callCount)

	// A failed run leaves no exchange in memory.
	assert.Empty(t, exec.Memory().Messages())
}

func TestAgentExecutor_ModelFailure(t *testing.T) {
	chat := &scriptedChatClient{err: errors.New("api unreachable")}
	exec := NewAgentExecutor(chat, AgentConfig{Model: "gpt-4o-mini"})

	_, err := exec.Run(context.Background(), "question", nil)
	require.Error(t, err)
	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeGenerationFailed, derr.Code)
}

func TestAgentExecutor_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chat := &scriptedChatClient{}
	exec := NewAgentExecutor(chat, AgentConfig{Model: "gpt-4o-mini"})

	_, err := exec.Run(ctx, "question", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, chat.requests)
}

func TestAgentExecutor_MemoryCarriesAcrossRuns(t *testing.T) {
	chat := &scriptedChatClient{replies: []domain.ChatMessage{
		{Role: domain.ChatRoleAssistant, Content: "first"},
		{Role: domain.ChatRoleAssistant, Content: "second"},
	}}
	exec := NewAgentExecutor(chat, AgentConfig{Model: "gpt-4o-mini"})

	_, err := exec.Run(context.Background(), "q1", nil)
	require.NoError(t, err)
	_, err = exec.Run(context.Background(), "q2", nil)
	require.NoError(t, err)

	require.Len(t, chat.requests, 2)
	second := chat.requests[1]
	require.Len(t, second.Messages, 3)
	assert.Equal(t, "q1", second.Messages[0].Content)
	assert.Equal(t, "first", second.Messages[1].Content)
	assert.Equal(t, "q2", second.Messages[2].Content)
}
