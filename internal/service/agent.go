package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/corpusai/corpusd/internal/domain"
	"github.com/corpusai/corpusd/internal/telemetry"
)

// ChatClientInterface defines the interface for chat completion calls.
type ChatClientInterface interface {
	ChatCompletion(ctx context.Context, req domain.ChatRequest) (domain.ChatMessage, error)
}

// DefaultMaxIterations bounds the agent's reason-act loop.
const DefaultMaxIterations = 8

// DefaultMemoryWindow is the number of user/assistant exchange pairs
// kept in conversation memory.
const DefaultMemoryWindow = 10

// ConversationMemory is a bounded sliding window over past exchanges.
// Exceeding the window evicts the oldest turns.
type ConversationMemory struct {
	mu       sync.Mutex
	window   int
	messages []domain.ChatMessage
}

func NewConversationMemory(window int) *ConversationMemory {
	if window <= 0 {
		window = DefaultMemoryWindow
	}
	return &ConversationMemory{window: window}
}

// Append records one completed exchange and trims to the window.
func (m *ConversationMemory) Append(question, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages,
		domain.ChatMessage{Role: domain.ChatRoleUser, Content: question},
		domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: answer},
	)
	if max := m.window * 2; len(m.messages) > max {
		m.messages = m.messages[len(m.messages)-max:]
	}
}

// Messages returns a copy of the remembered transcript.
func (m *ConversationMemory) Messages() []domain.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ChatMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Clear drops all remembered turns.
func (m *ConversationMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

// AgentExecutor runs the bounded reason-act loop: each reasoning step
// either yields a final answer or requests tool calls, whose results
// are appended to the transcript before the next step.
type AgentExecutor struct {
	chat          ChatClientInterface
	model         string
	temperature   float32
	maxIterations int
	memory        *ConversationMemory
}

// AgentConfig controls an executor instance.
type AgentConfig struct {
	Model         string
	Temperature   float32
	MaxIterations int
	MemoryWindow  int
}

func NewAgentExecutor(chat ChatClientInterface, cfg AgentConfig) *AgentExecutor {
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &AgentExecutor{
		chat:          chat,
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		maxIterations: maxIterations,
		memory:        NewConversationMemory(cfg.MemoryWindow),
	}
}

// Model returns the model name this executor generates with.
func (e *AgentExecutor) Model() string {
	return e.model
}

// Memory exposes the executor's conversation memory.
func (e *AgentExecutor) Memory() *ConversationMemory {
	return e.memory
}

// RunOutput carries the final answer plus the tool observations made
// along the way, for source extraction.
type RunOutput struct {
	Answer       string
	Observations []string
}

// Run executes the loop for one prompt. Tool errors are converted to
// textual observations so the model can adapt; only infrastructure
// failures and the iteration ceiling are terminal.
func (e *AgentExecutor) Run(ctx context.Context, prompt string, tools []Tool) (*RunOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "AgentExecutor.Run", telemetry.SpanAttributes{
		Model:     e.model,
		Operation: "agent_run",
	})
	defer span.End()

	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
	}

	messages := e.memory.Messages()
	messages = append(messages, domain.ChatMessage{Role: domain.ChatRoleUser, Content: prompt})

	out := &RunOutput{}

	for iteration := 0; iteration < e.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reply, err := e.chat.ChatCompletion(ctx, domain.ChatRequest{
			Model:       e.model,
			Temperature: e.temperature,
			Messages:    messages,
			Tools:       toolSpecs(tools),
		})
		if err != nil {
			span.SetError(err)
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGenerationFailed, "model call failed", err)
		}

		if len(reply.ToolCalls) == 0 {
			out.Answer = reply.Content
			e.memory.Append(prompt, reply.Content)
			return out, nil
		}

		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			observation := e.invokeTool(ctx, byName, call)
			out.Observations = append(out.Observations, observation)
			messages = append(messages, domain.ChatMessage{
				Role:       domain.ChatRoleTool,
				Content:    observation,
				ToolCallID: call.ID,
			})
		}
	}

	span.SetError(domain.ErrMaxIterationsExceeded)
	return nil, domain.ErrMaxIterationsExceeded
}

func (e *AgentExecutor) invokeTool(ctx context.Context, byName map[string]Tool, call domain.ToolCall) string {
	tool, ok := byName[call.Name]
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", call.Name)
	}
	result, err := tool.Invoke(ctx, call.Arguments)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return result
}
