package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/corpusai/corpusd/internal/domain"
)

// Tool is one capability the agent can invoke during its reasoning
// loop. Invoke errors are fed back to the model as observations, never
// propagated as executor failures.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage
	Invoke(ctx context.Context, args json.RawMessage) (string, error)
}

// DocumentSearchTool exposes filtered similarity search to the agent.
// Filters and settings are bound when the tool set is built for a
// query, so the model cannot widen them.
type DocumentSearchTool struct {
	index     Index
	tags      []string
	metadata  map[string]any
	threshold float64
	maxChunks int
}

func NewDocumentSearchTool(index Index, tags []string, metadata map[string]any, settings domain.InstructionSettings) *DocumentSearchTool {
	return &DocumentSearchTool{
		index:     index,
		tags:      tags,
		metadata:  metadata,
		threshold: settings.SimilarityThreshold,
		maxChunks: settings.MaxChunks,
	}
}

func (t *DocumentSearchTool) Name() string { return "document_search" }

func (t *DocumentSearchTool) Description() string {
	return "Search the indexed documents for passages relevant to a query. Returns passages with their sources. Use this before answering any question about the documents."
}

func (t *DocumentSearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "The search query"}
		},
		"required": ["query"]
	}`)
}

func (t *DocumentSearchTool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("invalid document_search arguments: %w", err)
	}
	if strings.TrimSpace(params.Query) == "" {
		return "", fmt.Errorf("document_search requires a query")
	}

	filtering := len(t.tags) > 0 || len(t.metadata) > 0
	candidates, err := t.index.Search(ctx, params.Query, candidateLimit(t.maxChunks, filtering))
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}

	matches := filterChunks(candidates, t.tags, t.metadata, t.threshold, t.maxChunks)
	if len(matches) == 0 {
		return "No relevant documents found.", nil
	}

	var b strings.Builder
	for i, sc := range matches {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source: %s]\n%s", sc.Chunk.Source, sc.Chunk.Content)
	}
	return b.String(), nil
}

// CalculatorTool evaluates arithmetic expressions with the whitelisted
// expression parser.
type CalculatorTool struct{}

func NewCalculatorTool() *CalculatorTool { return &CalculatorTool{} }

func (t *CalculatorTool) Name() string { return "calculator" }

func (t *CalculatorTool) Description() string {
	return "Evaluate an arithmetic expression. Supports + - * / ^, parentheses, the constants pi and e, and the functions abs, sqrt, round, floor, ceil, min, max."
}

func (t *CalculatorTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"expression": {"type": "string", "description": "The arithmetic expression to evaluate"}
		},
		"required": ["expression"]
	}`)
}

func (t *CalculatorTool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Expression string `json:"expression"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("invalid calculator arguments: %w", err)
	}

	value, err := evalExpression(params.Expression)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(value, 'f', -1, 64), nil
}

// DocumentSummaryTool retrieves the top matches for a topic and issues
// a second generation call to summarize them.
type DocumentSummaryTool struct {
	index Index
	chat  ChatClientInterface
	model string
	topK  int
}

func NewDocumentSummaryTool(index Index, chat ChatClientInterface, model string) *DocumentSummaryTool {
	return &DocumentSummaryTool{
		index: index,
		chat:  chat,
		model: model,
		topK:  6,
	}
}

func (t *DocumentSummaryTool) Name() string { return "document_summary" }

func (t *DocumentSummaryTool) Description() string {
	return "Summarize what the indexed documents say about a topic. Use this for broad overview questions rather than specific lookups."
}

func (t *DocumentSummaryTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"topic": {"type": "string", "description": "The topic to summarize"}
		},
		"required": ["topic"]
	}`)
}

func (t *DocumentSummaryTool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Topic string `json:"topic"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("invalid document_summary arguments: %w", err)
	}

	matches, err := t.index.Search(ctx, params.Topic, t.topK)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	if len(matches) == 0 {
		return "No relevant documents found.", nil
	}

	var b strings.Builder
	for i, sc := range matches {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source: %s]\n%s", sc.Chunk.Source, sc.Chunk.Content)
	}

	reply, err := t.chat.ChatCompletion(ctx, domain.ChatRequest{
		Model: t.model,
		Messages: []domain.ChatMessage{
			{Role: domain.ChatRoleSystem, Content: "Summarize the following document excerpts concisely. Mention the sources you used as 'Source: <name>'."},
			{Role: domain.ChatRoleUser, Content: b.String()},
		},
	})
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}
	return reply.Content, nil
}

// toolSpecs converts tools to the wire schema offered to the model.
func toolSpecs(tools []Tool) []domain.ToolSpec {
	specs := make([]domain.ToolSpec, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, domain.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return specs
}
