package service

import (
	"strings"
	"testing"

	"github.com/corpusai/corpusd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposePrompt_Ordering(t *testing.T) {
	settings := domain.InstructionSettings{
		SystemInstruction: "Answer only from the context.",
		ResponseLength:    domain.ResponseLengthShort,
	}

	prompt := composePrompt("What is the refund window?", "[Source: policy.txt]\nRefunds within 30 days.", settings)

	priorityIdx := strings.Index(prompt, "IMPORTANT:")
	instructionIdx := strings.Index(prompt, "Answer only from the context.")
	directiveIdx := strings.Index(prompt, "at most 300 characters")
	contextIdx := strings.Index(prompt, "Context:")
	questionIdx := strings.Index(prompt, "Question: What is the refund window?")

	require.NotEqual(t, -1, priorityIdx)
	require.NotEqual(t, -1, instructionIdx)
	require.NotEqual(t, -1, directiveIdx)
	require.NotEqual(t, -1, contextIdx)
	require.NotEqual(t, -1, questionIdx)

	assert.Less(t, priorityIdx, instructionIdx)
	assert.Less(t, instructionIdx, directiveIdx)
	assert.Less(t, directiveIdx, contextIdx)
	assert.Less(t, contextIdx, questionIdx)

	// The question comes last.
	assert.True(t, strings.HasSuffix(prompt, "Question: What is the refund window?"))
}

func TestComposePrompt_EmptyInstructionOmitted(t *testing.T) {
	settings := domain.InstructionSettings{
		SystemInstruction: "   ",
		ResponseLength:    domain.ResponseLengthMedium,
	}

	prompt := composePrompt("q", "", settings)

	assert.NotContains(t, prompt, "Context:")
	assert.Contains(t, prompt, "3 to 5 sentences")
	assert.True(t, strings.HasSuffix(prompt, "Question: q"))
}

func TestLengthDirective_ShortMentionsConstraints(t *testing.T) {
	directive := lengthDirective(domain.ResponseLengthShort)

	assert.Contains(t, directive, "300")
	assert.Contains(t, directive, "bullet points")
	assert.Contains(t, directive, "line breaks")
}

func TestLengthDirective_AllLengthsNonEmpty(t *testing.T) {
	for _, length := range []domain.ResponseLength{
		domain.ResponseLengthShort,
		domain.ResponseLengthMedium,
		domain.ResponseLengthLong,
		domain.ResponseLengthDetailed,
	} {
		assert.NotEmpty(t, lengthDirective(length))
	}
}

func TestBuildContextBlock(t *testing.T) {
	chunks := []domain.ScoredChunk{
		{Chunk: domain.Chunk{Source: "a.txt", Content: "alpha"}},
		{Chunk: domain.Chunk{Source: "b.txt", Content: "beta"}},
	}

	block := buildContextBlock(chunks)

	assert.Equal(t, "[Source: a.txt]\nalpha\n\n[Source: b.txt]\nbeta", block)
}

func TestBuildContextBlock_Empty(t *testing.T) {
	assert.Empty(t, buildContextBlock(nil))
}
