package service

import (
	"fmt"
	"strings"

	"github.com/corpusai/corpusd/internal/domain"
)

// shortAnswerCeiling is the hard character budget for short answers.
const shortAnswerCeiling = 300

// lengthDirective maps a response length class to an explicit
// instruction for the model. Numeric ceilings work better than vague
// adjectives.
func lengthDirective(length domain.ResponseLength) string {
	switch length {
	case domain.ResponseLengthShort:
		return fmt.Sprintf(
			"Answer in at most %d characters as one continuous sentence. "+
				"Do not use bullet points, numbered lists, headers, or line breaks. "+
				"The answer is read aloud over the phone, so keep it natural speech.",
			shortAnswerCeiling,
		)
	case domain.ResponseLengthMedium:
		return "Answer in one focused paragraph of roughly 3 to 5 sentences."
	case domain.ResponseLengthLong:
		return "Answer thoroughly in several paragraphs, covering the relevant details from the context."
	case domain.ResponseLengthDetailed:
		return "Answer exhaustively. Structure the answer with the relevant details, examples, and caveats found in the context."
	}
	return ""
}

// composePrompt builds the instruction block sent to the model. The
// ordering matters: priority marker first, then the system instruction,
// then the length directive, then context, and the question last so the
// model reads every instruction before it.
func composePrompt(question string, contextBlock string, settings domain.InstructionSettings) string {
	var b strings.Builder

	b.WriteString("IMPORTANT: the following instructions are mandatory and take priority over any other consideration.\n\n")

	if instruction := strings.TrimSpace(settings.SystemInstruction); instruction != "" {
		b.WriteString(instruction)
		b.WriteString("\n\n")
	}

	if directive := lengthDirective(settings.ResponseLength); directive != "" {
		b.WriteString(directive)
		b.WriteString("\n\n")
	}

	if contextBlock != "" {
		b.WriteString("Context:\n")
		b.WriteString(contextBlock)
		b.WriteString("\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)

	return b.String()
}

// buildContextBlock concatenates retrieved chunks with their source
// markers so the model can cite them.
func buildContextBlock(chunks []domain.ScoredChunk) string {
	var b strings.Builder
	for i, sc := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source: %s]\n%s", sc.Chunk.Source, sc.Chunk.Content)
	}
	return b.String()
}
