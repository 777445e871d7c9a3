package domain

// ResponseLength controls target answer verbosity and formatting.
type ResponseLength string

const (
	ResponseLengthShort    ResponseLength = "short"
	ResponseLengthMedium   ResponseLength = "medium"
	ResponseLengthLong     ResponseLength = "long"
	ResponseLengthDetailed ResponseLength = "detailed"
)

// Bounds for tunable settings fields.
const (
	MinMaxChunks = 1
	MaxMaxChunks = 20
)

// InstructionSettings is the response-shaping configuration applied to
// every query. It is replaced wholesale on update, never mutated in
// place.
type InstructionSettings struct {
	SystemInstruction    string         `json:"system_instruction"`
	ResponseLength       ResponseLength `json:"response_length"`
	ShowSimilarityScores bool           `json:"show_similarity_scores"`
	MaxChunks            int            `json:"max_chunks"`
	SimilarityThreshold  float64        `json:"similarity_threshold"`
}

// DefaultInstructionSettings returns the startup defaults. They favor
// low latency: few chunks and short answers.
func DefaultInstructionSettings() InstructionSettings {
	return InstructionSettings{
		SystemInstruction:    "Answer using only the provided context. If the context does not contain the answer, say that you cannot answer from the available documents.",
		ResponseLength:       ResponseLengthShort,
		ShowSimilarityScores: false,
		MaxChunks:            4,
		SimilarityThreshold:  0.0,
	}
}

// Validate checks the settings against their allowed ranges.
func (s *InstructionSettings) Validate() error {
	if !isValidResponseLength(s.ResponseLength) {
		return ErrInvalidResponseLength
	}

	if s.MaxChunks < MinMaxChunks || s.MaxChunks > MaxMaxChunks {
		return ErrInvalidMaxChunks
	}

	if s.SimilarityThreshold < 0 || s.SimilarityThreshold > 1 {
		return ErrInvalidSimilarityThreshold
	}

	return nil
}

func isValidResponseLength(l ResponseLength) bool {
	switch l {
	case ResponseLengthShort, ResponseLengthMedium, ResponseLengthLong, ResponseLengthDetailed:
		return true
	}
	return false
}
