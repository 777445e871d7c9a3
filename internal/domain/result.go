package domain

// ScoreDetail describes one retrieved chunk when the caller asked to
// surface similarity scores.
type ScoreDetail struct {
	Source         string         `json:"source"`
	ContentPreview string         `json:"content_preview"`
	Score          float32        `json:"score"`
	Tags           []string       `json:"tags,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// QueryResult is the structured outcome of a single query. Failures are
// carried in the payload; the query pipeline never returns them as Go
// errors across its public boundary.
type QueryResult struct {
	Answer            string              `json:"answer"`
	Success           bool                `json:"success"`
	Sources           []string            `json:"sources"`
	SimilarityScores  []ScoreDetail       `json:"similarity_scores,omitempty"`
	ChunksRetrieved   int                 `json:"chunks_retrieved"`
	SettingsUsed      InstructionSettings `json:"settings_used"`
	ModelUsed         string              `json:"model_used,omitempty"`
	ProcessingSeconds float64             `json:"processing_seconds"`
	Error             string              `json:"error,omitempty"`
	ErrorCode         string              `json:"error_code,omitempty"`
}

// FailedQueryResult builds a failure result from a domain error,
// carrying the active settings snapshot.
func FailedQueryResult(err *DomainError, settings InstructionSettings) QueryResult {
	return QueryResult{
		Answer:       "",
		Success:      false,
		Sources:      []string{},
		SettingsUsed: settings,
		Error:        err.Message,
		ErrorCode:    err.Code,
	}
}
