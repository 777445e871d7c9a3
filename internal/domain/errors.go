package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Query pipeline error codes. These never escape as HTTP errors; the
// query service folds them into the result payload.
const (
	ErrCodeIndexNotReady         = "INDEX_NOT_READY"
	ErrCodeNoRelevantResults     = "NO_RELEVANT_RESULTS"
	ErrCodeSearchFailed          = "SEARCH_FAILED"
	ErrCodeToolExecution         = "TOOL_EXECUTION_ERROR"
	ErrCodeMaxIterationsExceeded = "MAX_ITERATIONS_EXCEEDED"
	ErrCodeGenerationFailed      = "GENERATION_FAILED"
)

// Validation errors
var (
	ErrInvalidResponseLength      = NewDomainError(ErrCodeValidation, "invalid response length")
	ErrInvalidSimilarityThreshold = NewDomainError(ErrCodeValidation, "similarity threshold must be between 0 and 1")
	ErrInvalidMaxChunks           = NewDomainError(ErrCodeValidation, "max chunks must be positive")
	ErrMissingRequiredField       = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuestion              = NewDomainError(ErrCodeValidation, "question must not be empty")
	ErrEmptyDocument              = NewDomainError(ErrCodeValidation, "document content must not be empty")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
)

// Already exists errors
var (
	ErrDocumentAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "document already exists")
)

// Query pipeline errors
var (
	ErrIndexNotReady         = NewDomainError(ErrCodeIndexNotReady, "no documents have been indexed yet")
	ErrNoRelevantResults     = NewDomainError(ErrCodeNoRelevantResults, "no chunks passed the active filters")
	ErrSearchFailed          = NewDomainError(ErrCodeSearchFailed, "similarity search failed")
	ErrMaxIterationsExceeded = NewDomainError(ErrCodeMaxIterationsExceeded, "agent exceeded the iteration ceiling")
	ErrGenerationFailed      = NewDomainError(ErrCodeGenerationFailed, "model failed to produce an answer")
)

// Operation errors
var (
	ErrAgentNotInitialized  = NewDomainError(ErrCodeInvalidOperation, "agent is not initialized, add documents first")
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
