package domain

import (
	"fmt"
	"time"
)

// PreviewLength is the number of characters of content kept as a
// document's preview in the registry.
const PreviewLength = 200

// Document represents a registered document in the system.
type Document struct {
	ID             string
	Filename       string
	FileType       string
	FileSize       int64
	UploadTime     time.Time
	ChunkCount     int
	ContentPreview string
	Tags           []string
	Metadata       map[string]any
}

// FormatDocumentID renders a registry sequence number as a zero-padded
// document ID, e.g. doc_000042.
func FormatDocumentID(seq int64) string {
	return fmt.Sprintf("doc_%06d", seq)
}

// MakePreview truncates content to PreviewLength characters for display.
func MakePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}
	return string(runes[:PreviewLength])
}

// ValidateDocument validates a Document instance.
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if d.ChunkCount < 0 {
		return fmt.Errorf("document ChunkCount must not be negative")
	}

	return nil
}
