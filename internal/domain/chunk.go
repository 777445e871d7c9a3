package domain

import "time"

// Chunk represents an indexed segment of a document.
type Chunk struct {
	ID         string
	DocumentID string
	Source     string
	ChunkIndex int
	Content    string
	Tags       []string
	Metadata   map[string]any
	Embedding  []float32
	CreatedAt  time.Time
}

// ScoredChunk pairs a chunk with its similarity score from a search.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// HasAnyTag reports whether the chunk carries at least one of the given
// tags. An empty tag list matches every chunk.
func (c *Chunk) HasAnyTag(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range c.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// MatchesMetadata reports whether every key/value pair in the filter is
// present on the chunk. Numeric values compare by value, so an int 2024
// filter matches a float64 2024 stored by the JSON decoder.
func (c *Chunk) MatchesMetadata(filter map[string]any) bool {
	for key, want := range filter {
		have, ok := c.Metadata[key]
		if !ok {
			return false
		}
		if !metadataValueEqual(have, want) {
			return false
		}
	}
	return true
}

func metadataValueEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		return ok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
