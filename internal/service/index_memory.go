package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/corpusai/corpusd/internal/domain"
)

// MemoryIndex is a linear keyword-overlap index used when no vector
// backend is configured. It reports itself as degraded so callers can
// surface the reduced search quality.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks []domain.Chunk
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

func (x *MemoryIndex) Add(ctx context.Context, chunks []domain.Chunk) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.chunks = append(x.chunks, chunks...)
	return nil
}

// Search scores every chunk by normalized keyword overlap with the
// query and returns the top k. Scores land in [0,1] like the vector
// backend's cosine similarity.
func (x *MemoryIndex) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return []domain.ScoredChunk{}, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	scored := make([]domain.ScoredChunk, 0, len(x.chunks))
	for _, c := range x.chunks {
		score := overlapScore(terms, c.Content)
		if score <= 0 {
			continue
		}
		scored = append(scored, domain.ScoredChunk{Chunk: c, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (x *MemoryIndex) Count(ctx context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.chunks), nil
}

func (x *MemoryIndex) Reset(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.chunks = nil
	return nil
}

func (x *MemoryIndex) Degraded() bool {
	return true
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "for": {}, "with": {}, "by": {},
	"in": {}, "on": {}, "at": {}, "from": {}, "as": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "it": {}, "this": {}, "that": {}, "these": {}, "those": {}, "we": {}, "our": {}, "you": {},
	"your": {}, "i": {}, "me": {}, "my": {}, "us": {}, "them": {}, "they": {}, "their": {}, "do": {},
	"does": {}, "did": {}, "what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "which": {}, "can": {},
	"could": {}, "should": {}, "would": {}, "may": {}, "might": {}, "will": {}, "shall": {},
}

func queryTerms(query string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		if tok == "" {
			continue
		}
		if _, ok := stopwords[tok]; ok {
			continue
		}
		terms[tok] = struct{}{}
	}
	return terms
}

func overlapScore(terms map[string]struct{}, content string) float32 {
	contentTerms := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(content)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		if tok != "" {
			contentTerms[tok] = struct{}{}
		}
	}

	matched := 0
	for term := range terms {
		if _, ok := contentTerms[term]; ok {
			matched++
		}
	}
	return float32(matched) / float32(len(terms))
}
