package service

import "github.com/corpusai/corpusd/internal/domain"

const (
	// filterCandidateMultiplier widens the search pool when tag or
	// metadata filters are active, since post-filter attrition is
	// expected.
	filterCandidateMultiplier = 2
	// filterCandidateCeiling caps the widened pool.
	filterCandidateCeiling = 20
)

// candidateLimit returns how many candidates to fetch from the index
// before filtering.
func candidateLimit(limit int, filtering bool) int {
	if !filtering {
		return limit
	}
	widened := limit * filterCandidateMultiplier
	if widened > filterCandidateCeiling {
		widened = filterCandidateCeiling
	}
	if widened < limit {
		widened = limit
	}
	return widened
}

// filterChunks applies threshold, tag (OR) and metadata (AND)
// predicates to ranked candidates, stopping once limit results are
// accepted. Candidate order is preserved, so equal scores keep their
// index ranking.
func filterChunks(candidates []domain.ScoredChunk, tags []string, metadata map[string]any, threshold float64, limit int) []domain.ScoredChunk {
	accepted := make([]domain.ScoredChunk, 0, limit)
	for _, candidate := range candidates {
		if limit > 0 && len(accepted) >= limit {
			break
		}
		if float64(candidate.Score) < threshold {
			continue
		}
		if !candidate.Chunk.HasAnyTag(tags) {
			continue
		}
		if !candidate.Chunk.MatchesMetadata(metadata) {
			continue
		}
		accepted = append(accepted, candidate)
	}
	return accepted
}
