package service

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/corpusai/corpusd/internal/domain"
)

// enforceLength applies the hard character ceiling for short answers.
// Truncation prefers the last word boundary at or before the ceiling,
// falling back to a hard cut when the boundary sits unreasonably early.
// Truncated answers always end with an ellipsis marker.
func enforceLength(answer string, settings domain.InstructionSettings) string {
	if settings.ResponseLength != domain.ResponseLengthShort {
		return answer
	}
	return truncateAtBoundary(answer, shortAnswerCeiling)
}

func truncateAtBoundary(text string, ceiling int) string {
	runes := []rune(text)
	if len(runes) <= ceiling {
		return text
	}

	// A boundary earlier than 5/6 of the ceiling wastes too much of
	// the budget. The search starts below ceiling-3 so the ellipsis
	// marker never pushes the result over the ceiling.
	minBoundary := ceiling * 5 / 6
	cut := -1
	for i := ceiling - 3; i > minBoundary; i-- {
		if unicode.IsSpace(runes[i-1]) {
			cut = i - 1
			break
		}
	}

	if cut < 0 {
		cut = ceiling - 3
	}

	return strings.TrimRight(string(runes[:cut]), " \t\n") + "..."
}

var sourceMarkerRe = regexp.MustCompile(`Source:\s*([^\n\])]+)`)

// extractSources scans text for "Source: X" markers and returns the
// referenced names deduplicated in first-seen order.
func extractSources(texts ...string) []string {
	seen := make(map[string]struct{})
	sources := []string{}
	for _, text := range texts {
		for _, match := range sourceMarkerRe.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(match[1])
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			sources = append(sources, name)
		}
	}
	return sources
}

// mergeSources appends extra sources to base, deduplicating while
// preserving first-seen order.
func mergeSources(base []string, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	out := make([]string, 0, len(base)+len(extra))
	for _, s := range base {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range extra {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
