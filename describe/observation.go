// Package describe derives natural-language observations about a
// dataset by iteratively showing batches of examples to a completion
// model, merging what comes back into a deduplicated set, and detecting
// when the model has nothing new to add.
package describe

import (
	"strings"
)

// CompleteSentinel is the response a model gives when the accumulated
// observations already cover everything notable about the dataset.
const CompleteSentinel = "COMPLETE"

// IsCompleteSentinel reports whether a response is the convergence
// sentinel: trimmed of whitespace and trailing sentence punctuation,
// compared case-insensitively against the whole response. Words that
// merely start with the sentinel ("COMPLETED") do not match.
func IsCompleteSentinel(s string) bool {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".!")
	return strings.EqualFold(s, CompleteSentinel)
}

// Observation is one natural-language statement about the dataset
type Observation struct {
	Text string
}

// ParseObservations splits a model's observations output into
// individual statements: one per line, list markers and numbering
// stripped, blank lines dropped.
func ParseObservations(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = stripListMarker(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// stripListMarker removes a leading bullet or "1." / "1)" numbering
func stripListMarker(line string) string {
	for _, marker := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(line[len(marker):])
		}
	}

	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}

	return line
}
