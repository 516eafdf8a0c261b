package describe

import (
	"strings"
	"unicode"
)

// DefaultMergeThreshold is the token-set similarity above which two
// observations are treated as paraphrases of each other.
const DefaultMergeThreshold = 0.85

// MergePolicy controls how near-duplicate observations are folded
type MergePolicy struct {
	// SimilarityThreshold is the minimum Jaccard similarity between
	// token sets for two observations to merge. Zero or negative
	// disables similarity merging; exact and normalized dedup always
	// apply.
	SimilarityThreshold float64
}

// DefaultMergePolicy merges exact, normalized and near-paraphrase
// duplicates
func DefaultMergePolicy() MergePolicy {
	return MergePolicy{SimilarityThreshold: DefaultMergeThreshold}
}

// ObservationSet is an ordered, deduplicated collection of observations.
// It only grows: merging folds duplicates into existing entries rather
// than replacing them, so earlier observations keep their position. A
// set belongs to one loop run at a time; it is not safe for concurrent
// use.
type ObservationSet struct {
	policy MergePolicy
	items  []Observation
	norms  []string
	tokens []map[string]struct{}
}

// NewSet returns an empty set with the given merge policy
func NewSet(policy MergePolicy) *ObservationSet {
	return &ObservationSet{policy: policy}
}

// Len returns the number of distinct observations
func (s *ObservationSet) Len() int {
	return len(s.items)
}

// Items returns the observations in insertion order
func (s *ObservationSet) Items() []Observation {
	out := make([]Observation, len(s.items))
	copy(out, s.items)
	return out
}

// Texts returns the observation texts in insertion order
func (s *ObservationSet) Texts() []string {
	out := make([]string, len(s.items))
	for i, obs := range s.items {
		out[i] = obs.Text
	}
	return out
}

// Add inserts one observation, reporting whether it was new. Dedup is
// tiered: exact text match, then normalized match, then token-set
// similarity against every existing entry.
func (s *ObservationSet) Add(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	norm := normalizeObservation(text)
	toks := tokenize(norm)

	for i := range s.items {
		if s.items[i].Text == text {
			return false
		}
		if s.norms[i] == norm {
			return false
		}
		if s.policy.SimilarityThreshold > 0 &&
			jaccard(s.tokens[i], toks) >= s.policy.SimilarityThreshold {
			return false
		}
	}

	s.items = append(s.items, Observation{Text: text})
	s.norms = append(s.norms, norm)
	s.tokens = append(s.tokens, toks)
	return true
}

// Merge adds each text in order and returns how many were new
func (s *ObservationSet) Merge(texts []string) int {
	added := 0
	for _, text := range texts {
		if s.Add(text) {
			added++
		}
	}
	return added
}

// MergeSet folds another set's observations into this one, returning
// how many were new
func (s *ObservationSet) MergeSet(other *ObservationSet) int {
	if other == nil {
		return 0
	}
	return s.Merge(other.Texts())
}

// normalizeObservation case-folds, collapses whitespace and strips
// trailing sentence punctuation
func normalizeObservation(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.TrimRight(text, ".!")
	return strings.Join(strings.Fields(text), " ")
}

// tokenize splits a normalized observation into its word set
func tokenize(norm string) map[string]struct{} {
	words := strings.FieldsFunc(norm, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// jaccard is |a ∩ b| / |a ∪ b|
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
