package catalog

import "strings"

// KeywordMatcher attributes a step description to an ingredient using a
// best-effort, order-sensitive heuristic:
//
//  1. first ingredient whose name appears as a substring of the step text
//  2. domain keyword fallbacks (broth-like wording maps to the broth
//     ingredient, vegetable-like wording to the first vegetable-like
//     ingredient)
//  3. the recipe's first ingredient
//
// Step 3 means an unmatched step is never dropped, only misattributed.
// That mirrors the upstream recipe data, where the first ingredient is the
// dish base; it is known to misattribute work and is kept as-is pending
// product-owner review.
type KeywordMatcher struct{}

// NewKeywordMatcher returns the default matching heuristic.
func NewKeywordMatcher() *KeywordMatcher {
	return &KeywordMatcher{}
}

// Terms the wild recipe data uses for broth and for vegetables/herbs, in
// both Vietnamese and English.
var (
	brothTerms     = []string{"nước dùng", "nuoc dung", "broth", "stock", "soup base"}
	vegetableTerms = []string{"rau", "hành", "hanh", "vegetable", "veggie", "herb", "greens", "onion"}
)

// MatchIngredient implements interfaces.Matcher. It returns "" only when
// candidates is empty.
func (m *KeywordMatcher) MatchIngredient(stepText string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	text := strings.ToLower(stepText)

	// Direct substring containment, first match wins.
	for _, candidate := range candidates {
		if strings.Contains(text, strings.ToLower(candidate)) {
			return candidate
		}
	}

	if containsAny(text, brothTerms) {
		for _, candidate := range candidates {
			if containsAny(strings.ToLower(candidate), brothTerms) {
				return candidate
			}
		}
	}

	if containsAny(text, vegetableTerms) {
		for _, candidate := range candidates {
			if containsAny(strings.ToLower(candidate), vegetableTerms) {
				return candidate
			}
		}
	}

	return candidates[0]
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
