package models

import "strings"

// ComplexityTier is the coarse query shape used to pick a generation
// strategy.
type ComplexityTier string

const (
	// TierEasy needs a single-entity filter only.
	TierEasy ComplexityTier = "EASY"
	// TierNonNested needs joins or multi-hop patterns and/or direct
	// aggregation, without a nested sub-computation.
	TierNonNested ComplexityTier = "NON_NESTED"
	// TierNested needs a sub-result computed and referenced by the outer
	// query.
	TierNested ComplexityTier = "NESTED"
)

// AllTiers lists every tier in increasing generality.
var AllTiers = []ComplexityTier{TierEasy, TierNonNested, TierNested}

// ParseComplexityTier maps a label to a tier. Hyphens, spaces and case are
// ignored, so "non-nested", "Non Nested" and "NON_NESTED" are equivalent.
func ParseComplexityTier(s string) (ComplexityTier, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch ComplexityTier(norm) {
	case TierEasy:
		return TierEasy, true
	case TierNonNested, "NONNESTED":
		return TierNonNested, true
	case TierNested:
		return TierNested, true
	}
	return "", false
}
