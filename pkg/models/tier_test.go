package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseComplexityTier(t *testing.T) {
	tests := []struct {
		in   string
		want ComplexityTier
		ok   bool
	}{
		{"EASY", TierEasy, true},
		{" easy ", TierEasy, true},
		{"NON-NESTED", TierNonNested, true},
		{"non nested", TierNonNested, true},
		{"NON_NESTED", TierNonNested, true},
		{"NonNested", TierNonNested, true},
		{"nested", TierNested, true},
		{"hard", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseComplexityTier(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
