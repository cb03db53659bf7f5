package sql

import (
	"testing"
)

func TestCheckLiteral(t *testing.T) {
	tests := []struct {
		name            string
		literal         string
		expectInjection bool
	}{
		{name: "library variant", literal: "HighDensity", expectInjection: false},
		{name: "decimal threshold", literal: "2.0", expectInjection: false},
		{name: "cell name", literal: "NAND2_X1", expectInjection: false},
		{name: "multi-word value", literal: "high density", expectInjection: false},
		{name: "empty", literal: "", expectInjection: false},
		{name: "classic quote injection", literal: "' OR '1'='1", expectInjection: true},
		{name: "drop table injection", literal: "'; DROP TABLE Macros--", expectInjection: true},
		{name: "union select injection", literal: "1 UNION SELECT * FROM passwords", expectInjection: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckLiteral(tt.literal)
			if tt.expectInjection {
				if result == nil {
					t.Fatalf("expected injection detection, got nil")
				}
				if result.Literal != tt.literal {
					t.Errorf("expected Literal=%q, got %q", tt.literal, result.Literal)
				}
				if result.Fingerprint == "" {
					t.Errorf("expected non-empty fingerprint")
				}
				return
			}
			if result != nil {
				t.Errorf("expected no injection detection, got %+v", result)
			}
		})
	}
}

func TestFilterLiterals(t *testing.T) {
	clean, rejected := FilterLiterals([]string{"HighDensity", "'; DROP TABLE Macros--", "2.0"})

	if len(clean) != 2 || clean[0] != "HighDensity" || clean[1] != "2.0" {
		t.Errorf("unexpected clean literals: %v", clean)
	}
	if len(rejected) != 1 || rejected[0].Literal != "'; DROP TABLE Macros--" {
		t.Errorf("unexpected rejected literals: %+v", rejected)
	}
}
