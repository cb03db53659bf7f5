package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// LiteralCheckResult describes a literal value that looks like SQL rather
// than data.
type LiteralCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Literal     string
}

// CheckLiteral runs libinjection over a literal value the linker extracted
// from a question. Returns nil when the value is clean.
//
// Example:
//
//	CheckLiteral("HighDensity")             // nil
//	CheckLiteral("x'; DROP TABLE Macros--") // IsSQLi == true
func CheckLiteral(literal string) *LiteralCheckResult {
	if literal == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(literal)
	if isSQLi {
		return &LiteralCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
			Literal:     literal,
		}
	}
	return nil
}

// FilterLiterals returns the clean literals and the ones that were rejected.
func FilterLiterals(literals []string) (clean []string, rejected []*LiteralCheckResult) {
	for _, lit := range literals {
		if res := CheckLiteral(lit); res != nil {
			rejected = append(rejected, res)
			continue
		}
		clean = append(clean, lit)
	}
	return clean, rejected
}
