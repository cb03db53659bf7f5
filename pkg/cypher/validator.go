// Package cypher provides lexical validation and analysis of generated
// Cypher: read-only gating, label/relationship/property reference
// extraction and query shape classification.
package cypher

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyStatement     = errors.New("empty Cypher statement")
	ErrMultipleStatements = errors.New("multiple Cypher statements not allowed")
	ErrNotReadOnly        = errors.New("only read-only Cypher is permitted")
)

// writeClauses never appear in a read query. DETACH and FOREACH only occur
// around writes.
var writeClauses = map[string]bool{
	"CREATE":  true,
	"MERGE":   true,
	"DELETE":  true,
	"DETACH":  true,
	"SET":     true,
	"REMOVE":  true,
	"DROP":    true,
	"FOREACH": true,
	"LOAD":    true,
}

// readStarts are the clauses a read query may begin with.
var readStarts = map[string]bool{
	"MATCH":    true,
	"OPTIONAL": true,
	"WITH":     true,
	"UNWIND":   true,
	"RETURN":   true,
	"CALL":     true,
}

// ValidationResult carries the normalized statement or the reason it was
// refused.
type ValidationResult struct {
	Normalized string
	Error      error
}

// ValidateReadOnly checks that a statement is a single query made only of
// read clauses. Procedure calls are refused; CALL { ... } subqueries are
// allowed.
func ValidateReadOnly(query string) ValidationResult {
	normalized := strings.TrimSpace(query)
	normalized = strings.TrimSpace(strings.TrimSuffix(normalized, ";"))
	toks := Tokenize(normalized)
	if len(toks) == 0 {
		return ValidationResult{Error: ErrEmptyStatement}
	}

	for i, t := range toks {
		if t.Is(";") && i < len(toks)-1 {
			return ValidationResult{Error: ErrMultipleStatements}
		}
	}

	if !readStarts[toks[0].Upper()] || toks[0].Kind != TokenIdent {
		return ValidationResult{Normalized: normalized, Error: fmt.Errorf("%w: statement starts with %q", ErrNotReadOnly, toks[0].Text)}
	}

	for i, t := range toks {
		// property names and labels
		if t.Kind != TokenIdent || (i > 0 && (toks[i-1].Is(".") || toks[i-1].Is(":"))) {
			continue
		}
		// map keys and property names such as {set: 1} are not clauses
		if i+1 < len(toks) && toks[i+1].Is(":") {
			continue
		}
		if writeClauses[t.Upper()] {
			return ValidationResult{Normalized: normalized, Error: fmt.Errorf("%w: %s clause", ErrNotReadOnly, t.Upper())}
		}
		if t.Is("CALL") && !(i+1 < len(toks) && toks[i+1].Is("{")) {
			return ValidationResult{Normalized: normalized, Error: fmt.Errorf("%w: procedure call", ErrNotReadOnly)}
		}
	}

	return ValidationResult{Normalized: normalized}
}
