package cypher

import (
	"strings"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

var aggregates = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
	"COLLECT": true, "STDEV": true, "STDEVP": true, "PERCENTILECONT": true, "PERCENTILEDISC": true,
}

// AnalyzeShape classifies a statement:
//   - NESTED: EXISTS/CALL/COUNT/COLLECT subqueries, a negated pattern
//     predicate, or an aggregate carried through WITH into a later MATCH
//   - NON_NESTED: any relationship hop or aggregate call
//   - EASY: a single node pattern with filters
func AnalyzeShape(query string) models.ComplexityTier {
	toks := Tokenize(query)
	nonNested := false
	aggregatedInWith := false
	inWith := false

	for i, t := range toks {
		var next Token
		if i+1 < len(toks) {
			next = toks[i+1]
		}

		switch {
		case t.Kind == TokenIdent && next.Is("{") && (t.Is("EXISTS") || t.Is("CALL") || t.Is("COUNT") || t.Is("COLLECT")):
			return models.TierNested
		case t.Is("EXISTS") && next.Is("("):
			return models.TierNested
		case t.Is("NOT") && next.Is("(") && isPatternPredicate(toks, i+1):
			return models.TierNested
		}

		switch {
		case t.Is("WITH"):
			inWith = true
		case t.Is("MATCH") || t.Is("RETURN") || t.Is("UNWIND"):
			if t.Is("MATCH") && aggregatedInWith {
				return models.TierNested
			}
			inWith = false
		case t.Is("<-") || t.Is("->") || (t.Is("-") && (next.Is("[") || next.Is("-"))):
			nonNested = true
		case t.Kind == TokenIdent && next.Is("(") && aggregates[strings.ToUpper(t.Text)]:
			nonNested = true
			if inWith {
				aggregatedInWith = true
			}
		}
	}

	if nonNested {
		return models.TierNonNested
	}
	return models.TierEasy
}

// isPatternPredicate reports whether the parenthesis at i opens a node
// pattern that is followed by a relationship, as in NOT (a)-[:R]->(b).
func isPatternPredicate(toks []Token, i int) bool {
	depth := 0
	for j := i; j < len(toks); j++ {
		switch {
		case toks[j].Is("("):
			depth++
		case toks[j].Is(")"):
			depth--
			if depth == 0 {
				if j+1 < len(toks) {
					n := toks[j+1]
					return n.Is("-") || n.Is("<-") || n.Is("->")
				}
				return false
			}
		}
	}
	return false
}
