package sql

import "github.com/ekaya-inc/ekaya-eda/pkg/models"

// AnalyzeShape classifies a statement by the decidable rule used to audit
// the classifier:
//   - NESTED: a SELECT inside parentheses, EXISTS, a WITH clause, or a
//     ranking window (per-group top-k)
//   - NON_NESTED: a JOIN, more than one table in FROM, GROUP BY, or an
//     aggregate call
//   - EASY: everything else
func AnalyzeShape(query string) models.ComplexityTier {
	toks := Tokenize(query)
	depth := 0
	nonNested := false

	for i, t := range toks {
		switch {
		case t.Is("("):
			depth++
		case t.Is(")"):
			depth--
		case t.Is("SELECT") && depth > 0:
			return models.TierNested
		case t.Is("EXISTS"), t.Is("WITH"):
			return models.TierNested
		case (t.Is("ROW_NUMBER") || t.Is("RANK") || t.Is("DENSE_RANK")) && i+1 < len(toks) && toks[i+1].Is("("):
			return models.TierNested
		case t.Is("JOIN"):
			nonNested = true
		case t.Is("GROUP") && i+1 < len(toks) && toks[i+1].Is("BY"):
			nonNested = true
		case t.Kind == TokenIdent && aggregates[t.Upper()] && i+1 < len(toks) && toks[i+1].Is("("):
			nonNested = true
		}
	}

	if !nonNested && len(ExtractReferences(query).Tables) > 1 {
		nonNested = true
	}
	if nonNested {
		return models.TierNonNested
	}
	return models.TierEasy
}
