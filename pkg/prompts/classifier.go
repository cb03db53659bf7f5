package prompts

import (
	"strings"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// ClassifierSystem frames the complexity classification call.
const ClassifierSystem = `You classify questions about chip design data by the shape of the query needed to answer them.
You answer with one label on the last line, in the form "TIER: <label>".`

// BuildClassifierPrompt asks for one of the three tiers. The decision
// policy is stated as rules rather than worked examples.
func BuildClassifierPrompt(question models.Question, links models.SchemaLinkSet, dialect models.Dialect) string {
	var prompt strings.Builder

	prompt.WriteString("# Query Complexity Classification\n\n")
	prompt.WriteString("## Question\n\n")
	prompt.WriteString(string(question))
	prompt.WriteString("\n\n")
	prompt.WriteString(FormatLinkSet(links))
	prompt.WriteString("\n\n")

	prompt.WriteString("## Labels\n\n")
	if dialect == models.DialectCypher {
		prompt.WriteString("- EASY: one node label filtered by its properties. No traversal, no aggregation over matches.\n")
		prompt.WriteString("- NON_NESTED: a multi-hop pattern across relationship types, and/or a direct aggregation such as count() or avg().\n")
		prompt.WriteString("- NESTED: a value computed by one part of the query is used by another: an aggregate carried through WITH and compared, a negated pattern, a CALL subquery, or top-k per group.\n\n")
	} else {
		prompt.WriteString("- EASY: a filter over a single table. No JOIN, no GROUP BY, no subquery.\n")
		prompt.WriteString("- NON_NESTED: JOINs between tables and/or a direct aggregation (COUNT, AVG, GROUP BY), with no subquery.\n")
		prompt.WriteString("- NESTED: a value computed by one query is referenced by another: a subquery, NOT IN / NOT EXISTS, comparison of each group against an aggregate, or top-k per group.\n\n")
	}

	prompt.WriteString("## Rules\n\n")
	prompt.WriteString("- Choose NON_NESTED only if a formulation without nesting is sufficient.\n")
	prompt.WriteString("- When unsure between NON_NESTED and NESTED, choose NESTED.\n\n")

	prompt.WriteString("Explain briefly, then end with `TIER: EASY`, `TIER: NON_NESTED` or `TIER: NESTED`.\n")

	return prompt.String()
}
