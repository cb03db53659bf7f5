package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// GenerationInput is shared by every generation strategy.
type GenerationInput struct {
	Question   models.Question
	Links      models.SchemaLinkSet
	Descriptor *models.SchemaDescriptor
}

func (in GenerationInput) dialect() models.Dialect {
	return in.Descriptor.Dialect
}

// GeneratorSystem frames every generation and repair call for a dialect.
func GeneratorSystem(dialect models.Dialect) string {
	name := dialectName(dialect)
	return fmt.Sprintf(`You write read-only %s queries over chip design data.
You use only the tables, columns, labels, relationship types and properties in the schema you are given.
You return the final query in one fenced code block tagged %s.`, name, FenceTag(dialect))
}

// FenceTag is the info string of the code block a query is returned in.
func FenceTag(dialect models.Dialect) string {
	if dialect == models.DialectCypher {
		return "cypher"
	}
	return "sql"
}

func writeHeader(prompt *strings.Builder, title string, in GenerationInput, focus []string) {
	prompt.WriteString("# " + title + "\n\n")
	prompt.WriteString("## Schema\n\n")
	prompt.WriteString(FormatSchema(in.Descriptor, focus))
	prompt.WriteString("\n\n")
	prompt.WriteString("## Question\n\n")
	prompt.WriteString(string(in.Question))
	prompt.WriteString("\n\n")
	prompt.WriteString(FormatLinkSet(in.Links))
	prompt.WriteString("\n\n")
}

func writeAnswerFormat(prompt *strings.Builder, dialect models.Dialect) {
	prompt.WriteString("## Response Format\n\n")
	prompt.WriteString(fmt.Sprintf("Return exactly one query in a ```%s code block. Only the last code block is executed.\n", FenceTag(dialect)))
}

// BuildEasyPrompt targets single-entity filters. The schema is narrowed to
// the linked tables when there are any.
func BuildEasyPrompt(in GenerationInput) string {
	var prompt strings.Builder
	writeHeader(&prompt, "Query Generation: single-entity filter", in, in.Links.Tables())

	prompt.WriteString("## Instructions\n\n")
	if in.dialect() == models.DialectCypher {
		prompt.WriteString("- MATCH a single node label and filter it with WHERE on its properties.\n")
		prompt.WriteString("- Do not traverse relationships.\n")
	} else {
		prompt.WriteString("- SELECT from a single table and filter it with WHERE.\n")
		prompt.WriteString("- Do not JOIN and do not use subqueries.\n")
	}
	prompt.WriteString("- Compare against the literal values exactly as given.\n\n")

	writeAnswerFormat(&prompt, in.dialect())
	return prompt.String()
}

// BuildNonNestedPrompt targets joins, traversals and direct aggregation.
// The full schema is shown so join paths outside the links are visible.
func BuildNonNestedPrompt(in GenerationInput) string {
	var prompt strings.Builder
	writeHeader(&prompt, "Query Generation: composition and aggregation", in, nil)

	prompt.WriteString("## Instructions\n\n")
	if in.dialect() == models.DialectCypher {
		prompt.WriteString("- Write one MATCH pattern that walks the listed relationship types between the labels involved.\n")
		prompt.WriteString("- Aggregate with count(), sum(), avg(), min(), max() or collect() in RETURN when the question asks for totals.\n")
		prompt.WriteString("- Do not use CALL subqueries or negated patterns.\n")
	} else {
		prompt.WriteString("- First list the tables needed and the foreign keys that connect them.\n")
		prompt.WriteString("- JOIN along those foreign keys; GROUP BY every non-aggregated column you select.\n")
		prompt.WriteString("- Do not use subqueries.\n")
	}
	prompt.WriteString("\n")

	writeAnswerFormat(&prompt, in.dialect())
	return prompt.String()
}

// BuildNestedPrompt targets questions whose answer depends on an
// intermediate result. The provider is asked to decompose the question
// into sub-questions before writing the outer query.
func BuildNestedPrompt(in GenerationInput) string {
	var prompt strings.Builder
	writeHeader(&prompt, "Query Generation: nested computation", in, nil)

	prompt.WriteString("## Instructions\n\n")
	prompt.WriteString("1. Name the intermediate result the question depends on, as a sub-question.\n")
	if in.dialect() == models.DialectCypher {
		prompt.WriteString("2. Compute it with a pattern and aggregation, and carry it forward with WITH.\n")
		prompt.WriteString("3. Use the carried value in the outer MATCH or WHERE. Use NOT EXISTS { ... } for absence and CALL { ... } for per-group top-k.\n")
	} else {
		prompt.WriteString("2. Write the subquery (or CTE) for the sub-question on its own.\n")
		prompt.WriteString("3. Reference it from the outer query. Use NOT EXISTS or NOT IN for absence and a correlated subquery for per-group comparisons.\n")
	}
	prompt.WriteString("4. Check every name against the schema before answering.\n\n")

	writeAnswerFormat(&prompt, in.dialect())
	return prompt.String()
}
