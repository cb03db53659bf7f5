package prompts

import (
	"encoding/json"
	"strings"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// LinkerSystem frames the schema linking call.
const LinkerSystem = `You ground questions about chip design data in a database schema.
You only name schema elements that appear in the schema you are given.
You answer with a single JSON object and nothing else.`

// LinkerResponse is the JSON shape the linker prompt asks for.
type LinkerResponse struct {
	Elements []LinkedElement `json:"elements"`
	// Literals are raw so numbers and strings both decode.
	Literals []json.RawMessage `json:"literals"`
}

// LinkedElement is one element named by the provider. Table is empty for
// tables, node labels and relationship types.
type LinkedElement struct {
	Kind  string `json:"kind"`
	Table string `json:"table,omitempty"`
	Name  string `json:"name"`
}

// BuildLinkerPrompt asks for the minimal set of schema elements and
// literal values needed to answer the question.
func BuildLinkerPrompt(question models.Question, d *models.SchemaDescriptor) string {
	var prompt strings.Builder

	prompt.WriteString("# Schema Linking\n\n")
	prompt.WriteString("Identify the schema elements and literal values needed to answer the question.\n\n")

	prompt.WriteString("## Schema\n\n")
	prompt.WriteString(FormatSchema(d, nil))
	prompt.WriteString("\n\n")

	prompt.WriteString("## Question\n\n")
	prompt.WriteString(string(question))
	prompt.WriteString("\n\n")

	prompt.WriteString("## Instructions\n\n")
	if d.Dialect == models.DialectCypher {
		prompt.WriteString("- Element kinds: `node_label`, `relationship_type`, `property` (set `table` to the owning label or relationship type).\n")
	} else {
		prompt.WriteString("- Element kinds: `table`, `column` (set `table` to the owning table).\n")
		prompt.WriteString("- Include the columns needed to join the tables you name.\n")
	}
	prompt.WriteString("- Literals are values copied from the question: numbers, cell names, library variants, corners.\n")
	prompt.WriteString("- Name only elements the question needs. Do not invent elements.\n\n")

	prompt.WriteString("## Response Format\n\n")
	prompt.WriteString("```json\n")
	if d.Dialect == models.DialectCypher {
		prompt.WriteString(`{"elements": [{"kind": "node_label", "name": "Cell"}, {"kind": "property", "table": "Cell", "name": "master"}], "literals": ["DFF_X1"]}`)
	} else {
		prompt.WriteString(`{"elements": [{"kind": "table", "name": "Macros"}, {"kind": "column", "table": "Macros", "name": "Width"}], "literals": ["2.0"]}`)
	}
	prompt.WriteString("\n```\n")

	return prompt.String()
}
