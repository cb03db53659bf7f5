// Package prompts builds the text sent to the generation provider by each
// stage of question resolution.
package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// FormatSchema renders a descriptor for a prompt. When focus is non-empty
// only those tables (or node labels) and the edges between them are
// rendered; unknown names in focus are ignored. An empty focus renders the
// whole descriptor.
func FormatSchema(d *models.SchemaDescriptor, focus []string) string {
	var b strings.Builder

	keep := make(map[string]bool, len(focus))
	for _, name := range focus {
		if d.HasTable(name) {
			keep[strings.ToLower(name)] = true
		}
	}
	include := func(name string) bool {
		return len(keep) == 0 || keep[strings.ToLower(name)]
	}

	noun := "Table"
	if d.Dialect == models.DialectCypher {
		noun = "Node label"
	}

	if d.Description != "" {
		b.WriteString(d.Description)
		b.WriteString("\n\n")
	}

	for _, t := range d.Tables {
		if !include(t.Name) {
			continue
		}
		b.WriteString(fmt.Sprintf("### %s %s\n", noun, t.Name))
		if t.Description != "" {
			b.WriteString(t.Description + "\n")
		}
		for _, c := range t.Columns {
			b.WriteString("- " + formatColumn(c) + "\n")
		}
		b.WriteString("\n")
	}

	var edges []string
	for _, e := range d.Edges {
		if !include(e.FromTable) || !include(e.ToTable) {
			continue
		}
		edges = append(edges, formatEdge(e))
	}
	if len(edges) > 0 {
		if d.Dialect == models.DialectCypher {
			b.WriteString("### Relationships\n")
		} else {
			b.WriteString("### Foreign keys\n")
		}
		for _, e := range edges {
			b.WriteString("- " + e + "\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatColumn(c models.SchemaColumn) string {
	s := c.Name
	if c.DataType != "" {
		s += " (" + c.DataType + ")"
	}
	if c.Description != "" {
		s += ": " + c.Description
	}
	return s
}

func formatEdge(e models.SchemaEdge) string {
	if e.Name == "" {
		return fmt.Sprintf("%s.%s -> %s.%s", e.FromTable, e.FromColumn, e.ToTable, e.ToColumn)
	}
	s := fmt.Sprintf("(:%s)-[:%s]->(:%s)", e.FromTable, e.Name, e.ToTable)
	if len(e.Properties) > 0 {
		names := make([]string, len(e.Properties))
		for i, p := range e.Properties {
			names[i] = p.Name
		}
		s += " {" + strings.Join(names, ", ") + "}"
	}
	if e.Description != "" {
		s += ": " + e.Description
	}
	return s
}

// FormatLinkSet renders the grounding of a question.
func FormatLinkSet(l models.SchemaLinkSet) string {
	if l.IsEmpty() && len(l.Literals) == 0 {
		return "(no schema links found; use the full schema)"
	}
	var b strings.Builder
	if !l.IsEmpty() {
		refs := make([]string, len(l.Elements))
		for i, e := range l.Elements {
			refs[i] = e.String()
		}
		b.WriteString("Schema links: " + strings.Join(refs, ", ") + "\n")
	}
	if len(l.Literals) > 0 {
		quoted := make([]string, len(l.Literals))
		for i, v := range l.Literals {
			quoted[i] = fmt.Sprintf("%q", v)
		}
		b.WriteString("Literal values: " + strings.Join(quoted, ", ") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func dialectName(d models.Dialect) string {
	if d == models.DialectCypher {
		return "Cypher"
	}
	return "SQL"
}
