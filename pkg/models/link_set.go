package models

import "strings"

// Question is the immutable natural-language input of one resolution.
type Question string

// SchemaElement is one schema reference in a link set. Table is set for
// columns and scoped properties.
type SchemaElement struct {
	Kind  ElementKind `json:"kind"`
	Table string      `json:"table,omitempty"`
	Name  string      `json:"name"`
}

// String renders "Table.Column" for scoped elements and "Name" otherwise.
func (e SchemaElement) String() string {
	if e.Table != "" {
		return e.Table + "." + e.Name
	}
	return e.Name
}

// SchemaLinkSet grounds a question in the active partition's schema: an
// ordered set of elements that exist in the descriptor plus literal values
// taken from the question text.
type SchemaLinkSet struct {
	Elements []SchemaElement `json:"elements"`
	Literals []string        `json:"literals"`
}

// EmptyLinkSet is returned when no usable grounding could be produced.
// Downstream stages then generate against the whole descriptor.
func EmptyLinkSet() SchemaLinkSet {
	return SchemaLinkSet{Elements: []SchemaElement{}, Literals: []string{}}
}

// IsEmpty reports whether the link set carries no schema elements.
func (l SchemaLinkSet) IsEmpty() bool {
	return len(l.Elements) == 0
}

// Tables returns the distinct tables (or node labels) referenced, in
// first-seen order. Columns contribute their owning table.
func (l SchemaLinkSet) Tables() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name == "" || seen[strings.ToLower(name)] {
			return
		}
		seen[strings.ToLower(name)] = true
		out = append(out, name)
	}
	for _, e := range l.Elements {
		switch e.Kind {
		case ElementTable, ElementNodeLabel:
			add(e.Name)
		case ElementColumn, ElementProperty:
			add(e.Table)
		}
	}
	return out
}

// HasElement reports whether the set references the element
// (case-insensitive).
func (l SchemaLinkSet) HasElement(kind ElementKind, table, name string) bool {
	for _, e := range l.Elements {
		if e.Kind == kind && strings.EqualFold(e.Table, table) && strings.EqualFold(e.Name, name) {
			return true
		}
	}
	return false
}

// HasLiteral reports whether the literal was extracted.
func (l SchemaLinkSet) HasLiteral(v string) bool {
	for _, lit := range l.Literals {
		if lit == v {
			return true
		}
	}
	return false
}
