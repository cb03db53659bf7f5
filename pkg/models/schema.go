package models

import (
	"sort"
	"strings"
	"sync"
)

// ElementKind distinguishes the schema elements a link set can reference.
type ElementKind string

const (
	ElementTable            ElementKind = "table"
	ElementColumn           ElementKind = "column"
	ElementNodeLabel        ElementKind = "node_label"
	ElementRelationshipType ElementKind = "relationship_type"
	ElementProperty         ElementKind = "property"
)

// SchemaColumn is a column of a table, or a property of a node label or
// relationship type.
type SchemaColumn struct {
	Name        string `json:"name" yaml:"name"`
	DataType    string `json:"data_type,omitempty" yaml:"data_type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// SchemaTable is a relational table or a graph node label.
type SchemaTable struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Columns     []SchemaColumn `json:"columns" yaml:"columns"`
}

// SchemaEdge is a foreign key (relational) or a relationship type (graph).
// Name is empty for foreign keys.
type SchemaEdge struct {
	Name        string         `json:"name,omitempty" yaml:"name,omitempty"`
	FromTable   string         `json:"from_table" yaml:"from_table"`
	FromColumn  string         `json:"from_column,omitempty" yaml:"from_column,omitempty"`
	ToTable     string         `json:"to_table" yaml:"to_table"`
	ToColumn    string         `json:"to_column,omitempty" yaml:"to_column,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  []SchemaColumn `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// SchemaDescriptor is the set of schema elements visible within one
// partition. It is immutable once loaded and shared by pointer across every
// session touching the partition; lookups are case-insensitive.
type SchemaDescriptor struct {
	View        View          `json:"view" yaml:"view"`
	Dialect     Dialect       `json:"dialect" yaml:"dialect"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Tables      []SchemaTable `json:"tables" yaml:"tables"`
	Edges       []SchemaEdge  `json:"edges,omitempty" yaml:"edges,omitempty"`

	indexOnce sync.Once
	tables    map[string]*SchemaTable
	columns   map[string]map[string]*SchemaColumn // table -> column
	owners    map[string][]string                 // column -> tables
	edges     map[string]*SchemaEdge              // relationship type -> edge
	edgeProps map[string]bool
}

func (d *SchemaDescriptor) index() {
	d.indexOnce.Do(func() {
		d.tables = make(map[string]*SchemaTable, len(d.Tables))
		d.columns = make(map[string]map[string]*SchemaColumn, len(d.Tables))
		d.owners = make(map[string][]string)
		d.edges = make(map[string]*SchemaEdge)
		d.edgeProps = make(map[string]bool)

		for i := range d.Tables {
			t := &d.Tables[i]
			tk := fold(t.Name)
			d.tables[tk] = t
			cols := make(map[string]*SchemaColumn, len(t.Columns))
			for j := range t.Columns {
				c := &t.Columns[j]
				ck := fold(c.Name)
				cols[ck] = c
				d.owners[ck] = append(d.owners[ck], t.Name)
			}
			d.columns[tk] = cols
		}
		for i := range d.Edges {
			e := &d.Edges[i]
			if e.Name != "" {
				d.edges[fold(e.Name)] = e
			}
			for _, p := range e.Properties {
				d.edgeProps[fold(p.Name)] = true
			}
		}
	})
}

// Table returns the named table or node label.
func (d *SchemaDescriptor) Table(name string) (*SchemaTable, bool) {
	d.index()
	t, ok := d.tables[fold(name)]
	return t, ok
}

// HasTable reports whether a table or node label exists.
func (d *SchemaDescriptor) HasTable(name string) bool {
	_, ok := d.Table(name)
	return ok
}

// HasColumn reports whether table has the column (or property).
func (d *SchemaDescriptor) HasColumn(table, column string) bool {
	d.index()
	cols, ok := d.columns[fold(table)]
	if !ok {
		return false
	}
	_, ok = cols[fold(column)]
	return ok
}

// ColumnOwners returns the tables that declare a column with this name.
func (d *SchemaDescriptor) ColumnOwners(column string) []string {
	d.index()
	return d.owners[fold(column)]
}

// HasRelationship reports whether a named relationship type exists.
func (d *SchemaDescriptor) HasRelationship(name string) bool {
	d.index()
	_, ok := d.edges[fold(name)]
	return ok
}

// HasProperty reports whether any node label or relationship type
// declares the property.
func (d *SchemaDescriptor) HasProperty(name string) bool {
	d.index()
	return len(d.owners[fold(name)]) > 0 || d.edgeProps[fold(name)]
}

// Contains reports whether a link-set element exists in this descriptor.
func (d *SchemaDescriptor) Contains(e SchemaElement) bool {
	switch e.Kind {
	case ElementTable, ElementNodeLabel:
		return d.HasTable(e.Name)
	case ElementColumn:
		return d.HasColumn(e.Table, e.Name)
	case ElementProperty:
		if e.Table != "" {
			return d.HasColumn(e.Table, e.Name) || d.relationshipHasProperty(e.Table, e.Name)
		}
		return d.HasProperty(e.Name)
	case ElementRelationshipType:
		return d.HasRelationship(e.Name)
	default:
		return false
	}
}

func (d *SchemaDescriptor) relationshipHasProperty(rel, prop string) bool {
	d.index()
	e, ok := d.edges[fold(rel)]
	if !ok {
		return false
	}
	for _, p := range e.Properties {
		if strings.EqualFold(p.Name, prop) {
			return true
		}
	}
	return false
}

// TableNames returns all table or node label names, sorted.
func (d *SchemaDescriptor) TableNames() []string {
	names := make([]string, 0, len(d.Tables))
	for _, t := range d.Tables {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// ElementCount returns the number of tables plus columns plus named edges.
func (d *SchemaDescriptor) ElementCount() int {
	n := len(d.Tables)
	for _, t := range d.Tables {
		n += len(t.Columns)
	}
	for _, e := range d.Edges {
		if e.Name != "" {
			n++
		}
	}
	return n
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
