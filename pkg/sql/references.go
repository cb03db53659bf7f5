package sql

import (
	"sort"
	"strings"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// References are the schema names a SQL statement mentions.
type References struct {
	Tables    []string          // names after FROM / JOIN, prefix dropped
	Qualified []QualifiedTable  // FROM / JOIN names written with a schema or database prefix
	Columns   []QualifiedColumn // qualifier.column pairs
	Bare      []string          // unqualified identifiers that are not keywords, functions or aliases
	Functions []string          // names called as functions
	Aliases   map[string]string // alias -> table ("" for derived tables and column aliases)
	CTEs      map[string]bool
}

// QualifiedTable is a table named through one or more prefixes, as in
// "schema.table" or "database.schema.table".
type QualifiedTable struct {
	Prefix []string
	Table  string
}

// QualifiedColumn is a "qualifier.column" reference. Prefix holds any
// schema or database parts written before the qualifier.
type QualifiedColumn struct {
	Prefix    []string
	Qualifier string
	Column    string
}

// crossScopeFunctions run SQL text or reach other databases, so a call
// can read outside the partition without naming a table.
var crossScopeFunctions = map[string]bool{
	"QUERY_TO_XML":               true,
	"QUERY_TO_XMLSCHEMA":         true,
	"QUERY_TO_XML_AND_XMLSCHEMA": true,
	"CURSOR_TO_XML":              true,
	"DBLINK":                     true,
	"DBLINK_EXEC":                true,
	"OPENQUERY":                  true,
	"OPENROWSET":                 true,
	"OPENDATASOURCE":             true,
}

// ExtractReferences scans a statement for table, column and alias names.
// It is a lexical pass, not a parser: it errs toward treating unfamiliar
// words as aliases so that valid queries are not rejected.
func ExtractReferences(query string) References {
	toks := Tokenize(query)
	refs := References{
		Aliases: make(map[string]string),
		CTEs:    make(map[string]bool),
	}

	skip := make(map[int]bool) // token indexes consumed as definitions

	// Pass 1: definitions (CTE names, table references, aliases).
	for i := 0; i < len(toks); i++ {
		t := toks[i]

		// name AS ( ... )  or  name(cols) AS ( ... )  => CTE
		if t.IsIdent() && !isKeywordToken(t) {
			j := i + 1
			if j < len(toks) && toks[j].Is("(") && !followsFunctionContext(toks, i) {
				if k := matchParen(toks, j); k > 0 && k+2 < len(toks) && toks[k+1].Is("AS") && toks[k+2].Is("(") {
					refs.CTEs[fold(t.Text)] = true
					skip[i] = true
					for m := j + 1; m < k; m++ {
						skip[m] = true
					}
					continue
				}
			}
			if j+1 < len(toks) && toks[j].Is("AS") && toks[j+1].Is("(") && inWithClause(toks, i) {
				refs.CTEs[fold(t.Text)] = true
				skip[i] = true
				continue
			}
		}

		if t.Is("FROM") || t.Is("JOIN") {
			i = readTableList(toks, i+1, t.Is("FROM"), &refs, skip) - 1
			continue
		}

		// AS alias
		if t.Is("AS") && i+1 < len(toks) && toks[i+1].IsIdent() && !toks[i+1].Is("(") {
			if !(i+2 < len(toks) && toks[i+2].Is("(")) {
				refs.Aliases[fold(toks[i+1].Text)] = ""
				skip[i+1] = true
			}
			continue
		}

		// implicit alias: an identifier directly after a value-producing token
		if t.IsIdent() && !isKeywordToken(t) && i > 0 && !skip[i] && producesValue(toks[i-1]) {
			if !(i+1 < len(toks) && (toks[i+1].Is(".") || toks[i+1].Is("("))) && !(toks[i-1].Is(".")) {
				if _, known := refs.Aliases[fold(t.Text)]; !known {
					refs.Aliases[fold(t.Text)] = ""
				}
				skip[i] = true
			}
		}
	}

	// Pass 2: uses.
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if skip[i] || !t.IsIdent() {
			continue
		}
		if t.Kind == TokenIdent && isKeywordToken(t) {
			continue
		}
		if i > 0 && toks[i-1].Is(".") {
			continue // consumed as the column part of a qualified reference
		}
		if i+1 < len(toks) && toks[i+1].Is("(") && t.Kind == TokenIdent {
			refs.Functions = append(refs.Functions, t.Text)
			continue
		}
		if i+2 < len(toks) && toks[i+1].Is(".") {
			parts := []string{t.Text}
			j := i
			for j+2 < len(toks) && toks[j+1].Is(".") && toks[j+2].IsIdent() {
				parts = append(parts, toks[j+2].Text)
				j += 2
			}
			if n := len(parts); n >= 2 {
				qc := QualifiedColumn{Qualifier: parts[n-2], Column: parts[n-1]}
				if n > 2 {
					qc.Prefix = parts[:n-2]
				}
				refs.Columns = append(refs.Columns, qc)
				i = j
			} else {
				i += 2
			}
			continue
		}
		refs.Bare = append(refs.Bare, t.Text)
	}

	return refs
}

// UnknownReferences returns every referenced name that the descriptor does
// not define, formatted as "table X", "column X.Y", "column Y" or
// "function F". schema is the partition's own schema: a prefixed table is
// accepted only when its single prefix is that schema, so a query cannot
// reach a sibling partition by qualifying its tables. An empty schema
// rejects every prefix. The result is sorted and de-duplicated.
func UnknownReferences(query string, d *models.SchemaDescriptor, schema string) []string {
	refs := ExtractReferences(query)
	unknown := make(map[string]bool)

	for _, tbl := range refs.Tables {
		if !d.HasTable(tbl) && !refs.CTEs[fold(tbl)] {
			unknown["table "+tbl] = true
		}
	}

	for _, qt := range refs.Qualified {
		if !ownSchema(qt.Prefix, schema) {
			unknown["table "+strings.Join(append(append([]string{}, qt.Prefix...), qt.Table), ".")] = true
		}
	}

	for _, fn := range refs.Functions {
		if crossScopeFunctions[upper(fn)] {
			unknown["function "+fn] = true
		}
	}

	for _, qc := range refs.Columns {
		if qc.Column == "*" {
			continue
		}
		if len(qc.Prefix) > 0 {
			switch {
			case !ownSchema(qc.Prefix, schema) || !d.HasTable(qc.Qualifier):
				unknown["table "+strings.Join(append(append([]string{}, qc.Prefix...), qc.Qualifier), ".")] = true
			case !d.HasColumn(qc.Qualifier, qc.Column):
				unknown["column "+qc.Qualifier+"."+qc.Column] = true
			}
			continue
		}
		q := fold(qc.Qualifier)
		if target, ok := refs.Aliases[q]; ok {
			if target == "" || refs.CTEs[fold(target)] {
				continue // derived table or CTE: columns are not in the descriptor
			}
			if !d.HasColumn(target, qc.Column) {
				unknown["column "+target+"."+qc.Column] = true
			}
			continue
		}
		if refs.CTEs[q] {
			continue
		}
		if d.HasTable(qc.Qualifier) {
			if !d.HasColumn(qc.Qualifier, qc.Column) {
				unknown["column "+qc.Qualifier+"."+qc.Column] = true
			}
			continue
		}
		unknown["table "+qc.Qualifier] = true
	}

	for _, name := range refs.Bare {
		f := fold(name)
		if _, ok := refs.Aliases[f]; ok || refs.CTEs[f] || d.HasTable(name) || len(d.ColumnOwners(name)) > 0 {
			continue
		}
		unknown["column "+name] = true
	}

	out := make([]string, 0, len(unknown))
	for u := range unknown {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// readTableList consumes "t [AS] a, u [AS] b" after FROM (or one item after
// JOIN) and returns the index of the first token past it.
func readTableList(toks []Token, i int, list bool, refs *References, skip map[int]bool) int {
	for i < len(toks) {
		t := toks[i]
		if t.Is("(") {
			// derived table or subquery: let the main loop walk into it
			return i
		}
		if !t.IsIdent() || (t.Kind == TokenIdent && (clauseBoundaries[t.Upper()] || isKeywordToken(t))) {
			return i
		}

		name := t.Text
		var prefix []string
		skip[i] = true
		i++
		// schema.table, database.schema.table
		for i+1 < len(toks) && toks[i].Is(".") && toks[i+1].IsIdent() {
			skip[i+1] = true
			prefix = append(prefix, name)
			name = toks[i+1].Text
			i += 2
		}
		refs.Tables = append(refs.Tables, name)
		if len(prefix) > 0 {
			refs.Qualified = append(refs.Qualified, QualifiedTable{Prefix: prefix, Table: name})
		}

		if i < len(toks) && toks[i].Is("AS") {
			i++
		}
		if i < len(toks) && toks[i].IsIdent() && !(toks[i].Kind == TokenIdent && (clauseBoundaries[toks[i].Upper()] || isKeywordToken(toks[i]))) {
			refs.Aliases[fold(toks[i].Text)] = name
			skip[i] = true
			i++
		}

		if list && i < len(toks) && toks[i].Is(",") {
			i++
			continue
		}
		return i
	}
	return i
}

// ownSchema reports whether prefix names exactly the partition's schema.
func ownSchema(prefix []string, schema string) bool {
	return schema != "" && len(prefix) == 1 && strings.EqualFold(prefix[0], schema)
}

func isKeywordToken(t Token) bool {
	return t.Kind == TokenIdent && keywords[t.Upper()]
}

// producesValue reports whether a token can end an expression, so a
// following identifier must be an alias.
func producesValue(t Token) bool {
	switch t.Kind {
	case TokenQuotedIdent, TokenString, TokenNumber:
		return true
	case TokenIdent:
		return !isKeywordToken(t) || t.Is("END") || t.Is("NULL") || t.Is("TRUE") || t.Is("FALSE")
	case TokenPunct:
		return t.Text == ")"
	}
	return false
}

// followsFunctionContext reports whether tokens[i] is in a position where
// "name(" is a call rather than a CTE header (anything other than right
// after WITH / RECURSIVE or a comma that separates CTEs).
func followsFunctionContext(toks []Token, i int) bool {
	if i == 0 {
		return true
	}
	prev := toks[i-1]
	if prev.Is("WITH") || prev.Is("RECURSIVE") {
		return false
	}
	if prev.Is(",") {
		return !inWithClause(toks, i)
	}
	return true
}

// inWithClause reports whether position i is inside a leading WITH list,
// i.e. a WITH keyword appears at paren depth zero before i with no SELECT
// at depth zero in between.
func inWithClause(toks []Token, i int) bool {
	depth := 0
	for j := i - 1; j >= 0; j-- {
		switch {
		case toks[j].Is(")"):
			depth++
		case toks[j].Is("("):
			depth--
		case depth == 0 && toks[j].Is("SELECT"):
			return false
		case depth == 0 && toks[j].Is("WITH"):
			return true
		}
	}
	return false
}

// matchParen returns the index of the ")" matching the "(" at i, or -1.
func matchParen(toks []Token, i int) int {
	depth := 0
	for j := i; j < len(toks); j++ {
		if toks[j].Is("(") {
			depth++
		} else if toks[j].Is(")") {
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func fold(s string) string {
	return strings.ToLower(s)
}

func upper(s string) string {
	return strings.ToUpper(s)
}
