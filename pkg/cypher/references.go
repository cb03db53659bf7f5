package cypher

import (
	"sort"
	"strings"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// PropertyRef is a "variable.property" access or a pattern map key.
type PropertyRef struct {
	Variable string
	Name     string
}

// References are the schema names a Cypher statement mentions.
type References struct {
	Labels     []string
	RelTypes   []string
	Properties []PropertyRef
	// Variables maps each pattern variable to the labels or relationship
	// types it was bound with (empty when unlabelled).
	Variables map[string][]string
}

type frameKind int

const (
	frameNode  frameKind = iota // (n:Label {..})
	frameParen                  // function call or grouping
	frameRel                    // -[r:TYPE]-
	frameList
	frameProps // {key: ..} inside a node or relationship pattern
	frameMap
)

type frame struct {
	kind     frameKind
	variable string
}

// ExtractReferences scans a statement for labels, relationship types and
// property accesses.
func ExtractReferences(query string) References {
	toks := Tokenize(query)
	refs := References{Variables: make(map[string][]string)}
	var stack []frame

	top := func() *frame {
		if len(stack) == 0 {
			return nil
		}
		return &stack[len(stack)-1]
	}
	prev := func(i int) Token {
		if i == 0 {
			return Token{Kind: TokenPunct}
		}
		return toks[i-1]
	}
	next := func(i int) Token {
		if i+1 >= len(toks) {
			return Token{Kind: TokenPunct}
		}
		return toks[i+1]
	}
	bind := func(variable, name string) {
		if variable == "" {
			return
		}
		refs.Variables[variable] = append(refs.Variables[variable], name)
	}

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.Is("("):
			p := prev(i)
			if p.IsIdent() && !isKeyword(p) {
				stack = append(stack, frame{kind: frameParen})
			} else {
				stack = append(stack, frame{kind: frameNode})
			}

		case t.Is("["):
			p := prev(i)
			if p.Is("-") || p.Is("<-") {
				stack = append(stack, frame{kind: frameRel})
			} else {
				stack = append(stack, frame{kind: frameList})
			}

		case t.Is("{"):
			f := top()
			if f != nil && (f.kind == frameNode || f.kind == frameRel) {
				stack = append(stack, frame{kind: frameProps, variable: f.variable})
			} else {
				stack = append(stack, frame{kind: frameMap})
			}

		case t.Is(")"), t.Is("]"), t.Is("}"):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case t.Is(":"):
			f := top()
			n := next(i)
			if f != nil && (f.kind == frameProps || f.kind == frameMap) {
				if f.kind == frameProps && prev(i).IsIdent() {
					refs.Properties = append(refs.Properties, PropertyRef{Variable: f.variable, Name: prev(i).Text})
				}
				continue
			}
			if !n.IsIdent() {
				continue
			}
			if f != nil && f.kind == frameRel {
				refs.RelTypes = append(refs.RelTypes, n.Text)
				bind(f.variable, n.Text)
			} else {
				refs.Labels = append(refs.Labels, n.Text)
				switch {
				case f != nil && f.kind == frameNode:
					bind(f.variable, n.Text)
				case prev(i).IsIdent():
					// label predicate: WHERE n:Label
					bind(prev(i).Text, n.Text)
				}
			}
			i++

		case t.Is("|"):
			// alternative relationship types: [:A|B] or [:A|:B]
			if f := top(); f != nil && f.kind == frameRel {
				n := next(i)
				if n.Is(":") {
					continue
				}
				if n.IsIdent() {
					refs.RelTypes = append(refs.RelTypes, n.Text)
					bind(f.variable, n.Text)
					i++
				}
			}

		case t.Is("."):
			p, n := prev(i), next(i)
			if p.IsIdent() && n.IsIdent() {
				refs.Properties = append(refs.Properties, PropertyRef{Variable: p.Text, Name: n.Text})
				i++
			}

		case t.IsIdent():
			f := top()
			if f == nil {
				continue
			}
			n := next(i)
			switch {
			case f.kind == frameNode && prev(i).Is("(") && (n.Is(":") || n.Is(")") || n.Is("{")):
				f.variable = t.Text
				if _, ok := refs.Variables[t.Text]; !ok {
					refs.Variables[t.Text] = nil
				}
			case f.kind == frameRel && prev(i).Is("[") && (n.Is(":") || n.Is("]") || n.Is("{") || n.Is("*")):
				f.variable = t.Text
				if _, ok := refs.Variables[t.Text]; !ok {
					refs.Variables[t.Text] = nil
				}
			}
		}
	}

	return refs
}

// UnknownReferences returns every label, relationship type and property the
// descriptor does not define, formatted as "label X", "relationship X",
// "property Owner.p" or "property p". Properties accessed on names that are
// not pattern variables (projections, map literals) are not checked.
func UnknownReferences(query string, d *models.SchemaDescriptor) []string {
	refs := ExtractReferences(query)
	unknown := make(map[string]bool)

	for _, l := range refs.Labels {
		if !d.HasTable(l) {
			unknown["label "+l] = true
		}
	}
	for _, r := range refs.RelTypes {
		if !d.HasRelationship(r) {
			unknown["relationship "+r] = true
		}
	}

	for _, p := range refs.Properties {
		owners, declared := refs.Variables[p.Variable]
		if p.Variable != "" && !declared {
			continue
		}
		if len(owners) == 0 {
			if !d.HasProperty(p.Name) {
				unknown["property "+p.Name] = true
			}
			continue
		}
		found, ownerKnown := false, false
		for _, o := range owners {
			if d.HasTable(o) || d.HasRelationship(o) {
				ownerKnown = true
			}
			if d.Contains(models.SchemaElement{Kind: models.ElementProperty, Table: o, Name: p.Name}) {
				found = true
				break
			}
		}
		if !found && ownerKnown {
			unknown["property "+owners[0]+"."+p.Name] = true
		}
	}

	out := make([]string, 0, len(unknown))
	for u := range unknown {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

var keywords = map[string]bool{
	"MATCH": true, "OPTIONAL": true, "WHERE": true, "RETURN": true, "WITH": true, "UNWIND": true,
	"AS": true, "AND": true, "OR": true, "XOR": true, "NOT": true, "IN": true, "IS": true, "NULL": true,
	"ORDER": true, "BY": true, "SKIP": true, "LIMIT": true, "DISTINCT": true, "ASC": true, "DESC": true,
	"ASCENDING": true, "DESCENDING": true, "EXISTS": true, "CALL": true, "YIELD": true, "UNION": true,
	"ALL": true, "CASE": true, "WHEN": true, "THEN": true, "ELSE": true, "END": true, "TRUE": true,
	"FALSE": true, "STARTS": true, "ENDS": true, "CONTAINS": true,
}

func isKeyword(t Token) bool {
	return t.Kind == TokenIdent && keywords[strings.ToUpper(t.Text)]
}
