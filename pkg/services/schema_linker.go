package services

import (
	"context"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-eda/pkg/llm"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
	"github.com/ekaya-inc/ekaya-eda/pkg/prompts"
	sqlcheck "github.com/ekaya-inc/ekaya-eda/pkg/sql"
)

// SchemaLinker grounds a question in the schema of the active partition.
type SchemaLinker interface {
	// Link returns the schema elements and literals the question needs.
	// Every returned element exists in d. An unparseable provider answer
	// yields an empty link set, not an error; provider failures and
	// cancellation are returned as errors.
	Link(ctx context.Context, question models.Question, d *models.SchemaDescriptor) (models.SchemaLinkSet, error)
}

type schemaLinker struct {
	provider llm.Provider
	cfg      models.ResolverConfig
	logger   *zap.Logger
}

// NewSchemaLinker creates a linker that makes one provider call per Link.
func NewSchemaLinker(provider llm.Provider, cfg models.ResolverConfig, logger *zap.Logger) SchemaLinker {
	return &schemaLinker{
		provider: provider,
		cfg:      cfg,
		logger:   logger.Named("linker"),
	}
}

var _ SchemaLinker = (*schemaLinker)(nil)

func (s *schemaLinker) Link(ctx context.Context, question models.Question, d *models.SchemaDescriptor) (models.SchemaLinkSet, error) {
	text, err := complete(ctx, s.provider, s.cfg, llm.PromptContext{
		Component: llm.ComponentLinker,
		System:    prompts.LinkerSystem,
		Prompt:    prompts.BuildLinkerPrompt(question, d),
	})
	if err != nil {
		return models.SchemaLinkSet{}, err
	}

	parsed, err := llm.ParseJSONResponse[prompts.LinkerResponse](text)
	if err != nil {
		s.logger.Info("Linker response not parseable, continuing with empty link set",
			zap.Error(err))
		return models.EmptyLinkSet(), nil
	}

	links := models.EmptyLinkSet()
	seen := make(map[string]bool)
	for _, raw := range parsed.Elements {
		e, ok := resolveElement(d, raw)
		if !ok {
			s.logger.Debug("Dropping element outside partition schema",
				zap.String("kind", raw.Kind),
				zap.String("table", raw.Table),
				zap.String("name", raw.Name))
			continue
		}
		k := string(e.Kind) + "|" + strings.ToLower(e.String())
		if seen[k] {
			continue
		}
		seen[k] = true
		links.Elements = append(links.Elements, e)
	}

	links.Literals = s.filterLiterals(question, jsonutil.FlexibleStrings(parsed.Literals))
	return links, nil
}

// filterLiterals keeps literals that occur in the question, ignoring case,
// spacing and punctuation, and that do not look like injected SQL.
func (s *schemaLinker) filterLiterals(question models.Question, literals []string) []string {
	var trimmed []string
	for _, l := range literals {
		l = strings.Trim(strings.TrimSpace(l), `"'`+"`")
		if l != "" {
			trimmed = append(trimmed, l)
		}
	}

	clean, rejected := sqlcheck.FilterLiterals(trimmed)
	for _, r := range rejected {
		s.logger.Warn("Dropping literal that looks like SQL",
			zap.String("fingerprint", r.Fingerprint))
	}

	normQuestion := normalizeText(string(question))
	out := []string{}
	seen := make(map[string]bool)
	for _, l := range clean {
		n := normalizeText(l)
		if n == "" || seen[n] || !strings.Contains(normQuestion, n) {
			continue
		}
		seen[n] = true
		out = append(out, l)
	}
	return out
}

// normalizeText lower-cases s and keeps letters and digits only, so
// "HighDensity" matches "high density" and "2.0" matches "2.0".
func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// resolveElement maps a provider-named element onto the descriptor,
// returning it with the descriptor's spelling. Kinds are normalized to the
// view's dialect and singular/plural variants of names are tried.
func resolveElement(d *models.SchemaDescriptor, raw prompts.LinkedElement) (models.SchemaElement, bool) {
	kind, ok := normalizeKind(raw.Kind, d.Dialect)
	if !ok || strings.TrimSpace(raw.Name) == "" {
		return models.SchemaElement{}, false
	}

	switch kind {
	case models.ElementTable, models.ElementNodeLabel:
		name, ok := findTable(d, raw.Name)
		if !ok {
			return models.SchemaElement{}, false
		}
		return models.SchemaElement{Kind: kind, Name: name}, true

	case models.ElementRelationshipType:
		for _, e := range d.Edges {
			if e.Name != "" && strings.EqualFold(e.Name, raw.Name) {
				return models.SchemaElement{Kind: kind, Name: e.Name}, true
			}
		}
		return models.SchemaElement{}, false

	default:
		return resolveColumn(d, kind, raw.Table, raw.Name)
	}
}

func resolveColumn(d *models.SchemaDescriptor, kind models.ElementKind, table, name string) (models.SchemaElement, bool) {
	if table == "" {
		owners := d.ColumnOwners(name)
		if len(owners) != 1 {
			// Unscoped graph properties may live on relationship types.
			if kind == models.ElementProperty && d.HasProperty(name) {
				return models.SchemaElement{Kind: kind, Name: name}, true
			}
			return models.SchemaElement{}, false
		}
		table = owners[0]
	}

	if tableName, ok := findTable(d, table); ok {
		t, _ := d.Table(tableName)
		for _, c := range t.Columns {
			if strings.EqualFold(c.Name, name) {
				return models.SchemaElement{Kind: kind, Table: t.Name, Name: c.Name}, true
			}
		}
		return models.SchemaElement{}, false
	}

	if kind == models.ElementProperty {
		e := models.SchemaElement{Kind: kind, Table: table, Name: name}
		if d.Contains(e) {
			for _, edge := range d.Edges {
				if strings.EqualFold(edge.Name, table) {
					e.Table = edge.Name
				}
			}
			return e, true
		}
	}
	return models.SchemaElement{}, false
}

func findTable(d *models.SchemaDescriptor, name string) (string, bool) {
	for _, candidate := range []string{name, inflection.Singular(name), inflection.Plural(name)} {
		if t, ok := d.Table(candidate); ok {
			return t.Name, true
		}
	}
	return "", false
}

func normalizeKind(kind string, dialect models.Dialect) (models.ElementKind, bool) {
	graph := dialect == models.DialectCypher
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "table", "node_label", "label", "node":
		if graph {
			return models.ElementNodeLabel, true
		}
		return models.ElementTable, true
	case "column", "property", "attribute":
		if graph {
			return models.ElementProperty, true
		}
		return models.ElementColumn, true
	case "relationship_type", "relationship", "rel":
		if graph {
			return models.ElementRelationshipType, true
		}
	}
	return "", false
}
