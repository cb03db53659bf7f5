package sql

import (
	"reflect"
	"testing"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

func cellsDescriptor() *models.SchemaDescriptor {
	return &models.SchemaDescriptor{
		View:    models.ViewCells,
		Dialect: models.DialectSQL,
		Tables: []models.SchemaTable{
			{Name: "Macros", Columns: []models.SchemaColumn{
				{Name: "Name"}, {Name: "LibraryVariant"}, {Name: "CellType"},
				{Name: "Width"}, {Name: "Height"}, {Name: "Area"},
			}},
			{Name: "Pins", Columns: []models.SchemaColumn{
				{Name: "MacroName"}, {Name: "PinName"}, {Name: "Direction"}, {Name: "Layer"},
			}},
		},
		Edges: []models.SchemaEdge{
			{FromTable: "Pins", FromColumn: "MacroName", ToTable: "Macros", ToColumn: "Name"},
		},
	}
}

func TestExtractReferences_TablesAndAliases(t *testing.T) {
	refs := ExtractReferences("SELECT m.Name FROM main.Macros AS m, Pins WHERE Pins.MacroName = m.Name")

	if !reflect.DeepEqual(refs.Tables, []string{"Macros", "Pins"}) {
		t.Errorf("unexpected tables: %v", refs.Tables)
	}
	if !reflect.DeepEqual(refs.Qualified, []QualifiedTable{{Prefix: []string{"main"}, Table: "Macros"}}) {
		t.Errorf("unexpected qualified tables: %v", refs.Qualified)
	}
	if refs.Aliases["m"] != "Macros" {
		t.Errorf("expected alias m -> Macros, got %q", refs.Aliases["m"])
	}
	want := []QualifiedColumn{
		{Qualifier: "m", Column: "Name"},
		{Qualifier: "Pins", Column: "MacroName"},
		{Qualifier: "m", Column: "Name"},
	}
	if !reflect.DeepEqual(refs.Columns, want) {
		t.Errorf("unexpected columns: %v", refs.Columns)
	}
}

func TestExtractReferences_CTE(t *testing.T) {
	refs := ExtractReferences("WITH wide AS (SELECT Name FROM Macros WHERE Width > 2) SELECT w.Name FROM wide w")

	if !refs.CTEs["wide"] {
		t.Errorf("expected wide to be a CTE, got %v", refs.CTEs)
	}
	if refs.Aliases["w"] != "wide" {
		t.Errorf("expected alias w -> wide, got %q", refs.Aliases["w"])
	}
}

func TestUnknownReferences(t *testing.T) {
	d := cellsDescriptor()

	tests := []struct {
		name   string
		query  string
		schema string
		want   []string
	}{
		{
			name:  "simple filter",
			query: "SELECT Name, Width FROM Macros WHERE Width > 2.0 AND LibraryVariant = 'HighDensity'",
			want:  []string{},
		},
		{
			name:  "case-insensitive names",
			query: "select name from macros where width > 2",
			want:  []string{},
		},
		{
			name:  "unknown bare column",
			query: "SELECT Name FROM Macros WHERE Voltage > 1",
			want:  []string{"column Voltage"},
		},
		{
			name:  "unknown table",
			query: "SELECT * FROM Cells",
			want:  []string{"table Cells"},
		},
		{
			name:  "join with aliases",
			query: "SELECT m.Name, p.Direction FROM Macros m JOIN Pins p ON p.MacroName = m.Name",
			want:  []string{},
		},
		{
			name:  "unknown column through alias",
			query: "SELECT m.Voltage FROM Macros m",
			want:  []string{"column Macros.Voltage"},
		},
		{
			name:  "unknown column through table name",
			query: "SELECT Macros.Voltage FROM Macros",
			want:  []string{"column Macros.Voltage"},
		},
		{
			name:  "unknown qualifier",
			query: "SELECT x.Name FROM Macros m",
			want:  []string{"table x"},
		},
		{
			name:  "aggregate with output alias",
			query: "SELECT CellType, COUNT(*) AS n FROM Macros GROUP BY CellType ORDER BY n DESC",
			want:  []string{},
		},
		{
			name:  "scalar subquery",
			query: "SELECT Name FROM Macros WHERE Area > (SELECT AVG(Area) FROM Macros)",
			want:  []string{},
		},
		{
			name:  "derived table",
			query: "SELECT t.Name FROM (SELECT Name FROM Macros) t",
			want:  []string{},
		},
		{
			name:  "CTE",
			query: "WITH wide AS (SELECT Name FROM Macros WHERE Width > 2) SELECT w.Name FROM wide w",
			want:  []string{},
		},
		{
			name:  "string literals are not references",
			query: "SELECT Name FROM Macros WHERE CellType = 'Voltage Regulator'",
			want:  []string{},
		},
		{
			name:  "implicit column alias",
			query: "SELECT Width * Height area_um2 FROM Macros",
			want:  []string{},
		},
		{
			name:  "several unknowns sorted",
			query: "SELECT Voltage, Slew FROM Timing",
			want:  []string{"column Slew", "column Voltage", "table Timing"},
		},
		{
			name:   "own schema prefix",
			query:  "SELECT Width FROM highdensity_nom.Macros",
			schema: "highdensity_nom",
			want:   []string{},
		},
		{
			name:   "own schema prefix through a column",
			query:  "SELECT highdensity_nom.Macros.Width FROM highdensity_nom.Macros",
			schema: "HighDensity_Nom",
			want:   []string{},
		},
		{
			name:   "sibling schema prefix",
			query:  "SELECT Width FROM highdensity_min.Macros",
			schema: "highdensity_nom",
			want:   []string{"table highdensity_min.Macros"},
		},
		{
			name:   "sibling schema in a join",
			query:  "SELECT m.Name FROM Macros m JOIN highdensity_min.Pins p ON p.MacroName = m.Name",
			schema: "highdensity_nom",
			want:   []string{"table highdensity_min.Pins"},
		},
		{
			name:   "sibling schema through a column",
			query:  "SELECT highdensity_min.Macros.Width FROM Macros",
			schema: "highdensity_nom",
			want:   []string{"table highdensity_min.Macros"},
		},
		{
			name:   "database and schema prefix",
			query:  "SELECT m.Width FROM eda_lowpower.dbo.Macros m",
			schema: "dbo",
			want:   []string{"table eda_lowpower.dbo.Macros"},
		},
		{
			name:  "any prefix without a partition schema",
			query: "SELECT Width FROM main.Macros",
			want:  []string{"table main.Macros"},
		},
		{
			name:  "dynamic SQL function",
			query: "SELECT query_to_xml('SELECT * FROM highdensity_min.Macros', true, false, '')",
			want:  []string{"function query_to_xml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnknownReferences(tt.query, d, tt.schema)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	toks := Tokenize(`SELECT "Lib Name", [Area] FROM Macros WHERE Name = 'O''Brien' /* c */ AND Width >= 1.5e3`)

	var kinds []TokenKind
	var texts []string
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
		texts = append(texts, tok.Text)
	}

	wantTexts := []string{"SELECT", "Lib Name", ",", "Area", "FROM", "Macros", "WHERE", "Name", "=", "O'Brien", "AND", "Width", ">=", "1.5e3"}
	if !reflect.DeepEqual(texts, wantTexts) {
		t.Fatalf("expected %v, got %v", wantTexts, texts)
	}
	if kinds[1] != TokenQuotedIdent || kinds[3] != TokenQuotedIdent {
		t.Errorf("expected quoted identifiers, got %v", kinds)
	}
	if kinds[9] != TokenString {
		t.Errorf("expected string literal, got %v", kinds[9])
	}
	if kinds[13] != TokenNumber {
		t.Errorf("expected number, got %v", kinds[13])
	}
}
