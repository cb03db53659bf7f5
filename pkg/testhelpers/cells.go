// Package testhelpers provides fixtures for testing ekaya-eda components:
// cell-library stores on SQLite and PostgreSQL plus matching descriptors.
package testhelpers

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite" // SQLite driver for fixture files

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// CellLibrarySchema creates the cells view tables. It is portable between
// SQLite and PostgreSQL.
var CellLibrarySchema = []string{
	`CREATE TABLE Macros (
		Name TEXT PRIMARY KEY,
		LibraryVariant TEXT NOT NULL,
		CellType TEXT NOT NULL,
		Width REAL NOT NULL,
		Height REAL NOT NULL,
		Area REAL NOT NULL,
		Leakage REAL NOT NULL
	)`,
	`CREATE TABLE Pins (
		MacroName TEXT NOT NULL REFERENCES Macros(Name),
		PinName TEXT NOT NULL,
		Direction TEXT NOT NULL,
		Capacitance REAL NOT NULL,
		PRIMARY KEY (MacroName, PinName)
	)`,
	`CREATE TABLE TimingArcs (
		MacroName TEXT NOT NULL REFERENCES Macros(Name),
		FromPin TEXT NOT NULL,
		ToPin TEXT NOT NULL,
		Delay REAL NOT NULL
	)`,
}

type macroRow struct {
	name, cellType string
	width, height  float64
	leakage        float64
	pins           [][2]string // name, direction
	arc            [3]any      // from, to, base delay
}

var macroRows = []macroRow{
	{"NAND2_X1", "combinational", 1.2, 1.0, 0.010, [][2]string{{"A1", "input"}, {"A2", "input"}, {"ZN", "output"}}, [3]any{"A1", "ZN", 0.021}},
	{"INV_X1", "combinational", 0.8, 1.0, 0.006, [][2]string{{"A", "input"}, {"ZN", "output"}}, [3]any{"A", "ZN", 0.012}},
	{"DFF_X1", "sequential", 3.4, 1.0, 0.040, [][2]string{{"D", "input"}, {"CK", "input"}, {"Q", "output"}}, [3]any{"CK", "Q", 0.085}},
	{"BUF_X4", "combinational", 2.6, 1.0, 0.025, [][2]string{{"A", "input"}, {"Z", "output"}}, [3]any{"A", "Z", 0.030}},
	{"MUX2_X2", "combinational", 2.2, 1.0, 0.018, [][2]string{{"A", "input"}, {"B", "input"}, {"S", "input"}, {"Z", "output"}}, [3]any{"S", "Z", 0.040}},
	{"SRAM_32X8", "macro", 24.0, 12.0, 1.500, [][2]string{{"CLK", "input"}, {"ADDR", "input"}, {"DIN", "input"}, {"DOUT", "output"}}, [3]any{"CLK", "DOUT", 0.450}},
}

// CornerScale is the delay and leakage multiplier of each operating corner.
var CornerScale = map[string]float64{"min": 0.8, "nom": 1.0, "max": 1.3}

// variantScale widens cells of performance-oriented libraries.
var variantScale = map[string]float64{"HighDensity": 1.0, "HighPerformance": 1.25}

// CellLibrarySeed returns INSERT statements for one (variant, corner)
// partition. Every partition has the same cells; widths vary by variant and
// delays and leakage by corner.
func CellLibrarySeed(variant, corner string) []string {
	vs, ok := variantScale[variant]
	if !ok {
		vs = 1.0
	}
	cs, ok := CornerScale[corner]
	if !ok {
		cs = 1.0
	}

	var stmts []string
	for _, m := range macroRows {
		width := m.width * vs
		stmts = append(stmts, fmt.Sprintf(
			"INSERT INTO Macros (Name, LibraryVariant, CellType, Width, Height, Area, Leakage) VALUES ('%s', '%s', '%s', %g, %g, %g, %g)",
			m.name, variant, m.cellType, width, m.height, width*m.height, m.leakage*cs))
		for _, p := range m.pins {
			stmts = append(stmts, fmt.Sprintf(
				"INSERT INTO Pins (MacroName, PinName, Direction, Capacitance) VALUES ('%s', '%s', '%s', %g)",
				m.name, p[0], p[1], 0.002*cs))
		}
		stmts = append(stmts, fmt.Sprintf(
			"INSERT INTO TimingArcs (MacroName, FromPin, ToPin, Delay) VALUES ('%s', '%s', '%s', %g)",
			m.name, m.arc[0], m.arc[1], m.arc[2].(float64)*cs))
	}
	return stmts
}

// NewCellLibraryFixture writes a SQLite file for one partition under
// t.TempDir() and returns its path.
func NewCellLibraryFixture(t *testing.T, variant, corner string) string {
	t.Helper()

	name := strings.ToLower(fmt.Sprintf("cells_%s_%s.db", variant, corner))
	path := filepath.Join(t.TempDir(), name)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer db.Close()

	for _, stmt := range append(append([]string{}, CellLibrarySchema...), CellLibrarySeed(variant, corner)...) {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed fixture: %v\n%s", err, stmt)
		}
	}
	return path
}

// CellsDescriptor describes the tables created by CellLibrarySchema.
func CellsDescriptor() *models.SchemaDescriptor {
	return &models.SchemaDescriptor{
		View:        models.ViewCells,
		Dialect:     models.DialectSQL,
		Description: "Standard-cell library characterization for one library variant at one operating corner.",
		Tables: []models.SchemaTable{
			{Name: "Macros", Description: "One row per cell (macro) in the library.", Columns: []models.SchemaColumn{
				{Name: "Name", DataType: "TEXT", Description: "Cell name, e.g. NAND2_X1"},
				{Name: "LibraryVariant", DataType: "TEXT", Description: "Library variant the cell belongs to, e.g. HighDensity"},
				{Name: "CellType", DataType: "TEXT", Description: "combinational, sequential or macro"},
				{Name: "Width", DataType: "REAL", Description: "Cell width in microns"},
				{Name: "Height", DataType: "REAL", Description: "Cell height in microns"},
				{Name: "Area", DataType: "REAL", Description: "Cell area in square microns"},
				{Name: "Leakage", DataType: "REAL", Description: "Leakage power in microwatts at this corner"},
			}},
			{Name: "Pins", Description: "Pins of each cell.", Columns: []models.SchemaColumn{
				{Name: "MacroName", DataType: "TEXT", Description: "Owning cell"},
				{Name: "PinName", DataType: "TEXT"},
				{Name: "Direction", DataType: "TEXT", Description: "input or output"},
				{Name: "Capacitance", DataType: "REAL", Description: "Pin capacitance in pF at this corner"},
			}},
			{Name: "TimingArcs", Description: "Pin-to-pin delays at this corner.", Columns: []models.SchemaColumn{
				{Name: "MacroName", DataType: "TEXT"},
				{Name: "FromPin", DataType: "TEXT"},
				{Name: "ToPin", DataType: "TEXT"},
				{Name: "Delay", DataType: "REAL", Description: "Propagation delay in ns"},
			}},
		},
		Edges: []models.SchemaEdge{
			{FromTable: "Pins", FromColumn: "MacroName", ToTable: "Macros", ToColumn: "Name"},
			{FromTable: "TimingArcs", FromColumn: "MacroName", ToTable: "Macros", ToColumn: "Name"},
		},
	}
}

// NetlistDescriptor describes the graph view of one design stage.
func NetlistDescriptor() *models.SchemaDescriptor {
	return &models.SchemaDescriptor{
		View:        models.ViewNetlist,
		Dialect:     models.DialectCypher,
		Description: "Placed-and-routed netlist of one design stage.",
		Tables: []models.SchemaTable{
			{Name: "Cell", Description: "A cell instance.", Columns: []models.SchemaColumn{
				{Name: "name"}, {Name: "master", Description: "Library macro name"}, {Name: "x"}, {Name: "y"},
			}},
			{Name: "Net", Description: "A signal net.", Columns: []models.SchemaColumn{
				{Name: "name"}, {Name: "fanout"}, {Name: "wirelength"},
			}},
			{Name: "Port", Description: "A top-level port.", Columns: []models.SchemaColumn{
				{Name: "name"}, {Name: "direction"},
			}},
		},
		Edges: []models.SchemaEdge{
			{Name: "DRIVES", FromTable: "Cell", ToTable: "Net", Properties: []models.SchemaColumn{{Name: "pin"}}},
			{Name: "LOADS", FromTable: "Net", ToTable: "Cell", Properties: []models.SchemaColumn{{Name: "pin"}, {Name: "slack"}}},
			{Name: "CONNECTS", FromTable: "Port", ToTable: "Net"},
		},
	}
}
