package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

const cellsDescriptorYAML = `
description: Standard-cell library characterization.
tables:
  - name: Macros
    columns:
      - {name: Name, data_type: TEXT}
      - {name: Width, data_type: REAL}
  - name: TimingArcs
    columns:
      - {name: MacroName}
      - {name: Delay}
edges:
  - {from_table: TimingArcs, from_column: MacroName, to_table: Macros, to_column: Name}
`

const catalogYAML = `
views:
  cells:
    dialect: sql
    descriptor_file: descriptors/cells.yaml
    partitions:
      - {library_variant: HighDensity, operating_corner: nom, adaptor: sqlite, options: {path: data/hd_nom.db}}
      - {library_variant: HighDensity, operating_corner: max, adaptor: postgres, options: {host: db, schema: highdensity_max}}
  netlist:
    dialect: cypher
    descriptor:
      tables:
        - name: Cell
          columns: [{name: name}]
        - name: Net
          columns: [{name: name}]
      edges:
        - {name: DRIVES, from_table: Cell, to_table: Net}
    partitions:
      - {design_stage: place, adaptor: neo4j, options: {uri: "neo4j://graph:7687", database: place}}
`

func writeCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "descriptors"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "descriptors", "cells.yaml"), []byte(cellsDescriptorYAML), 0o644))
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeCatalog(t)

	c, err := Load(path)
	require.NoError(t, err)

	cells, ok := c.Descriptor(models.ViewCells)
	require.True(t, ok)
	assert.Equal(t, models.ViewCells, cells.View)
	assert.Equal(t, models.DialectSQL, cells.Dialect)
	assert.True(t, cells.HasColumn("macros", "width"))

	netlist, ok := c.Descriptor(models.ViewNetlist)
	require.True(t, ok)
	assert.Equal(t, models.DialectCypher, netlist.Dialect)
	assert.True(t, netlist.HasRelationship("DRIVES"))

	backings := c.Backings()
	require.Len(t, backings, 3)
	assert.Equal(t, "cells:HighDensity/max", backings[0].Key.String())
	assert.Equal(t, "cells:HighDensity/nom", backings[1].Key.String())
	assert.Equal(t, "netlist:place", backings[2].Key.String())

	// Partitions of one view share a single descriptor.
	assert.Same(t, backings[0].Descriptor, backings[1].Descriptor)

	assert.Equal(t, filepath.Join(filepath.Dir(path), "data", "hd_nom.db"), backings[1].Options["path"])
	assert.Equal(t, "highdensity_max", backings[0].Options["schema"])
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "no views",
			doc:     "views: {}",
			wantErr: "catalog defines no views",
		},
		{
			name:    "unknown view",
			doc:     "views:\n  layout:\n    dialect: sql\n    descriptor: {tables: [{name: T}]}",
			wantErr: `unknown view "layout"`,
		},
		{
			name:    "wrong dialect",
			doc:     "views:\n  netlist:\n    dialect: sql\n    descriptor: {tables: [{name: Cell}]}",
			wantErr: `dialect must be "cypher"`,
		},
		{
			name:    "missing descriptor",
			doc:     "views:\n  cells:\n    dialect: sql",
			wantErr: "descriptor has no tables",
		},
		{
			name:    "dangling edge",
			doc:     "views:\n  cells:\n    dialect: sql\n    descriptor: {tables: [{name: Pins}], edges: [{from_table: Pins, to_table: Macros}]}",
			wantErr: "references an undefined table",
		},
		{
			name: "cells partition without corner",
			doc: "views:\n  cells:\n    dialect: sql\n    descriptor: {tables: [{name: Macros}]}\n" +
				"    partitions:\n      - {library_variant: HighDensity, adaptor: sqlite}",
			wantErr: "requires library variant and operating corner",
		},
		{
			name: "duplicate partition",
			doc: "views:\n  netlist:\n    dialect: cypher\n    descriptor: {tables: [{name: Cell}]}\n" +
				"    partitions:\n      - {design_stage: place, adaptor: neo4j}\n      - {design_stage: place, adaptor: neo4j}",
			wantErr: "netlist:place is defined more than once",
		},
		{
			name: "missing adaptor",
			doc: "views:\n  netlist:\n    dialect: cypher\n    descriptor: {tables: [{name: Cell}]}\n" +
				"    partitions:\n      - {design_stage: route}",
			wantErr: "adaptor is required",
		},
		{
			name:    "unknown field",
			doc:     "views:\n  cells:\n    dialect: sql\n    colour: blue",
			wantErr: "field colour not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_SampleCatalog(t *testing.T) {
	cat, err := Load(filepath.Join("..", "..", "catalog.yaml"))
	require.NoError(t, err)

	cells, ok := cat.Descriptor(models.ViewCells)
	require.True(t, ok)
	_, hasMacros := cells.Table("macros")
	assert.True(t, hasMacros)

	netlist, ok := cat.Descriptor(models.ViewNetlist)
	require.True(t, ok)
	assert.Equal(t, models.DialectCypher, netlist.Dialect)

	keys := map[string]string{}
	for _, b := range cat.Backings() {
		keys[b.Key.String()] = b.Adaptor
	}
	assert.Equal(t, "sqlite", keys["cells:HighDensity/nom"])
	assert.Equal(t, "postgres", keys["cells:HighDensity/max"])
	assert.Equal(t, "mssql", keys["cells:LowPower/nom"])
	assert.Equal(t, "neo4j", keys["netlist:route"])
}
