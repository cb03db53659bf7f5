package models

import (
	"fmt"
	"strings"
)

// View identifies one family of partitions sharing a schema shape.
type View string

const (
	// ViewCells is the relational cell-library view, partitioned by
	// (library variant, operating corner).
	ViewCells View = "cells"
	// ViewNetlist is the graph view of physical-design data, partitioned
	// by design stage.
	ViewNetlist View = "netlist"
)

// Dialect is the query language accepted by a partition.
type Dialect string

const (
	DialectSQL    Dialect = "sql"
	DialectCypher Dialect = "cypher"
)

// PartitionKey addresses one independently queryable schema slice.
// Cell partitions set LibraryVariant and OperatingCorner; netlist
// partitions set DesignStage.
type PartitionKey struct {
	View            View   `json:"view" yaml:"view"`
	LibraryVariant  string `json:"library_variant,omitempty" yaml:"library_variant,omitempty"`
	OperatingCorner string `json:"operating_corner,omitempty" yaml:"operating_corner,omitempty"`
	DesignStage     string `json:"design_stage,omitempty" yaml:"design_stage,omitempty"`
}

// CellPartition returns the key for a (variant, corner) slice of the cells view.
func CellPartition(variant, corner string) PartitionKey {
	return PartitionKey{View: ViewCells, LibraryVariant: variant, OperatingCorner: corner}
}

// NetlistPartition returns the key for a design stage of the netlist view.
func NetlistPartition(stage string) PartitionKey {
	return PartitionKey{View: ViewNetlist, DesignStage: stage}
}

// String renders the key as "cells:HighDensity/nom" or "netlist:place".
func (k PartitionKey) String() string {
	switch k.View {
	case ViewCells:
		return fmt.Sprintf("%s:%s/%s", k.View, k.LibraryVariant, k.OperatingCorner)
	case ViewNetlist:
		return fmt.Sprintf("%s:%s", k.View, k.DesignStage)
	default:
		return string(k.View)
	}
}

// Validate checks that the key has the axes its view requires.
func (k PartitionKey) Validate() error {
	switch k.View {
	case ViewCells:
		if k.LibraryVariant == "" || k.OperatingCorner == "" {
			return fmt.Errorf("cells partition requires library variant and operating corner")
		}
		if k.DesignStage != "" {
			return fmt.Errorf("cells partition cannot carry a design stage")
		}
	case ViewNetlist:
		if k.DesignStage == "" {
			return fmt.Errorf("netlist partition requires a design stage")
		}
		if k.LibraryVariant != "" || k.OperatingCorner != "" {
			return fmt.Errorf("netlist partition cannot carry library variant or corner")
		}
	default:
		return fmt.Errorf("unknown view %q", k.View)
	}
	return nil
}

// ParsePartitionKey parses the String form of a key.
func ParsePartitionKey(s string) (PartitionKey, error) {
	view, rest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || rest == "" {
		return PartitionKey{}, fmt.Errorf("invalid partition key %q: expected view:partition", s)
	}

	var key PartitionKey
	switch View(view) {
	case ViewCells:
		variant, corner, ok := strings.Cut(rest, "/")
		if !ok {
			return PartitionKey{}, fmt.Errorf("invalid cells partition %q: expected variant/corner", rest)
		}
		key = CellPartition(variant, corner)
	case ViewNetlist:
		key = NetlistPartition(rest)
	default:
		return PartitionKey{}, fmt.Errorf("unknown view %q", view)
	}

	if err := key.Validate(); err != nil {
		return PartitionKey{}, fmt.Errorf("invalid partition key %q: %w", s, err)
	}
	return key, nil
}
