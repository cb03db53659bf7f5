// Package catalog loads the static description of every view: its query
// dialect, the schema descriptor shared by its partitions, and the backing
// store of each materialized partition.
package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// Catalog is the parsed catalog document. It is read once at startup and
// never modified afterwards.
type Catalog struct {
	Views map[models.View]*ViewSpec `yaml:"views"`
}

// ViewSpec describes one view. Every partition of a view shares the same
// schema shape, so the descriptor is given once per view, either inline or
// in a separate file.
type ViewSpec struct {
	Dialect        models.Dialect           `yaml:"dialect"`
	Descriptor     *models.SchemaDescriptor `yaml:"descriptor,omitempty"`
	DescriptorFile string                   `yaml:"descriptor_file,omitempty"`
	Partitions     []PartitionSpec          `yaml:"partitions"`
}

// PartitionSpec binds one partition key to the adaptor that serves it.
// Options are passed unchanged to the adaptor factory.
type PartitionSpec struct {
	LibraryVariant  string         `yaml:"library_variant,omitempty"`
	OperatingCorner string         `yaml:"operating_corner,omitempty"`
	DesignStage     string         `yaml:"design_stage,omitempty"`
	Adaptor         string         `yaml:"adaptor"`
	Options         map[string]any `yaml:"options,omitempty"`
}

// Backing is a resolved partition: its key, the view descriptor and the
// adaptor to open.
type Backing struct {
	Key        models.PartitionKey
	Descriptor *models.SchemaDescriptor
	Adaptor    string
	Options    map[string]any
}

// dialectForView is the only dialect each view accepts.
var dialectForView = map[models.View]models.Dialect{
	models.ViewCells:   models.DialectSQL,
	models.ViewNetlist: models.DialectCypher,
}

// Load reads and validates a catalog file. Relative descriptor files and
// sqlite paths are resolved against the catalog's directory.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes a catalog document. baseDir anchors relative paths.
func Parse(data []byte, baseDir string) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	for view, spec := range c.Views {
		if spec == nil {
			return nil, fmt.Errorf("view %q: empty definition", view)
		}
		if spec.DescriptorFile != "" {
			if spec.Descriptor != nil {
				return nil, fmt.Errorf("view %q: descriptor and descriptor_file are mutually exclusive", view)
			}
			d, err := loadDescriptor(resolvePath(baseDir, spec.DescriptorFile))
			if err != nil {
				return nil, fmt.Errorf("view %q: %w", view, err)
			}
			spec.Descriptor = d
		}
		if spec.Descriptor != nil {
			spec.Descriptor.View = view
			spec.Descriptor.Dialect = spec.Dialect
		}
		for i := range spec.Partitions {
			p := &spec.Partitions[i]
			if p.Adaptor == "sqlite" {
				if rel, ok := p.Options["path"].(string); ok {
					p.Options["path"] = resolvePath(baseDir, rel)
				}
			}
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func loadDescriptor(path string) (*models.SchemaDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	var d models.SchemaDescriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse descriptor %s: %w", path, err)
	}
	return &d, nil
}

func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}

// Validate checks dialects, descriptors and that no partition key is bound
// twice.
func (c *Catalog) Validate() error {
	if len(c.Views) == 0 {
		return fmt.Errorf("catalog defines no views")
	}

	seen := make(map[models.PartitionKey]bool)
	for view, spec := range c.Views {
		want, ok := dialectForView[view]
		if !ok {
			return fmt.Errorf("unknown view %q", view)
		}
		if spec.Dialect != want {
			return fmt.Errorf("view %q: dialect must be %q, got %q", view, want, spec.Dialect)
		}
		if spec.Descriptor == nil || len(spec.Descriptor.Tables) == 0 {
			return fmt.Errorf("view %q: descriptor has no tables", view)
		}
		for _, e := range spec.Descriptor.Edges {
			if !spec.Descriptor.HasTable(e.FromTable) || !spec.Descriptor.HasTable(e.ToTable) {
				return fmt.Errorf("view %q: edge %s -> %s references an undefined table", view, e.FromTable, e.ToTable)
			}
		}

		for _, p := range spec.Partitions {
			key := p.key(view)
			if err := key.Validate(); err != nil {
				return fmt.Errorf("view %q: %w", view, err)
			}
			if p.Adaptor == "" {
				return fmt.Errorf("partition %s: adaptor is required", key)
			}
			if seen[key] {
				return fmt.Errorf("partition %s is defined more than once", key)
			}
			seen[key] = true
		}
	}
	return nil
}

func (p PartitionSpec) key(view models.View) models.PartitionKey {
	return models.PartitionKey{
		View:            view,
		LibraryVariant:  p.LibraryVariant,
		OperatingCorner: p.OperatingCorner,
		DesignStage:     p.DesignStage,
	}
}

// Backings returns every partition of the catalog, ordered by key.
func (c *Catalog) Backings() []Backing {
	var out []Backing
	for view, spec := range c.Views {
		for _, p := range spec.Partitions {
			out = append(out, Backing{
				Key:        p.key(view),
				Descriptor: spec.Descriptor,
				Adaptor:    p.Adaptor,
				Options:    p.Options,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Descriptor returns the shared descriptor of a view.
func (c *Catalog) Descriptor(view models.View) (*models.SchemaDescriptor, bool) {
	spec, ok := c.Views[view]
	if !ok {
		return nil, false
	}
	return spec.Descriptor, spec.Descriptor != nil
}
