package inspection

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// Catalog is the YAML form of a tenant's item templates:
//
//	environments:
//	  ALCOBA: [Puerta, Ventana, Closet]
//	  COCINA: [Mesón, Estufa]
type Catalog struct {
	Environments map[EnvironmentType][]string `yaml:"environments"`
}

// ParseCatalog decodes and validates a catalog document.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for envType := range c.Environments {
		if !envType.Valid() {
			return nil, fmt.Errorf("unknown environment type %q", envType)
		}
	}
	return &c, nil
}

// Entries flattens the catalog in a stable order.
func (c *Catalog) Entries() []Template {
	types := make([]EnvironmentType, 0, len(c.Environments))
	for t := range c.Environments {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	var out []Template
	for _, t := range types {
		for _, name := range c.Environments[t] {
			out = append(out, Template{EnvironmentType: t, Name: name})
		}
	}
	return out
}
