// internal/domain/product/catalog.go
package product

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the read-only product list loaded once at start-up
type Catalog struct {
	products []Product
	byID     map[string]int
}

type catalogFile struct {
	Products []Product `yaml:"products"`
}

// Default returns the catalog embedded in the binary
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile reads a YAML catalog from disk
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load parses a YAML catalog document
func Load(r io.Reader) (*Catalog, error) {
	var doc catalogFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	c := &Catalog{
		products: doc.Products,
		byID:     make(map[string]int, len(doc.Products)),
	}

	for i, p := range doc.Products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		for _, g := range p.OptionGroups {
			if g.Type != SelectionSingle && g.Type != SelectionMultiple {
				return nil, fmt.Errorf("product %q: option group %q has unknown type %q", p.ID, g.ID, g.Type)
			}
		}
		c.byID[p.ID] = i
	}

	return c, nil
}

// Products returns a copy of the catalog in its original order
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Get returns the product with the given id
func (c *Catalog) Get(id string) (*Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	p := c.products[i]
	return &p, nil
}

// Len returns the number of catalog entries
func (c *Catalog) Len() int {
	return len(c.products)
}
