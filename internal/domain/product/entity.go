// internal/domain/product/entity.go
package product

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound is returned when a catalog lookup misses.
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidSelection is returned when a selection breaks a group rule.
	ErrInvalidSelection = errors.New("invalid selection")
)

// SelectionType tells how many options of a group may be selected together
type SelectionType string

const (
	SelectionSingle   SelectionType = "single"
	SelectionMultiple SelectionType = "multiple"
)

// AllCategories bypasses the category filter
const AllCategories = "ALL"

// Product represents an immutable catalog entry
type Product struct {
	ID           string          `yaml:"id" json:"id"`
	Name         string          `yaml:"name" json:"name"`
	Slug         string          `yaml:"slug,omitempty" json:"slug,omitempty"`
	Description  string          `yaml:"description" json:"description"`
	Category     string          `yaml:"category" json:"category"`
	Image        string          `yaml:"image" json:"image"`
	Model3D      string          `yaml:"model3d,omitempty" json:"model3d,omitempty"`
	Price        decimal.Decimal `yaml:"price" json:"price"`
	Parts        []Part          `yaml:"parts" json:"parts"`
	PartGroups   []PartGroup     `yaml:"part_groups" json:"part_groups"`
	Options      []Option        `yaml:"options" json:"options"`
	OptionGroups []OptionGroup   `yaml:"option_groups" json:"option_groups"`
}

// Part represents a replaceable component of a product
type Part struct {
	ID          string          `yaml:"id" json:"id"`
	Name        string          `yaml:"name" json:"name"`
	Price       decimal.Decimal `yaml:"price" json:"price"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Image       string          `yaml:"image,omitempty" json:"image,omitempty"`
	InStock     bool            `yaml:"in_stock" json:"in_stock"`
	GroupID     string          `yaml:"group_id,omitempty" json:"group_id,omitempty"`
}

// PartGroup groups parts for display. Parts lists member part ids in order.
type PartGroup struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Parts       []string `yaml:"parts" json:"parts"`
}

// Option represents a price-modifying choice on a product
type Option struct {
	ID            string          `yaml:"id" json:"id"`
	Name          string          `yaml:"name" json:"name"`
	PriceModifier decimal.Decimal `yaml:"price_modifier" json:"price_modifier"`
	Description   string          `yaml:"description,omitempty" json:"description,omitempty"`
	Image         string          `yaml:"image,omitempty" json:"image,omitempty"`
	Value         string          `yaml:"value,omitempty" json:"value,omitempty"`
	GroupID       string          `yaml:"group_id,omitempty" json:"group_id,omitempty"`
}

// OptionGroup groups options under a selection rule
type OptionGroup struct {
	ID          string        `yaml:"id" json:"id"`
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Type        SelectionType `yaml:"type" json:"type"`
	Options     []string      `yaml:"options" json:"options"`
}

// Selection holds the part and option ids a shopper picked.
// Ids are treated as a set: order and duplicates carry no meaning.
type Selection struct {
	Parts   []string `json:"selected_parts"`
	Options []string `json:"selected_options"`
}

// IsEmpty reports whether nothing is selected
func (s Selection) IsEmpty() bool {
	return len(s.Parts) == 0 && len(s.Options) == 0
}

// Business methods for Product

// FindPart returns the part with the given id
func (p *Product) FindPart(id string) (*Part, bool) {
	for i := range p.Parts {
		if p.Parts[i].ID == id {
			return &p.Parts[i], true
		}
	}
	return nil, false
}

// FindOption returns the option with the given id
func (p *Product) FindOption(id string) (*Option, bool) {
	for i := range p.Options {
		if p.Options[i].ID == id {
			return &p.Options[i], true
		}
	}
	return nil, false
}

// FindOptionGroup returns the option group with the given id
func (p *Product) FindOptionGroup(id string) (*OptionGroup, bool) {
	for i := range p.OptionGroups {
		if p.OptionGroups[i].ID == id {
			return &p.OptionGroups[i], true
		}
	}
	return nil, false
}

// Has3DModel reports whether the product carries a 3D model reference
func (p *Product) Has3DModel() bool {
	return p.Model3D != ""
}

// Handle returns the identifier used to look the product up on the commerce backend
func (p *Product) Handle() string {
	if p.Slug != "" {
		return p.Slug
	}
	return p.ID
}
