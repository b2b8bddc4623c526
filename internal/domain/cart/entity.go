// internal/domain/cart/entity.go
package cart

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/product"
)

// Quantity bounds applied to every cart line
const (
	MinQuantity = 1
	MaxQuantity = 999
)

// ErrItemNotFound is returned when reading a line that is not in the cart
var ErrItemNotFound = errors.New("cart item not found")

// Configuration is the snapshot of a configured product at add-to-cart time
type Configuration struct {
	SelectedParts   []string         `json:"selected_parts,omitempty"`
	SelectedOptions []string         `json:"selected_options,omitempty"`
	CustomPrice     *decimal.Decimal `json:"custom_price,omitempty"`
}

// Selection rebuilds the product selection the snapshot was taken from
func (c *Configuration) Selection() product.Selection {
	if c == nil {
		return product.Selection{}
	}
	return product.Selection{Parts: c.SelectedParts, Options: c.SelectedOptions}
}

// Item represents one cart line, keyed by product id
type Item struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"` // Unit price at time of adding
	Quantity int             `json:"quantity"`
	Image    string          `json:"image,omitempty"`
	Config   *Configuration  `json:"config,omitempty"`
}

// LineTotal returns price times quantity
func (i Item) LineTotal() decimal.Decimal {
	return pricing.LineTotal(i.Price, i.Quantity)
}

// Prefs represents the persisted list view filter and sort state
type Prefs struct {
	Sort     product.SortKey  `json:"sort"`
	Category string           `json:"category"`
	Query    string           `json:"q"`
	MinPrice *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice *decimal.Decimal `json:"max_price,omitempty"`
}

// DefaultPrefs returns the preferences used when nothing valid is stored
func DefaultPrefs() Prefs {
	return Prefs{
		Sort:     product.DefaultSort,
		Category: product.AllCategories,
		Query:    "",
	}
}

// Normalize fills missing fields with their defaults
func (p Prefs) Normalize() Prefs {
	if p.Sort == "" {
		p.Sort = product.DefaultSort
	}
	if p.Category == "" {
		p.Category = product.AllCategories
	}
	return p
}

// Filter converts the preferences into a catalog filter
func (p Prefs) Filter() product.Filter {
	return product.Filter{
		Query:    p.Query,
		Category: p.Category,
		MinPrice: p.MinPrice,
		MaxPrice: p.MaxPrice,
	}
}

// ClampQuantity bounds a quantity to [MinQuantity, MaxQuantity]
func ClampQuantity(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}
