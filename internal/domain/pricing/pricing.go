// internal/domain/pricing/pricing.go
package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/product"
)

// Breakdown details how a configured unit price was reached
type Breakdown struct {
	Base       decimal.Decimal `json:"base"`
	PartsSum   decimal.Decimal `json:"parts_sum"`
	OptionsSum decimal.Decimal `json:"options_sum"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// Line is the minimal view of a cart line needed for totals
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals represents calculated cart totals
type Totals struct {
	ItemCount     int             `json:"item_count"`     // Number of distinct lines
	TotalQuantity int             `json:"total_quantity"` // Sum of all quantities
	SubTotal      decimal.Decimal `json:"sub_total"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	FreeShipping  bool            `json:"free_shipping"`
	// Amount still missing to reach free shipping, zero once reached
	FreeShippingRemaining decimal.Decimal `json:"free_shipping_remaining"`
}

// PartsSum adds the price of every selected part known to the product.
// Unknown ids contribute nothing and duplicates count once.
func PartsSum(p *product.Product, partIDs []string) decimal.Decimal {
	sum := decimal.Zero
	for _, id := range product.Dedupe(partIDs) {
		if part, ok := p.FindPart(id); ok {
			sum = sum.Add(part.Price)
		}
	}
	return sum
}

// OptionsSum adds the price modifier of every selected option known to the product.
// Modifiers may be negative.
func OptionsSum(p *product.Product, optionIDs []string) decimal.Decimal {
	sum := decimal.Zero
	for _, id := range product.Dedupe(optionIDs) {
		if opt, ok := p.FindOption(id); ok {
			sum = sum.Add(opt.PriceModifier)
		}
	}
	return sum
}

// UnitPrice returns the configured price of one unit, never below zero
func UnitPrice(p *product.Product, sel product.Selection) decimal.Decimal {
	price := p.Price.Add(PartsSum(p, sel.Parts)).Add(OptionsSum(p, sel.Options))
	return decimal.Max(decimal.Zero, price)
}

// LineTotal multiplies a unit price by a quantity
func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}

// Compute returns the full price breakdown of a configured product
func Compute(p *product.Product, sel product.Selection, quantity int) Breakdown {
	parts := PartsSum(p, sel.Parts)
	options := OptionsSum(p, sel.Options)
	unit := decimal.Max(decimal.Zero, p.Price.Add(parts).Add(options))

	return Breakdown{
		Base:       p.Price,
		PartsSum:   parts,
		OptionsSum: options,
		UnitPrice:  unit,
		Quantity:   quantity,
		LineTotal:  LineTotal(unit, quantity),
	}
}
