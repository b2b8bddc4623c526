// internal/domain/pricing/engine.go
package pricing

import (
	"github.com/shopspring/decimal"
)

// Engine applies the shipping rules configured for the store
type Engine struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// NewEngine creates a pricing engine
func NewEngine(threshold, fee decimal.Decimal) *Engine {
	return &Engine{
		FreeShippingThreshold: threshold,
		FlatShippingFee:       fee,
	}
}

// Shipping returns the shipping cost for a cart.
// Empty carts ship for free, and so do carts strictly above the threshold.
func (e *Engine) Shipping(subtotal decimal.Decimal, lineCount int) decimal.Decimal {
	if lineCount == 0 {
		return decimal.Zero
	}
	if subtotal.GreaterThan(e.FreeShippingThreshold) {
		return decimal.Zero
	}
	return e.FlatShippingFee
}

// Totals computes subtotal, shipping and total for the given lines
func (e *Engine) Totals(lines []Line) Totals {
	var totals Totals

	totals.ItemCount = len(lines)
	totals.SubTotal = decimal.Zero

	for _, l := range lines {
		totals.TotalQuantity += l.Quantity
		totals.SubTotal = totals.SubTotal.Add(LineTotal(l.UnitPrice, l.Quantity))
	}

	totals.ShippingCost = e.Shipping(totals.SubTotal, len(lines))
	totals.TotalAmount = totals.SubTotal.Add(totals.ShippingCost)
	totals.FreeShipping = len(lines) > 0 && totals.ShippingCost.IsZero()
	totals.FreeShippingRemaining = e.FreeShippingRemaining(totals.SubTotal, len(lines))

	return totals
}

// FreeShippingRemaining returns how much must be added to qualify for free shipping
func (e *Engine) FreeShippingRemaining(subtotal decimal.Decimal, lineCount int) decimal.Decimal {
	if lineCount == 0 || subtotal.GreaterThan(e.FreeShippingThreshold) {
		return decimal.Zero
	}
	return e.FreeShippingThreshold.Sub(subtotal)
}
