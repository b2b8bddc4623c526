// internal/domain/pricing/format.go
package pricing

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders prices for the storefront display locale
type Formatter struct {
	locale language.Tag
	symbol string
}

// NewFormatter creates a formatter, e.g. NewFormatter(language.French, "€")
func NewFormatter(locale language.Tag, symbol string) *Formatter {
	return &Formatter{locale: locale, symbol: symbol}
}

// Format renders an amount with locale grouping, up to two decimals, and the currency symbol
func (f *Formatter) Format(amount decimal.Decimal) string {
	// message.Printer is not safe for concurrent use
	p := message.NewPrinter(f.locale)
	return p.Sprint(number.Decimal(amount.Round(2).InexactFloat64(), number.MaxFractionDigits(2))) + " " + f.symbol
}
