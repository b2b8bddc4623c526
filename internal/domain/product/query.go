// internal/domain/product/query.go
package product

import (
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SortKey selects the ordering of a product list
type SortKey string

const (
	SortNameAsc      SortKey = "name_asc"
	SortNameDesc     SortKey = "name_desc"
	SortPriceAsc     SortKey = "price_asc"
	SortPriceDesc    SortKey = "price_desc"
	SortCategoryAsc  SortKey = "category_asc"
	SortCategoryDesc SortKey = "category_desc"
)

// DefaultSort is used when no sort preference exists
const DefaultSort = SortNameAsc

// Valid reports whether the key is one of the known sort keys
func (k SortKey) Valid() bool {
	switch k {
	case SortNameAsc, SortNameDesc, SortPriceAsc, SortPriceDesc, SortCategoryAsc, SortCategoryDesc:
		return true
	}
	return false
}

// Filter narrows a product list. All predicates are ANDed.
type Filter struct {
	Query    string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// Apply filters and sorts products. The input slice is left untouched and
// products with equal sort keys keep their catalog order.
func Apply(all []Product, f Filter, key SortKey, locale language.Tag) []Product {
	q := Normalize(f.Query)

	out := make([]Product, 0, len(all))
	for _, p := range all {
		if f.matches(&p, q) {
			out = append(out, p)
		}
	}

	sortProducts(out, key, locale)
	return out
}

// Categories returns the distinct non-empty categories in collation order
func Categories(all []Product, locale language.Tag) []string {
	seen := make(map[string]struct{})
	var cats []string
	for _, p := range all {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		cats = append(cats, p.Category)
	}

	col := collate.New(locale)
	sort.SliceStable(cats, func(i, j int) bool {
		return col.CompareString(cats[i], cats[j]) < 0
	})
	return cats
}

// Normalize folds case and strips diacritics for text matching
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

func (f Filter) matches(p *Product, normalizedQuery string) bool {
	if f.Category != "" && f.Category != AllCategories && p.Category != f.Category {
		return false
	}

	if normalizedQuery != "" &&
		!strings.Contains(Normalize(p.Name), normalizedQuery) &&
		!strings.Contains(Normalize(p.Description), normalizedQuery) &&
		!strings.Contains(Normalize(p.Category), normalizedQuery) {
		return false
	}

	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}

	return true
}

func sortProducts(products []Product, key SortKey, locale language.Tag) {
	// collate.Collator keeps internal buffers, so each call gets its own
	col := collate.New(locale)

	var less func(a, b *Product) bool
	switch key {
	case SortNameAsc:
		less = func(a, b *Product) bool { return col.CompareString(a.Name, b.Name) < 0 }
	case SortNameDesc:
		less = func(a, b *Product) bool { return col.CompareString(b.Name, a.Name) < 0 }
	case SortPriceAsc:
		less = func(a, b *Product) bool { return a.Price.LessThan(b.Price) }
	case SortPriceDesc:
		less = func(a, b *Product) bool { return b.Price.LessThan(a.Price) }
	case SortCategoryAsc:
		less = func(a, b *Product) bool { return col.CompareString(a.Category, b.Category) < 0 }
	case SortCategoryDesc:
		less = func(a, b *Product) bool { return col.CompareString(b.Category, a.Category) < 0 }
	default:
		return
	}

	sort.SliceStable(products, func(i, j int) bool {
		return less(&products[i], &products[j])
	})
}
