// internal/domain/product/service.go
package product

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

// Service exposes read-only catalog queries
type Service struct {
	catalog *Catalog
	locale  language.Tag
	logger  logrus.FieldLogger
}

// NewService creates a new product service
func NewService(catalog *Catalog, locale language.Tag, logger logrus.FieldLogger) *Service {
	return &Service{
		catalog: catalog,
		locale:  locale,
		logger:  logger,
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Query    string  `form:"q" json:"q"`
	Category string  `form:"category" json:"category"`
	Sort     SortKey `form:"sort" json:"sort"`
	MinPrice string  `form:"min_price" json:"min_price,omitempty"`
	MaxPrice string  `form:"max_price" json:"max_price,omitempty"`
}

// ProductListResponse represents a filtered and sorted product list
type ProductListResponse struct {
	Products   []Product `json:"products"`
	Total      int       `json:"total"`
	Categories []string  `json:"categories"`
}

// ToFilter converts request parameters into a Filter. Blank bounds are unbounded.
func (r *ProductListRequest) ToFilter() (Filter, error) {
	f := Filter{
		Query:    r.Query,
		Category: r.Category,
	}
	if f.Category == "" {
		f.Category = AllCategories
	}

	var err error
	if f.MinPrice, err = parseBound(r.MinPrice); err != nil {
		return Filter{}, fmt.Errorf("invalid min_price: %w", err)
	}
	if f.MaxPrice, err = parseBound(r.MaxPrice); err != nil {
		return Filter{}, fmt.Errorf("invalid max_price: %w", err)
	}

	return f, nil
}

// GetProducts filters, searches and sorts the catalog
func (s *Service) GetProducts(req *ProductListRequest) (*ProductListResponse, error) {
	filter, err := req.ToFilter()
	if err != nil {
		return nil, err
	}

	sortKey := req.Sort
	if sortKey == "" {
		sortKey = DefaultSort
	}
	if !sortKey.Valid() {
		s.logger.WithField("sort", sortKey).Debug("Unknown sort key, keeping catalog order")
	}

	all := s.catalog.Products()
	products := Apply(all, filter, sortKey, s.locale)

	return &ProductListResponse{
		Products:   products,
		Total:      len(products),
		Categories: Categories(all, s.locale),
	}, nil
}

// GetProduct retrieves a single product by ID
func (s *Service) GetProduct(id string) (*Product, error) {
	return s.catalog.Get(id)
}

// GetCategories lists the catalog categories
func (s *Service) GetCategories() []string {
	return Categories(s.catalog.Products(), s.locale)
}

func parseBound(raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
