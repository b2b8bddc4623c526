// internal/domain/cart/store.go
package cart

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/product"
)

// Saver persists a full cart document
type Saver interface {
	SaveCart(ctx context.Context, sessionID string, items []Item) error
}

// Store owns one shopper's cart lines. It is not safe for concurrent use;
// Service serializes access per session.
type Store struct {
	sessionID string
	items     []Item
	saver     Saver
	log       logrus.FieldLogger
}

// NewStore creates a store over already loaded items
func NewStore(sessionID string, items []Item, saver Saver, log logrus.FieldLogger) *Store {
	return &Store{
		sessionID: sessionID,
		items:     items,
		saver:     saver,
		log:       log,
	}
}

// Items returns a copy of the cart lines in insertion order
func (s *Store) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the line for a product id
func (s *Store) Get(id string) (Item, bool) {
	if i := s.index(id); i >= 0 {
		return s.items[i], true
	}
	return Item{}, false
}

// Add inserts a line or merges into the existing line for the same product.
// Merging sums then clamps the quantity and overwrites price and configuration.
func (s *Store) Add(ctx context.Context, p *product.Product, quantity int, price decimal.Decimal, cfg *Configuration) Item {
	if i := s.index(p.ID); i >= 0 {
		s.items[i].Quantity = ClampQuantity(s.items[i].Quantity + boundDelta(quantity))
		s.items[i].Price = price
		s.items[i].Config = cfg
		s.persist(ctx)
		return s.items[i]
	}

	item := Item{
		ID:       p.ID,
		Name:     p.Name,
		Price:    price,
		Quantity: ClampQuantity(quantity),
		Image:    p.Image,
		Config:   cfg,
	}
	s.items = append(s.items, item)
	s.persist(ctx)
	return item
}

// UpdateQuantity sets a clamped quantity, reporting false when the id is absent
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.items[i].Quantity = ClampQuantity(quantity)
	s.persist(ctx)
	return true
}

// Remove deletes a line, reporting false when the id is absent
func (s *Store) Remove(ctx context.Context, id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.persist(ctx)
	return true
}

// Clear empties the cart
func (s *Store) Clear(ctx context.Context) {
	s.items = nil
	s.persist(ctx)
}

// Count returns the sum of all quantities
func (s *Store) Count() int {
	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// Totals computes subtotal, shipping and total with the given engine
func (s *Store) Totals(engine *pricing.Engine) pricing.Totals {
	lines := make([]pricing.Line, len(s.items))
	for i, item := range s.items {
		lines[i] = pricing.Line{UnitPrice: item.Price, Quantity: item.Quantity}
	}
	return engine.Totals(lines)
}

func (s *Store) index(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// persist writes the whole cart; failures are logged and the in-memory state is kept
func (s *Store) persist(ctx context.Context) {
	if s.saver == nil {
		return
	}
	if err := s.saver.SaveCart(ctx, s.sessionID, s.Items()); err != nil {
		s.log.WithError(err).WithField("session_id", s.sessionID).Warn("Failed to persist cart")
	}
}

// boundDelta limits an added quantity to [-MaxQuantity, MaxQuantity] so the
// merged sum stays within int range and still clamps as if unbounded
func boundDelta(q int) int {
	if q > MaxQuantity {
		return MaxQuantity
	}
	if q < -MaxQuantity {
		return -MaxQuantity
	}
	return q
}
