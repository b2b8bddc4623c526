// internal/domain/cart/service.go
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/product"
)

// ProductLookup resolves catalog products by id
type ProductLookup interface {
	Get(id string) (*product.Product, error)
}

// Service handles cart business logic for shopper sessions
type Service struct {
	products ProductLookup
	repo     *Repository
	engine   *pricing.Engine
	syncer   *Syncer
	log      logrus.FieldLogger
	locks    sessionLocks
}

// NewService creates a new cart service; syncer may be nil when no backend is configured
func NewService(products ProductLookup, repo *Repository, engine *pricing.Engine, syncer *Syncer, log logrus.FieldLogger) *Service {
	return &Service{
		products: products,
		repo:     repo,
		engine:   engine,
		syncer:   syncer,
		log:      log,
		locks:    sessionLocks{locks: make(map[string]*sessionLock)},
	}
}

// CartResponse represents a shopping cart with items and summary
type CartResponse struct {
	SessionID string         `json:"session_id"`
	Items     []Item         `json:"items"`
	Count     int            `json:"count"`
	Totals    pricing.Totals `json:"totals"`
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID       string   `json:"product_id" binding:"required"`
	Quantity        int      `json:"quantity"`
	SelectedParts   []string `json:"selected_parts"`
	SelectedOptions []string `json:"selected_options"`
}

// UpdateCartItemRequest represents update cart item request
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"` // Clamped to [MinQuantity, MaxQuantity]
}

// GetCart retrieves the cart of a session
func (s *Service) GetCart(ctx context.Context, sessionID string) (*CartResponse, error) {
	var resp *CartResponse
	s.withStore(ctx, sessionID, func(store *Store) {
		resp = s.response(sessionID, store)
	})
	return resp, nil
}

// GetItem returns one cart line
func (s *Service) GetItem(ctx context.Context, sessionID, itemID string) (*Item, error) {
	var (
		item  Item
		found bool
	)
	s.withStore(ctx, sessionID, func(store *Store) {
		item, found = store.Get(itemID)
	})
	if !found {
		return nil, ErrItemNotFound
	}
	return &item, nil
}

// AddToCart prices the configured product and merges it into the cart.
// The unit price is always recomputed from the selection.
func (s *Service) AddToCart(ctx context.Context, sessionID string, req *AddToCartRequest) (*CartResponse, error) {
	p, err := s.products.Get(req.ProductID)
	if err != nil {
		return nil, err
	}

	sel := product.Selection{
		Parts:   product.Dedupe(req.SelectedParts),
		Options: product.Dedupe(req.SelectedOptions),
	}
	if err := product.ValidateSelection(p, sel); err != nil {
		return nil, err
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	unit := pricing.UnitPrice(p, sel)
	cfg := snapshot(sel, unit)

	var resp *CartResponse
	s.withStore(ctx, sessionID, func(store *Store) {
		line := store.Add(ctx, p, quantity, unit, cfg)
		s.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"product_id": p.ID,
			"quantity":   line.Quantity,
			"unit_price": unit.String(),
		}).Debug("Item added to cart")
		resp = s.response(sessionID, store)
	})

	if s.syncer != nil {
		s.syncer.Schedule(SyncRequest{
			SessionID: sessionID,
			Product:   p,
			Quantity:  ClampQuantity(quantity),
			Config:    cfg,
		})
	}

	return resp, nil
}

// UpdateCartItem sets the quantity of a line; absent ids leave the cart unchanged
func (s *Service) UpdateCartItem(ctx context.Context, sessionID, itemID string, req *UpdateCartItemRequest) (*CartResponse, error) {
	var resp *CartResponse
	s.withStore(ctx, sessionID, func(store *Store) {
		store.UpdateQuantity(ctx, itemID, req.Quantity)
		resp = s.response(sessionID, store)
	})
	return resp, nil
}

// RemoveFromCart removes a line; absent ids leave the cart unchanged
func (s *Service) RemoveFromCart(ctx context.Context, sessionID, itemID string) (*CartResponse, error) {
	var resp *CartResponse
	s.withStore(ctx, sessionID, func(store *Store) {
		store.Remove(ctx, itemID)
		resp = s.response(sessionID, store)
	})
	return resp, nil
}

// ClearCart empties the cart
func (s *Service) ClearCart(ctx context.Context, sessionID string) error {
	s.withStore(ctx, sessionID, func(store *Store) {
		store.Clear(ctx)
	})
	return nil
}

// GetCartItemCount returns the sum of quantities in the cart
func (s *Service) GetCartItemCount(ctx context.Context, sessionID string) (int, error) {
	count := 0
	s.withStore(ctx, sessionID, func(store *Store) {
		count = store.Count()
	})
	return count, nil
}

// GetPrefs returns the list view preferences of a session
func (s *Service) GetPrefs(ctx context.Context, sessionID string) Prefs {
	return s.repo.LoadPrefs(ctx, sessionID)
}

// SavePrefs normalizes and persists the list view preferences
func (s *Service) SavePrefs(ctx context.Context, sessionID string, prefs Prefs) (Prefs, error) {
	prefs = prefs.Normalize()
	if err := s.repo.SavePrefs(ctx, sessionID, prefs); err != nil {
		return prefs, fmt.Errorf("failed to save preferences: %w", err)
	}
	return prefs, nil
}

// Engine returns the pricing engine used for totals
func (s *Service) Engine() *pricing.Engine {
	return s.engine
}

func (s *Service) response(sessionID string, store *Store) *CartResponse {
	return &CartResponse{
		SessionID: sessionID,
		Items:     store.Items(),
		Count:     store.Count(),
		Totals:    store.Totals(s.engine),
	}
}

// withStore loads the session cart and runs fn while holding the session lock
func (s *Service) withStore(ctx context.Context, sessionID string, fn func(*Store)) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	store := NewStore(sessionID, s.repo.LoadCart(ctx, sessionID), s.repo, s.log)
	fn(store)
}

// snapshot builds the configuration recorded on the cart line
func snapshot(sel product.Selection, unit decimal.Decimal) *Configuration {
	if sel.IsEmpty() {
		return nil
	}
	price := unit
	return &Configuration{
		SelectedParts:   sel.Parts,
		SelectedOptions: sel.Options,
		CustomPrice:     &price,
	}
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// sessionLocks hands out one mutex per session, dropping it once unused
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

func (l *sessionLocks) lock(sessionID string) func() {
	l.mu.Lock()
	sl, ok := l.locks[sessionID]
	if !ok {
		sl = &sessionLock{}
		l.locks[sessionID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()

		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}
