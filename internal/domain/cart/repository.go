// internal/domain/cart/repository.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/infrastructure/kv"
)

// Repository reads and writes the per-session documents on a key-value store
type Repository struct {
	store  kv.Store
	prefix string
	log    logrus.FieldLogger
}

// NewRepository creates a new cart repository; prefix namespaces every key
func NewRepository(store kv.Store, prefix string, log logrus.FieldLogger) *Repository {
	return &Repository{
		store:  store,
		prefix: prefix,
		log:    log,
	}
}

func (r *Repository) cartKey(sessionID string) string {
	return fmt.Sprintf("%scart:%s", r.prefix, sessionID)
}

func (r *Repository) prefsKey(sessionID string) string {
	return fmt.Sprintf("%sprefs:%s", r.prefix, sessionID)
}

func (r *Repository) remoteCartKey(sessionID string) string {
	return fmt.Sprintf("%sremote-cart:%s", r.prefix, sessionID)
}

// LoadCart returns the stored cart lines.
// Missing, unreadable or corrupt documents yield an empty cart.
func (r *Repository) LoadCart(ctx context.Context, sessionID string) []Item {
	data, err := r.store.Get(ctx, r.cartKey(sessionID))
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			r.log.WithError(err).WithField("session_id", sessionID).Warn("Failed to read cart, starting empty")
		}
		return nil
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		r.log.WithError(err).WithField("session_id", sessionID).Warn("Corrupt cart document, starting empty")
		return nil
	}

	// Drop anonymous lines and repair quantities written by older clients
	valid := items[:0]
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		item.Quantity = ClampQuantity(item.Quantity)
		valid = append(valid, item)
	}
	return valid
}

// SaveCart writes the full cart document
func (r *Repository) SaveCart(ctx context.Context, sessionID string, items []Item) error {
	if items == nil {
		items = []Item{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	if err := r.store.Set(ctx, r.cartKey(sessionID), data); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// LoadPrefs returns the stored preferences, defaults when missing or corrupt
func (r *Repository) LoadPrefs(ctx context.Context, sessionID string) Prefs {
	data, err := r.store.Get(ctx, r.prefsKey(sessionID))
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			r.log.WithError(err).WithField("session_id", sessionID).Warn("Failed to read prefs, using defaults")
		}
		return DefaultPrefs()
	}

	var prefs Prefs
	if err := json.Unmarshal(data, &prefs); err != nil {
		r.log.WithError(err).WithField("session_id", sessionID).Debug("Corrupt prefs document, using defaults")
		return DefaultPrefs()
	}
	return prefs.Normalize()
}

// SavePrefs writes the preferences document
func (r *Repository) SavePrefs(ctx context.Context, sessionID string, prefs Prefs) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode prefs: %w", err)
	}

	if err := r.store.Set(ctx, r.prefsKey(sessionID), data); err != nil {
		return fmt.Errorf("failed to save prefs: %w", err)
	}
	return nil
}

// LoadRemoteCartID returns the backend cart id, empty when none is stored
func (r *Repository) LoadRemoteCartID(ctx context.Context, sessionID string) (string, error) {
	data, err := r.store.Get(ctx, r.remoteCartKey(sessionID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read remote cart id: %w", err)
	}
	return string(data), nil
}

// SaveRemoteCartID stores the backend cart id
func (r *Repository) SaveRemoteCartID(ctx context.Context, sessionID, cartID string) error {
	if err := r.store.Set(ctx, r.remoteCartKey(sessionID), []byte(cartID)); err != nil {
		return fmt.Errorf("failed to save remote cart id: %w", err)
	}
	return nil
}
