// internal/domain/cart/sync.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/pkg/commerce"
	"golang.org/x/sync/singleflight"
)

// RemoteCart is the part of the commerce backend the sync needs
type RemoteCart interface {
	CreateCart(ctx context.Context, regionID string) (*commerce.Cart, error)
	AddLineItem(ctx context.Context, cartID, variantID string, quantity int, metadata map[string]any) (*commerce.Cart, error)
}

// RemoteCartIDs stores the backend cart id of each session
type RemoteCartIDs interface {
	LoadRemoteCartID(ctx context.Context, sessionID string) (string, error)
	SaveRemoteCartID(ctx context.Context, sessionID, cartID string) error
}

// VariantResolver maps a catalog product to a backend variant id.
// An empty id means the product has no backend counterpart.
type VariantResolver interface {
	Resolve(ctx context.Context, p *product.Product) (string, error)
}

// NoVariant never resolves a variant, so line items are never pushed
type NoVariant struct{}

// Resolve always returns an empty id
func (NoVariant) Resolve(context.Context, *product.Product) (string, error) {
	return "", nil
}

// ProductRetriever looks up backend products
type ProductRetriever interface {
	RetrieveProduct(ctx context.Context, idOrHandle string) (*commerce.Product, error)
}

// RemoteVariantResolver picks the first variant of the backend product
// whose id or handle matches the catalog handle
type RemoteVariantResolver struct {
	products ProductRetriever
}

// NewRemoteVariantResolver creates a resolver backed by the commerce API
func NewRemoteVariantResolver(products ProductRetriever) *RemoteVariantResolver {
	return &RemoteVariantResolver{products: products}
}

// Resolve returns the first variant id, empty when the product is unknown remotely
func (r *RemoteVariantResolver) Resolve(ctx context.Context, p *product.Product) (string, error) {
	remote, err := r.products.RetrieveProduct(ctx, p.Handle())
	if err != nil {
		if errors.Is(err, commerce.ErrProductNotFound) || commerce.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if len(remote.Variants) == 0 {
		return "", nil
	}
	return remote.Variants[0].ID, nil
}

// SyncRequest describes one local add-to-cart to mirror remotely
type SyncRequest struct {
	SessionID string
	Product   *product.Product
	Quantity  int
	Config    *Configuration
}

// Syncer mirrors cart additions to the commerce backend in the background.
// Results never flow back into the local cart; only the remote cart id is stored.
type Syncer struct {
	remote   RemoteCart
	ids      RemoteCartIDs
	resolver VariantResolver
	regionID string
	timeout  time.Duration
	log      logrus.FieldLogger

	group singleflight.Group
	wg    sync.WaitGroup
}

// NewSyncer creates a new backend syncer
func NewSyncer(remote RemoteCart, ids RemoteCartIDs, resolver VariantResolver, regionID string, timeout time.Duration, log logrus.FieldLogger) *Syncer {
	if resolver == nil {
		resolver = NoVariant{}
	}
	return &Syncer{
		remote:   remote,
		ids:      ids,
		resolver: resolver,
		regionID: regionID,
		timeout:  timeout,
		log:      log,
	}
}

// Schedule starts a background sync and returns immediately
func (s *Syncer) Schedule(req SyncRequest) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.Sync(ctx, req); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"session_id": req.SessionID,
				"product_id": req.Product.ID,
			}).Warn("Commerce backend sync failed")
		}
	}()
}

// Wait blocks until every scheduled sync has finished
func (s *Syncer) Wait() {
	s.wg.Wait()
}

// Sync ensures a remote cart exists, resolves the variant and pushes the line item
func (s *Syncer) Sync(ctx context.Context, req SyncRequest) error {
	cartID, err := s.ensureCart(ctx, req.SessionID)
	if err != nil {
		return err
	}

	variantID, err := s.resolver.Resolve(ctx, req.Product)
	if err != nil {
		return fmt.Errorf("failed to resolve variant: %w", err)
	}
	if variantID == "" {
		s.log.WithField("product_id", req.Product.ID).Debug("No backend variant, skipping line item")
		return nil
	}

	if _, err := s.remote.AddLineItem(ctx, cartID, variantID, ClampQuantity(req.Quantity), Metadata(req.Product, req.Config)); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"session_id": req.SessionID,
		"cart_id":    cartID,
		"variant_id": variantID,
	}).Debug("Line item pushed to commerce backend")
	return nil
}

// ensureCart returns the session's remote cart id, creating the cart on first use.
// Concurrent first uses within a session share one creation.
func (s *Syncer) ensureCart(ctx context.Context, sessionID string) (string, error) {
	if id, err := s.ids.LoadRemoteCartID(ctx, sessionID); err == nil && id != "" {
		return id, nil
	}

	v, err, _ := s.group.Do(sessionID, func() (any, error) {
		if id, err := s.ids.LoadRemoteCartID(ctx, sessionID); err == nil && id != "" {
			return id, nil
		}

		cart, err := s.remote.CreateCart(ctx, s.regionID)
		if err != nil {
			return "", err
		}

		// Another writer may have stored an id while the call was in flight
		if current, err := s.ids.LoadRemoteCartID(ctx, sessionID); err == nil && current != "" {
			return current, nil
		}

		if err := s.ids.SaveRemoteCartID(ctx, sessionID, cart.ID); err != nil {
			s.log.WithError(err).WithField("session_id", sessionID).Warn("Failed to store remote cart id")
		}
		return cart.ID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Metadata describes the local configuration attached to a backend line item
func Metadata(p *product.Product, cfg *Configuration) map[string]any {
	parts := []string{}
	options := []string{}
	var customPrice any
	if cfg != nil {
		if cfg.SelectedParts != nil {
			parts = cfg.SelectedParts
		}
		if cfg.SelectedOptions != nil {
			options = cfg.SelectedOptions
		}
		if cfg.CustomPrice != nil {
			customPrice = cfg.CustomPrice.InexactFloat64()
		}
	}

	return map[string]any{
		"selectedParts":   parts,
		"selectedOptions": options,
		"customPrice":     customPrice,
		"ui_product_id":   p.ID,
	}
}
