// Package wishlist proxies the TI Wishlist REST surface for the signed-in customer.
package wishlist

import (
	"context"
	"fmt"
	"log/slog"

	"storefront-proxy/internal/metrics"
	"storefront-proxy/internal/model"
	"storefront-proxy/internal/reconcile"
	"storefront-proxy/internal/woocommerce"
)

// Actions accepted by Do.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionSync   = "sync"
)

// API is the TI Wishlist surface of the WooCommerce client.
type API interface {
	WishlistsByUser(ctx context.Context, userID int) ([]woocommerce.Wishlist, error)
	WishlistProducts(ctx context.Context, shareKey string) ([]woocommerce.WishlistProduct, error)
	AddWishlistProduct(ctx context.Context, shareKey string, productID, variationID int) ([]woocommerce.WishlistProduct, error)
	RemoveWishlistProduct(ctx context.Context, itemID int) error
}

// Wishlist is the response shape of /api/wishlist.
type Wishlist struct {
	ID       int                           `json:"id"`
	ShareKey string                        `json:"share_key"`
	Title    string                        `json:"title,omitempty"`
	Products []woocommerce.WishlistProduct `json:"products"`
}

// Contains reports whether the list holds the product.
func (w *Wishlist) Contains(p reconcile.Product) bool {
	return w.find(p) != nil
}

func (w *Wishlist) find(p reconcile.Product) *woocommerce.WishlistProduct {
	if w == nil {
		return nil
	}
	for i := range w.Products {
		wp := &w.Products[i]
		if wp.ProductID == p.ProductID && (p.VariationID == 0 || wp.VariationID == p.VariationID) {
			return wp
		}
	}
	return nil
}

func (w *Wishlist) entries() []reconcile.Entry {
	out := make([]reconcile.Entry, 0, len(w.Products))
	for _, p := range w.Products {
		out = append(out, reconcile.Entry{
			Product: reconcile.Product{ProductID: p.ProductID, VariationID: p.VariationID},
			ItemID:  p.ItemID,
		})
	}
	return out
}

// Request is the body of POST /api/wishlist.
type Request struct {
	Action      string              `json:"action"`
	ProductID   int                 `json:"product_id,omitempty"`
	VariationID int                 `json:"variation_id,omitempty"`
	ItemID      int                 `json:"item_id,omitempty"`
	Products    []reconcile.Product `json:"products,omitempty"` // sync: the guest list
}

// SyncResult reports a merge of a guest list.
type SyncResult struct {
	Wishlist *Wishlist          `json:"wishlist"`
	Added    []reconcile.Product `json:"added"`
}

// Service resolves the customer's wishlist and applies mutations to it.
type Service struct {
	api    API
	logger *slog.Logger
}

// New creates a wishlist service.
func New(api API, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, logger: logger}
}

// Get returns the customer's wishlist. A customer without one gets an empty list.
func (s *Service) Get(ctx context.Context, user *model.User) (*Wishlist, error) {
	if user == nil || user.ID <= 0 {
		return nil, model.NewUnauthenticatedError("wishlist")
	}
	lists, err := s.api.WishlistsByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return &Wishlist{Products: []woocommerce.WishlistProduct{}}, nil
	}

	list := lists[0]
	products, err := s.api.WishlistProducts(ctx, list.ShareKey)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []woocommerce.WishlistProduct{}
	}
	return &Wishlist{ID: list.ID, ShareKey: list.ShareKey, Title: list.Title, Products: products}, nil
}

// owned fetches the wishlist for a mutation, which needs an existing list.
func (s *Service) owned(ctx context.Context, user *model.User) (*Wishlist, error) {
	w, err := s.Get(ctx, user)
	if err != nil {
		return nil, err
	}
	if w.ShareKey == "" {
		return nil, model.NewNotFoundError("wishlist")
	}
	return w, nil
}

// Add adds a product unless the list already holds it.
func (s *Service) Add(ctx context.Context, user *model.User, p reconcile.Product) (*Wishlist, error) {
	if p.ProductID <= 0 {
		return nil, model.NewMissingFieldError("product_id")
	}
	w, err := s.owned(ctx, user)
	if err != nil {
		return nil, err
	}
	if w.Contains(p) {
		return w, nil
	}
	if _, err := s.api.AddWishlistProduct(ctx, w.ShareKey, p.ProductID, p.VariationID); err != nil {
		metrics.RecordOperation("wishlist_add", false)
		return nil, err
	}
	metrics.RecordOperation("wishlist_add", true)
	return s.Get(ctx, user)
}

// Remove removes an item by item id, or by product when no item id is given.
// Removing a product the list does not hold is a no-op.
func (s *Service) Remove(ctx context.Context, user *model.User, itemID int, p reconcile.Product) (*Wishlist, error) {
	if itemID <= 0 && p.ProductID <= 0 {
		return nil, model.NewMissingFieldError("product_id")
	}
	w, err := s.owned(ctx, user)
	if err != nil {
		return nil, err
	}
	if itemID <= 0 {
		wp := w.find(p)
		if wp == nil {
			return w, nil
		}
		itemID = wp.ItemID
	}
	if err := s.api.RemoveWishlistProduct(ctx, itemID); err != nil {
		metrics.RecordOperation("wishlist_remove", false)
		return nil, err
	}
	metrics.RecordOperation("wishlist_remove", true)
	return s.Get(ctx, user)
}

// Sync merges a guest list into the customer's list. Products are only ever
// added; a product missing from the guest list stays.
func (s *Service) Sync(ctx context.Context, user *model.User, guest []reconcile.Product) (*SyncResult, error) {
	w, err := s.owned(ctx, user)
	if err != nil {
		return nil, err
	}

	missing := reconcile.Merge(w.entries(), guest)
	added := make([]reconcile.Product, 0, len(missing))
	for _, p := range missing {
		if _, err := s.api.AddWishlistProduct(ctx, w.ShareKey, p.ProductID, p.VariationID); err != nil {
			s.logger.WarnContext(ctx, "wishlist sync add failed",
				slog.Int("product_id", p.ProductID),
				slog.String("error", err.Error()),
			)
			continue
		}
		added = append(added, p)
	}
	metrics.RecordOperation("wishlist_sync", true)

	if len(added) == 0 {
		return &SyncResult{Wishlist: w, Added: added}, nil
	}
	fresh, err := s.Get(ctx, user)
	if err != nil {
		return nil, err
	}
	return &SyncResult{Wishlist: fresh, Added: added}, nil
}

// Do dispatches a POST /api/wishlist action.
func (s *Service) Do(ctx context.Context, user *model.User, req Request) (any, error) {
	p := reconcile.Product{ProductID: req.ProductID, VariationID: req.VariationID}
	switch req.Action {
	case ActionAdd:
		return s.Add(ctx, user, p)
	case ActionRemove:
		return s.Remove(ctx, user, req.ItemID, p)
	case ActionSync:
		return s.Sync(ctx, user, req.Products)
	default:
		return nil, model.NewInvalidFieldError("action", fmt.Sprintf("unsupported action %q", req.Action))
	}
}
