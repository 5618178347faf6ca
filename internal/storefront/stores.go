package storefront

import (
	"context"
	"strconv"
	"sync/atomic"

	"storefront-proxy/internal/cart"
	"storefront-proxy/internal/cocart"
	"storefront-proxy/internal/reconcile"
	"storefront-proxy/internal/swr"
	"storefront-proxy/internal/wishlist"
	"storefront-proxy/internal/woocommerce"
)

// PlaceholderName labels an optimistic line until the server answers.
const PlaceholderName = "Loading..."

const (
	cartKey     = "cart"
	wishlistKey = "wishlist"
)

// CartAPI is the cart half of Client.
type CartAPI interface {
	Cart(ctx context.Context) (*cocart.Cart, error)
	CartAction(ctx context.Context, req cart.Request) (*cocart.Cart, error)
}

// CartStore is the optimistic client-side cart.
type CartStore struct {
	api     CartAPI
	cache   *swr.Cache[*cocart.Cart]
	pending atomic.Int64
}

// NewCartStore creates a cart store.
func NewCartStore(api CartAPI, opts swr.Options) *CartStore {
	return &CartStore{
		api: api,
		cache: swr.New(func(ctx context.Context, _ string) (*cocart.Cart, error) {
			return api.Cart(ctx)
		}, opts),
	}
}

// Get returns the cart, deduplicating rapid reads.
func (s *CartStore) Get(ctx context.Context) (*cocart.Cart, error) {
	return s.cache.Get(ctx, cartKey)
}

// Peek returns the cached cart without a request, or nil.
func (s *CartStore) Peek() *cocart.Cart {
	c, _ := s.cache.Peek(cartKey)
	return c
}

// Add shows a placeholder line at once and settles on the server cart.
func (s *CartStore) Add(ctx context.Context, req cart.Request) (*cocart.Cart, error) {
	req.Action = cart.OpAdd
	qty := 1
	if req.Quantity != nil && *req.Quantity > 0 {
		qty = *req.Quantity
	}
	key := "pending-" + strconv.FormatInt(s.pending.Add(1), 10)

	return s.mutate(ctx, req, func(c *cocart.Cart) {
		c.Items = append(c.Items, cocart.Item{
			ItemKey:  key,
			ID:       int(req.ProductID),
			Name:     PlaceholderName,
			Quantity: cocart.Quantity{Value: qty},
		})
		c.ItemCount += qty
	})
}

// Update changes a line quantity. Zero removes the line.
func (s *CartStore) Update(ctx context.Context, itemKey string, quantity int) (*cocart.Cart, error) {
	q := quantity
	req := cart.Request{Action: cart.OpUpdate, ItemKey: itemKey, Quantity: &q}
	return s.mutate(ctx, req, func(c *cocart.Cart) {
		for i := range c.Items {
			if c.Items[i].ItemKey != itemKey {
				continue
			}
			c.ItemCount += quantity - c.Items[i].Quantity.Value
			if quantity <= 0 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
			} else {
				c.Items[i].Quantity.Value = quantity
			}
			break
		}
		c.ItemCount = max(c.ItemCount, 0)
	})
}

// Remove drops a line.
func (s *CartStore) Remove(ctx context.Context, itemKey string) (*cocart.Cart, error) {
	req := cart.Request{Action: cart.OpRemove, ItemKey: itemKey}
	return s.mutate(ctx, req, func(c *cocart.Cart) {
		for i := range c.Items {
			if c.Items[i].ItemKey == itemKey {
				c.ItemCount = max(c.ItemCount-c.Items[i].Quantity.Value, 0)
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				break
			}
		}
	})
}

// Clear empties the cart.
func (s *CartStore) Clear(ctx context.Context) (*cocart.Cart, error) {
	return s.mutate(ctx, cart.Request{Action: cart.OpClear}, func(c *cocart.Cart) {
		c.Items = nil
		c.ItemCount = 0
		c.Coupons = nil
	})
}

// ApplyCoupon applies a coupon. There is no optimistic state; coupon
// validity is only known to the store.
func (s *CartStore) ApplyCoupon(ctx context.Context, code string) (*cocart.Cart, error) {
	return s.mutate(ctx, cart.Request{Action: cart.OpApplyCoupon, Code: code}, nil)
}

// OnFocus forwards a window focus signal to the cache.
func (s *CartStore) OnFocus(ctx context.Context) error { return s.cache.OnFocus(ctx) }

// OnReconnect forwards a network reconnect signal to the cache.
func (s *CartStore) OnReconnect(ctx context.Context) error { return s.cache.OnReconnect(ctx) }

func (s *CartStore) mutate(ctx context.Context, req cart.Request, apply func(*cocart.Cart)) (*cocart.Cart, error) {
	var optimistic func(*cocart.Cart) *cocart.Cart
	if apply != nil {
		optimistic = func(cur *cocart.Cart) *cocart.Cart {
			next := cloneCart(cur)
			apply(next)
			return next
		}
	}
	return s.cache.Mutate(ctx, cartKey, optimistic, func(ctx context.Context) (*cocart.Cart, error) {
		return s.api.CartAction(ctx, req)
	})
}

func cloneCart(c *cocart.Cart) *cocart.Cart {
	if c == nil {
		return &cocart.Cart{}
	}
	next := *c
	next.Items = append([]cocart.Item(nil), c.Items...)
	next.Coupons = append([]cocart.Coupon(nil), c.Coupons...)
	return &next
}

// WishlistAPI is the wishlist half of Client.
type WishlistAPI interface {
	Wishlist(ctx context.Context) (*wishlist.Wishlist, error)
	WishlistAction(ctx context.Context, req wishlist.Request) (*wishlist.Wishlist, error)
}

// WishlistStore is the optimistic client-side wishlist.
type WishlistStore struct {
	api   WishlistAPI
	cache *swr.Cache[*wishlist.Wishlist]
}

// NewWishlistStore creates a wishlist store.
func NewWishlistStore(api WishlistAPI, opts swr.Options) *WishlistStore {
	return &WishlistStore{
		api: api,
		cache: swr.New(func(ctx context.Context, _ string) (*wishlist.Wishlist, error) {
			return api.Wishlist(ctx)
		}, opts),
	}
}

// Get returns the wishlist.
func (s *WishlistStore) Get(ctx context.Context) (*wishlist.Wishlist, error) {
	return s.cache.Get(ctx, wishlistKey)
}

// Contains reports whether the cached list holds the product.
func (s *WishlistStore) Contains(p reconcile.Product) bool {
	w, _ := s.cache.Peek(wishlistKey)
	return w.Contains(p)
}

// Add adds a product, showing it at once.
func (s *WishlistStore) Add(ctx context.Context, p reconcile.Product) (*wishlist.Wishlist, error) {
	req := wishlist.Request{Action: wishlist.ActionAdd, ProductID: p.ProductID, VariationID: p.VariationID}
	return s.mutate(ctx, req, func(w *wishlist.Wishlist) {
		if !w.Contains(p) {
			w.Products = append(w.Products, woocommerce.WishlistProduct{ProductID: p.ProductID, VariationID: p.VariationID})
		}
	})
}

// Remove removes a product, hiding it at once.
func (s *WishlistStore) Remove(ctx context.Context, p reconcile.Product) (*wishlist.Wishlist, error) {
	req := wishlist.Request{Action: wishlist.ActionRemove, ProductID: p.ProductID, VariationID: p.VariationID}
	return s.mutate(ctx, req, func(w *wishlist.Wishlist) {
		kept := w.Products[:0]
		for _, wp := range w.Products {
			if wp.ProductID == p.ProductID && (p.VariationID == 0 || wp.VariationID == p.VariationID) {
				continue
			}
			kept = append(kept, wp)
		}
		w.Products = kept
	})
}

// Sync merges a guest list into the account list.
func (s *WishlistStore) Sync(ctx context.Context, guest []reconcile.Product) (*wishlist.Wishlist, error) {
	req := wishlist.Request{Action: wishlist.ActionSync, Products: guest}
	return s.mutate(ctx, req, func(w *wishlist.Wishlist) {
		for _, p := range guest {
			if !w.Contains(p) {
				w.Products = append(w.Products, woocommerce.WishlistProduct{ProductID: p.ProductID, VariationID: p.VariationID})
			}
		}
	})
}

// OnFocus forwards a window focus signal to the cache.
func (s *WishlistStore) OnFocus(ctx context.Context) error { return s.cache.OnFocus(ctx) }

// OnReconnect forwards a network reconnect signal to the cache.
func (s *WishlistStore) OnReconnect(ctx context.Context) error { return s.cache.OnReconnect(ctx) }

func (s *WishlistStore) mutate(ctx context.Context, req wishlist.Request, apply func(*wishlist.Wishlist)) (*wishlist.Wishlist, error) {
	return s.cache.Mutate(ctx, wishlistKey, func(cur *wishlist.Wishlist) *wishlist.Wishlist {
		next := &wishlist.Wishlist{}
		if cur != nil {
			*next = *cur
			next.Products = append([]woocommerce.WishlistProduct(nil), cur.Products...)
		}
		apply(next)
		return next
	}, func(ctx context.Context) (*wishlist.Wishlist, error) {
		return s.api.WishlistAction(ctx, req)
	})
}
