package storefront

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-proxy/internal/cart"
	"storefront-proxy/internal/cocart"
	"storefront-proxy/internal/reconcile"
	"storefront-proxy/internal/swr"
	"storefront-proxy/internal/wishlist"
	"storefront-proxy/internal/woocommerce"
)

type fakeCartAPI struct {
	server   *cocart.Cart
	fetches  int
	actionFn func(req cart.Request) (*cocart.Cart, error)
}

func (f *fakeCartAPI) Cart(context.Context) (*cocart.Cart, error) {
	f.fetches++
	return f.server, nil
}

func (f *fakeCartAPI) CartAction(_ context.Context, req cart.Request) (*cocart.Cart, error) {
	return f.actionFn(req)
}

func twoLineCart() *cocart.Cart {
	return &cocart.Cart{
		CartKey:   "k",
		ItemCount: 3,
		Items: []cocart.Item{
			{ItemKey: "a", ID: 1, Name: "Dates", Quantity: cocart.Quantity{Value: 1}},
			{ItemKey: "b", ID: 2, Name: "Coffee", Quantity: cocart.Quantity{Value: 2}},
		},
	}
}

func TestCartStore_AddShowsPlaceholder(t *testing.T) {
	api := &fakeCartAPI{server: twoLineCart()}
	store := NewCartStore(api, swr.Options{})
	_, err := store.Get(t.Context())
	require.NoError(t, err)

	var seen *cocart.Cart
	api.actionFn = func(req cart.Request) (*cocart.Cart, error) {
		seen = store.Peek()
		assert.Equal(t, cart.OpAdd, req.Action)
		c := twoLineCart()
		c.Items = append(c.Items, cocart.Item{ItemKey: "c", ID: 9, Name: "Bundle", Quantity: cocart.Quantity{Value: 2}})
		c.ItemCount = 5
		return c, nil
	}

	qty := 2
	got, err := store.Add(t.Context(), cart.Request{ProductID: 9, Quantity: &qty})
	require.NoError(t, err)

	require.NotNil(t, seen)
	require.Len(t, seen.Items, 3)
	assert.Equal(t, PlaceholderName, seen.Items[2].Name)
	assert.Equal(t, 5, seen.ItemCount)

	assert.Equal(t, "Bundle", got.Items[2].Name)
	assert.Equal(t, "Bundle", store.Peek().Items[2].Name)
}

func TestCartStore_OptimisticEdits(t *testing.T) {
	tests := []struct {
		name      string
		run       func(*CartStore) error
		wantKeys  []string
		wantCount int
	}{
		{
			name:      "update",
			run:       func(s *CartStore) error { _, err := s.Update(context.Background(), "b", 5); return err },
			wantKeys:  []string{"a", "b"},
			wantCount: 6,
		},
		{
			name:      "update to zero removes",
			run:       func(s *CartStore) error { _, err := s.Update(context.Background(), "a", 0); return err },
			wantKeys:  []string{"b"},
			wantCount: 2,
		},
		{
			name:      "remove",
			run:       func(s *CartStore) error { _, err := s.Remove(context.Background(), "b"); return err },
			wantKeys:  []string{"a"},
			wantCount: 1,
		},
		{
			name:      "clear",
			run:       func(s *CartStore) error { _, err := s.Clear(context.Background()); return err },
			wantKeys:  nil,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeCartAPI{server: twoLineCart()}
			store := NewCartStore(api, swr.Options{})
			_, err := store.Get(t.Context())
			require.NoError(t, err)

			var seen *cocart.Cart
			api.actionFn = func(cart.Request) (*cocart.Cart, error) {
				seen = store.Peek()
				return twoLineCart(), nil
			}
			require.NoError(t, tt.run(store))

			var keys []string
			for _, it := range seen.Items {
				keys = append(keys, it.ItemKey)
			}
			assert.Equal(t, tt.wantKeys, keys)
			assert.Equal(t, tt.wantCount, seen.ItemCount)
		})
	}
}

func TestCartStore_FailureRefetches(t *testing.T) {
	api := &fakeCartAPI{server: twoLineCart()}
	store := NewCartStore(api, swr.Options{})
	_, err := store.Get(t.Context())
	require.NoError(t, err)

	api.actionFn = func(cart.Request) (*cocart.Cart, error) {
		return nil, errors.New("out of stock")
	}
	_, err = store.Add(t.Context(), cart.Request{ProductID: 9})
	require.Error(t, err)

	assert.Equal(t, 2, api.fetches, "failed mutation revalidates")
	assert.Len(t, store.Peek().Items, 2, "placeholder is gone")
}

func TestCartStore_CouponHasNoOptimisticState(t *testing.T) {
	api := &fakeCartAPI{server: twoLineCart()}
	store := NewCartStore(api, swr.Options{})
	_, err := store.Get(t.Context())
	require.NoError(t, err)

	api.actionFn = func(req cart.Request) (*cocart.Cart, error) {
		assert.Empty(t, store.Peek().Coupons)
		c := twoLineCart()
		c.Coupons = []cocart.Coupon{{Coupon: req.Code}}
		return c, nil
	}
	got, err := store.ApplyCoupon(t.Context(), "EID10")
	require.NoError(t, err)
	assert.Equal(t, "EID10", got.Coupons[0].Coupon)
}

type fakeWishlistAPI struct {
	list     *wishlist.Wishlist
	requests []wishlist.Request
}

func (f *fakeWishlistAPI) Wishlist(context.Context) (*wishlist.Wishlist, error) {
	return f.list, nil
}

func (f *fakeWishlistAPI) WishlistAction(_ context.Context, req wishlist.Request) (*wishlist.Wishlist, error) {
	f.requests = append(f.requests, req)
	next := *f.list
	next.Products = append([]woocommerce.WishlistProduct(nil), f.list.Products...)
	switch req.Action {
	case wishlist.ActionAdd:
		next.Products = append(next.Products, woocommerce.WishlistProduct{ItemID: 99, ProductID: req.ProductID})
	case wishlist.ActionRemove:
		next.Products = next.Products[:0]
	}
	f.list = &next
	return f.list, nil
}

func TestWishlistStore(t *testing.T) {
	api := &fakeWishlistAPI{list: &wishlist.Wishlist{ID: 1, Products: []woocommerce.WishlistProduct{{ItemID: 1, ProductID: 10}}}}
	store := NewWishlistStore(api, swr.Options{})

	_, err := store.Get(t.Context())
	require.NoError(t, err)
	assert.True(t, store.Contains(reconcile.Product{ProductID: 10}))
	assert.False(t, store.Contains(reconcile.Product{ProductID: 20}))

	got, err := store.Add(t.Context(), reconcile.Product{ProductID: 20})
	require.NoError(t, err)
	assert.Len(t, got.Products, 2)
	assert.True(t, store.Contains(reconcile.Product{ProductID: 20}))

	_, err = store.Remove(t.Context(), reconcile.Product{ProductID: 10})
	require.NoError(t, err)
	assert.False(t, store.Contains(reconcile.Product{ProductID: 10}))

	require.Len(t, api.requests, 2)
	assert.Equal(t, wishlist.ActionAdd, api.requests[0].Action)
	assert.Equal(t, wishlist.ActionRemove, api.requests[1].Action)
}
