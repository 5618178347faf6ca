package adapter

import (
	"context"

	"storefront-proxy/internal/account"
	"storefront-proxy/internal/bundle"
	"storefront-proxy/internal/cart"
	"storefront-proxy/internal/model"
	"storefront-proxy/internal/orders"
	"storefront-proxy/internal/shipping"
	"storefront-proxy/internal/wishlist"
)

// Mock implements every service interface for testing.
// Each method can be configured via function fields.
type Mock struct {
	GetCartFunc            func(ctx context.Context, sess *model.Session) (*cart.Result, error)
	CartDoFunc             func(ctx context.Context, sess *model.Session, req cart.Request) (*cart.Result, error)
	SelectShippingRateFunc func(ctx context.Context, sess *model.Session, sel cart.RateSelection) (*cart.Result, error)
	CartBundlesFunc        func(ctx context.Context, sess *model.Session, opts bundle.Options) (*cart.Result, []bundle.BreakdownView, error)

	GetWishlistFunc func(ctx context.Context, user *model.User) (*wishlist.Wishlist, error)
	WishlistDoFunc  func(ctx context.Context, user *model.User, req wishlist.Request) (any, error)

	ResolveShippingFunc func(ctx context.Context, d shipping.Destination) (*shipping.Resolution, error)

	ResetFunc func(ctx context.Context, lang string, req account.ResetRequest) (*account.ResetResult, error)

	RefundFunc       func(ctx context.Context, req orders.RefundRequest) (*orders.RefundResult, error)
	RefundStatusFunc func(ctx context.Context, refundID string) (any, error)
	SyncPaymentsFunc func(ctx context.Context, dryRun bool) (*orders.SyncReport, error)
	OrderBundlesFunc func(ctx context.Context, token string, orderID int, opts bundle.Options) ([]bundle.BreakdownView, error)
}

// Services returns m wired into every field of Services.
func (m *Mock) Services() Services {
	return Services{
		Cart:     mockCart{m},
		Wishlist: mockWishlist{m},
		Shipping: mockShipping{m},
		Account:  mockAccount{m},
		Orders:   mockOrders{m},
	}
}

type mockCart struct{ m *Mock }

// Get calls GetCartFunc or returns an empty guest cart.
func (c mockCart) Get(ctx context.Context, sess *model.Session) (*cart.Result, error) {
	if c.m.GetCartFunc != nil {
		return c.m.GetCartFunc(ctx, sess)
	}
	return &cart.Result{}, nil
}

func (c mockCart) Do(ctx context.Context, sess *model.Session, req cart.Request) (*cart.Result, error) {
	if c.m.CartDoFunc != nil {
		return c.m.CartDoFunc(ctx, sess, req)
	}
	return nil, model.NewInternalError(nil)
}

func (c mockCart) SelectShippingRate(ctx context.Context, sess *model.Session, sel cart.RateSelection) (*cart.Result, error) {
	if c.m.SelectShippingRateFunc != nil {
		return c.m.SelectShippingRateFunc(ctx, sess, sel)
	}
	return nil, model.NewInternalError(nil)
}

func (c mockCart) Bundles(ctx context.Context, sess *model.Session, opts bundle.Options) (*cart.Result, []bundle.BreakdownView, error) {
	if c.m.CartBundlesFunc != nil {
		return c.m.CartBundlesFunc(ctx, sess, opts)
	}
	return &cart.Result{}, []bundle.BreakdownView{}, nil
}

type mockWishlist struct{ m *Mock }

func (w mockWishlist) Get(ctx context.Context, user *model.User) (*wishlist.Wishlist, error) {
	if w.m.GetWishlistFunc != nil {
		return w.m.GetWishlistFunc(ctx, user)
	}
	return nil, model.NewUnauthenticatedError("wishlist")
}

func (w mockWishlist) Do(ctx context.Context, user *model.User, req wishlist.Request) (any, error) {
	if w.m.WishlistDoFunc != nil {
		return w.m.WishlistDoFunc(ctx, user, req)
	}
	return nil, model.NewUnauthenticatedError("wishlist")
}

type mockShipping struct{ m *Mock }

func (s mockShipping) Resolve(ctx context.Context, d shipping.Destination) (*shipping.Resolution, error) {
	if s.m.ResolveShippingFunc != nil {
		return s.m.ResolveShippingFunc(ctx, d)
	}
	return nil, model.NewNotFoundError("shipping_zone")
}

type mockAccount struct{ m *Mock }

func (a mockAccount) Reset(ctx context.Context, lang string, req account.ResetRequest) (*account.ResetResult, error) {
	if a.m.ResetFunc != nil {
		return a.m.ResetFunc(ctx, lang, req)
	}
	return nil, model.NewInternalError(nil)
}

type mockOrders struct{ m *Mock }

func (o mockOrders) Refund(ctx context.Context, req orders.RefundRequest) (*orders.RefundResult, error) {
	if o.m.RefundFunc != nil {
		return o.m.RefundFunc(ctx, req)
	}
	return nil, model.NewInternalError(nil)
}

func (o mockOrders) RefundStatus(ctx context.Context, refundID string) (any, error) {
	if o.m.RefundStatusFunc != nil {
		return o.m.RefundStatusFunc(ctx, refundID)
	}
	return nil, model.NewInternalError(nil)
}

func (o mockOrders) SyncPayments(ctx context.Context, dryRun bool) (*orders.SyncReport, error) {
	if o.m.SyncPaymentsFunc != nil {
		return o.m.SyncPaymentsFunc(ctx, dryRun)
	}
	return &orders.SyncReport{DryRun: dryRun, Changes: []orders.SyncChange{}}, nil
}

func (o mockOrders) Bundles(ctx context.Context, token string, orderID int, opts bundle.Options) ([]bundle.BreakdownView, error) {
	if o.m.OrderBundlesFunc != nil {
		return o.m.OrderBundlesFunc(ctx, token, orderID, opts)
	}
	return nil, model.NewNotFoundError("order")
}
