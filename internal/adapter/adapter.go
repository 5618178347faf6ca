// Package adapter defines the service interfaces the HTTP and MCP handlers
// depend on. Each domain package provides the implementation; Mock stands in
// for all of them in handler tests.
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

// Cart proxies cart reads and mutations for one session.
// Every method may fall back to the guest path when the bearer token is
// rejected; Result.CartKey is the key to persist in the cart cookie.
type Cart interface {
	Get(ctx context.Context, sess *model.Session) (*cart.Result, error)
	Do(ctx context.Context, sess *model.Session, req cart.Request) (*cart.Result, error)
	SelectShippingRate(ctx context.Context, sess *model.Session, sel cart.RateSelection) (*cart.Result, error)
	Bundles(ctx context.Context, sess *model.Session, opts bundle.Options) (*cart.Result, []bundle.BreakdownView, error)
}

// Wishlist serves the signed-in customer's wishlist.
type Wishlist interface {
	Get(ctx context.Context, user *model.User) (*wishlist.Wishlist, error)
	Do(ctx context.Context, user *model.User, req wishlist.Request) (any, error)
}

// Shipping resolves the zone and rates for a destination.
type Shipping interface {
	Resolve(ctx context.Context, d shipping.Destination) (*shipping.Resolution, error)
}

// Account runs the password reset flow.
type Account interface {
	Reset(ctx context.Context, lang string, req account.ResetRequest) (*account.ResetResult, error)
}

// Orders runs refunds, payment sync and order bundle breakdowns.
// Gateway operations fail with payments_unavailable when MyFatoorah is not configured.
type Orders interface {
	Refund(ctx context.Context, req orders.RefundRequest) (*orders.RefundResult, error)
	RefundStatus(ctx context.Context, refundID string) (any, error)
	SyncPayments(ctx context.Context, dryRun bool) (*orders.SyncReport, error)
	Bundles(ctx context.Context, token string, orderID int, opts bundle.Options) ([]bundle.BreakdownView, error)
}

// Services bundles the implementations served by the handler.
type Services struct {
	Cart     Cart
	Wishlist Wishlist
	Shipping Shipping
	Account  Account
	Orders   Orders
}

var (
	_ Cart     = (*cart.Service)(nil)
	_ Wishlist = (*wishlist.Service)(nil)
	_ Shipping = (*shipping.Service)(nil)
	_ Account  = (*account.Service)(nil)
	_ Orders   = (*orders.Service)(nil)
)
