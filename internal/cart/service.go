// Package cart is the cart mutation proxy. It hides the two upstream cart
// APIs (CoCart for cart CRUD, the Store API for coupons and shipping rates)
// and their differing authentication behind one session model.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"storefront-proxy/internal/bundle"
	"storefront-proxy/internal/cocart"
	"storefront-proxy/internal/metrics"
	"storefront-proxy/internal/model"
	"storefront-proxy/internal/storage"
	"storefront-proxy/internal/woocommerce"
)

// Operation names, used for metrics and logs. They double as POST actions.
const (
	OpGet          = "get"
	OpAdd          = "add"
	OpUpdate       = "update"
	OpRemove       = "remove"
	OpClear        = "clear"
	OpApplyCoupon  = "apply-coupon"
	OpRemoveCoupon = "remove-coupon"
	OpSelectRate   = "select-shipping-rate"
)

// Carts is the CoCart surface used by the service.
type Carts interface {
	GetCart(ctx context.Context, id cocart.Identity) (*cocart.Result, error)
	AddItem(ctx context.Context, id cocart.Identity, req cocart.AddItemRequest) (*cocart.Result, error)
	UpdateItem(ctx context.Context, id cocart.Identity, itemKey string, quantity int) (*cocart.Result, error)
	RemoveItem(ctx context.Context, id cocart.Identity, itemKey string) (*cocart.Result, error)
	Clear(ctx context.Context, id cocart.Identity) (*cocart.Result, error)
}

// StoreAPI is the WooCommerce Store API surface used for coupons and shipping rates.
type StoreAPI interface {
	ApplyCoupon(ctx context.Context, sess woocommerce.StoreSession, code string) (*woocommerce.WooCartResponse, error)
	RemoveCoupon(ctx context.Context, sess woocommerce.StoreSession, code string) (*woocommerce.WooCartResponse, error)
	SelectShippingRate(ctx context.Context, sess woocommerce.StoreSession, packageID int, rateID string, shipping *woocommerce.WooAddress) (*woocommerce.WooCartResponse, error)
}

// Config wires a Service.
type Config struct {
	Carts   Carts
	Store   StoreAPI
	Bundles storage.Store // optional bundle fallback store
	Logger  *slog.Logger
	Now     func() time.Time // defaults to time.Now
}

// Service proxies cart operations for one request session at a time.
// It keeps no per-session state.
type Service struct {
	carts   Carts
	store   StoreAPI
	bundles storage.Store
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a cart service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		carts:   cfg.Carts,
		store:   cfg.Store,
		bundles: cfg.Bundles,
		logger:  logger,
		now:     now,
	}
}

// Result is a cart plus the session key to persist in the cart cookie.
type Result struct {
	Cart    *cocart.Cart
	CartKey string
	// Guest is true when the call was served on the guest path although the
	// session carried a bearer token.
	Guest bool
}

// Get returns the session's cart.
func (s *Service) Get(ctx context.Context, sess *model.Session) (*Result, error) {
	return s.run(ctx, OpGet, sess, func(id cocart.Identity) (*cocart.Result, error) {
		return s.carts.GetCart(ctx, id)
	})
}

// Update sets the quantity of a line. A quantity of 0 removes it.
func (s *Service) Update(ctx context.Context, sess *model.Session, itemKey string, quantity int) (*Result, error) {
	if itemKey == "" {
		return nil, model.NewMissingFieldError("item_key")
	}
	if quantity < 0 {
		return nil, model.NewInvalidFieldError("quantity", "must not be negative")
	}
	if quantity == 0 {
		return s.Remove(ctx, sess, itemKey)
	}
	return s.run(ctx, OpUpdate, sess, func(id cocart.Identity) (*cocart.Result, error) {
		return s.carts.UpdateItem(ctx, id, itemKey, quantity)
	})
}

// Remove deletes a line and its bundle fallback record.
func (s *Service) Remove(ctx context.Context, sess *model.Session, itemKey string) (*Result, error) {
	if itemKey == "" {
		return nil, model.NewMissingFieldError("item_key")
	}
	res, err := s.run(ctx, OpRemove, sess, func(id cocart.Identity) (*cocart.Result, error) {
		return s.carts.RemoveItem(ctx, id, itemKey)
	})
	if err != nil {
		return nil, err
	}
	s.forgetBundle(ctx, itemKey)
	return res, nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, sess *model.Session) (*Result, error) {
	return s.run(ctx, OpClear, sess, func(id cocart.Identity) (*cocart.Result, error) {
		return s.carts.Clear(ctx, id)
	})
}

// ApplyCoupon applies a coupon through the Store API and returns the re-fetched CoCart cart.
func (s *Service) ApplyCoupon(ctx context.Context, sess *model.Session, code string) (*Result, error) {
	if code == "" {
		return nil, model.NewMissingFieldError("coupon_code")
	}
	return s.viaStoreAPI(ctx, OpApplyCoupon, sess, func(ss woocommerce.StoreSession) error {
		_, err := s.store.ApplyCoupon(ctx, ss, code)
		return err
	})
}

// RemoveCoupon removes a coupon through the Store API and returns the re-fetched CoCart cart.
func (s *Service) RemoveCoupon(ctx context.Context, sess *model.Session, code string) (*Result, error) {
	if code == "" {
		return nil, model.NewMissingFieldError("coupon_code")
	}
	return s.viaStoreAPI(ctx, OpRemoveCoupon, sess, func(ss woocommerce.StoreSession) error {
		_, err := s.store.RemoveCoupon(ctx, ss, code)
		return err
	})
}

// RateSelection picks a shipping rate for one package.
type RateSelection struct {
	PackageID int                     `json:"package_id"`
	RateID    string                  `json:"rate_id"`
	Address   *woocommerce.WooAddress `json:"address,omitempty"`
}

// SelectShippingRate selects a rate through the Store API and returns the re-fetched CoCart cart.
func (s *Service) SelectShippingRate(ctx context.Context, sess *model.Session, sel RateSelection) (*Result, error) {
	if sel.RateID == "" {
		return nil, model.NewMissingFieldError("rate_id")
	}
	return s.viaStoreAPI(ctx, OpSelectRate, sess, func(ss woocommerce.StoreSession) error {
		_, err := s.store.SelectShippingRate(ctx, ss, sel.PackageID, sel.RateID, sel.Address)
		return err
	})
}

// viaStoreAPI runs a Store API mutation and then reads the cart back from
// CoCart with the identity that served the mutation, so callers always see
// the CoCart shape. Only the mutation may fall back to the guest session;
// a failed read-back is reported as is so the mutation is never replayed on
// another cart.
func (s *Service) viaStoreAPI(ctx context.Context, op string, sess *model.Session, mutate func(woocommerce.StoreSession) error) (*Result, error) {
	id, guest, err := s.authorize(ctx, op, sess, func(id cocart.Identity) error {
		return mutate(woocommerce.StoreSession{Token: id.Token, CartKey: id.CartKey, Currency: id.Currency})
	})
	if err == nil {
		var res *cocart.Result
		if res, err = s.carts.GetCart(ctx, id); err == nil {
			metrics.RecordOperation("cart_"+op, true)
			return newResult(res, id, guest), nil
		}
	}
	metrics.RecordOperation("cart_"+op, false)
	return nil, upstreamError(err)
}

// run executes a CoCart call under the session's identity.
func (s *Service) run(ctx context.Context, op string, sess *model.Session, call func(cocart.Identity) (*cocart.Result, error)) (*Result, error) {
	var res *cocart.Result
	id, guest, err := s.authorize(ctx, op, sess, func(id cocart.Identity) error {
		var err error
		res, err = call(id)
		return err
	})
	metrics.RecordOperation("cart_"+op, err == nil)
	if err != nil {
		return nil, upstreamError(err)
	}
	return newResult(res, id, guest), nil
}

// authorize runs call on the authenticated path when the session has a usable
// token and silently retries on the guest path when upstream rejects it.
// It returns the identity that served the call.
func (s *Service) authorize(ctx context.Context, op string, sess *model.Session, call func(cocart.Identity) error) (cocart.Identity, bool, error) {
	id := identityFor(sess)
	guest := false

	if id.Token != "" && tokenExpired(id.Token, s.now()) {
		s.fallback(ctx, op, "expired_token")
		id = id.Guest()
		guest = true
	}

	err := call(id)
	if err != nil && id.Token != "" && isAuthError(err) && canRetryAsGuest(op, id) {
		s.fallback(ctx, op, "rejected_token")
		id = id.Guest()
		guest = true
		err = call(id)
	}
	return id, guest, err
}

func newResult(res *cocart.Result, id cocart.Identity, guest bool) *Result {
	key := res.CartKey
	if key == "" && guest {
		key = id.CartKey
	}
	return &Result{Cart: res.Cart, CartKey: key, Guest: guest}
}

func (s *Service) fallback(ctx context.Context, op, reason string) {
	metrics.RecordCartFallback(op, reason)
	s.logger.InfoContext(ctx, "cart falling back to guest session",
		slog.String("operation", op),
		slog.String("reason", reason),
	)
}

func identityFor(sess *model.Session) cocart.Identity {
	if sess == nil {
		return cocart.Identity{}
	}
	return cocart.Identity{Token: sess.Token, CartKey: sess.CartKey, Currency: sess.Currency}
}

// canRetryAsGuest reports whether a guest call can serve op: either a guest
// cart exists, or the operation creates one.
func canRetryAsGuest(op string, id cocart.Identity) bool {
	return id.CartKey != "" || op == OpAdd
}

// isAuthError applies the same credential test to both upstreams.
func isAuthError(err error) bool {
	return cocart.IsAuthError(err) || model.IsCredentialRejection(err)
}

// upstreamError converts client errors into the response taxonomy.
func upstreamError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var netErr *cocart.NetworkError
	if errors.As(err, &netErr) {
		return model.NewNetworkError("CoCart", netErr.Err)
	}

	var se *cocart.StatusError
	if errors.As(err, &se) {
		if cocart.IsAuthError(se) {
			return model.NewUpstreamUnauthorizedError("cart", se.Status, se.Code, se.Message)
		}
		return model.NewUpstreamError("cart", se.Status, se.Code, se.Message)
	}

	return model.NewInternalError(err)
}

// Sources adapts the lines of a CoCart cart for bundle reconciliation.
func Sources(c *cocart.Cart) []bundle.Source {
	if c == nil {
		return nil
	}
	sources := make([]bundle.Source, 0, len(c.Items))
	for _, it := range c.Items {
		sources = append(sources, bundle.CartLine{
			ItemKey: it.ItemKey,
			Qty:     it.Quantity.Value,
			Total:   model.ParseAmount(string(it.Totals.Total)),
			Data:    it.CartItemData,
		})
	}
	return sources
}

// Bundles returns the cart and the price breakdown of each bundle line.
func (s *Service) Bundles(ctx context.Context, sess *model.Session, opts bundle.Options) (*Result, []bundle.BreakdownView, error) {
	res, err := s.Get(ctx, sess)
	if err != nil {
		return nil, nil, err
	}
	e := bundle.Extractor{Logger: s.logger}
	if s.bundles != nil {
		e.Store = s.bundles
	}
	return res, bundle.Lines(ctx, e, Sources(res.Cart), opts), nil
}
