package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"storefront-proxy/internal/bundle"
	"storefront-proxy/internal/cart"
	"storefront-proxy/internal/cocart"
	"storefront-proxy/internal/model"
)

// handleGetCart returns the session cart.
// GET /api/cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	sc := h.storefront(r)

	res, err := h.svc.Cart.Get(r.Context(), sc.Session)
	if err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}
	h.writeCart(w, res)
}

// handleCartAction applies one cart mutation.
// POST /api/cart {"action":"add","product_id":12,"quantity":1,...}
func (h *Handler) handleCartAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc := h.storefront(r)

	var req cart.Request
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}

	h.logger.InfoContext(ctx, "cart action",
		slog.String("action", req.Action),
		slog.Bool("has_token", sc.Session.HasToken()),
		slog.Bool("has_cart_key", sc.Session.HasCartKey()),
	)

	res, err := h.svc.Cart.Do(ctx, sc.Session, req)
	if err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}
	h.writeCart(w, res)
}

// writeCart refreshes the cart cookie and writes the cart as data.
func (h *Handler) writeCart(w http.ResponseWriter, res *cart.Result) {
	if res == nil {
		res = &cart.Result{}
	}
	h.setCartCookie(w, res.CartKey)
	if res.Cart == nil {
		h.writeOK(w, &cocart.Cart{Items: []cocart.Item{}, Coupons: []cocart.Coupon{}})
		return
	}
	h.writeOK(w, res.Cart)
}

type bundlesResponse struct {
	Cart    *cocart.Cart           `json:"cart,omitempty"`
	OrderID int                    `json:"order_id,omitempty"`
	Bundles []bundle.BreakdownView `json:"bundles"`
}

// handleCartBundles returns the price breakdown of every bundle line in the cart.
// GET /api/cart/bundles
func (h *Handler) handleCartBundles(w http.ResponseWriter, r *http.Request) {
	sc := h.storefront(r)

	res, views, err := h.svc.Cart.Bundles(r.Context(), sc.Session, h.bundleOptions(sc.Lang))
	if err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}
	if views == nil {
		views = []bundle.BreakdownView{}
	}

	out := bundlesResponse{Bundles: views}
	if res != nil {
		h.setCartCookie(w, res.CartKey)
		out.Cart = res.Cart
	}
	h.writeOK(w, out)
}

// handleOrderBundles returns the bundle breakdowns of a customer's order.
// The asl_auth_token cookie identifies the customer.
// GET /api/orders/{id}/bundles
func (h *Handler) handleOrderBundles(w http.ResponseWriter, r *http.Request) {
	sc := h.storefront(r)

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		h.writeError(w, r, sc.Lang, model.NewInvalidFieldError("order_id", "must be a positive integer"))
		return
	}

	views, err := h.svc.Orders.Bundles(r.Context(), sc.Session.Token, id, h.bundleOptions(sc.Lang))
	if err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}
	if views == nil {
		views = []bundle.BreakdownView{}
	}
	h.writeOK(w, bundlesResponse{OrderID: id, Bundles: views})
}
