package handler

import (
	"log/slog"
	"net/http"

	"storefront-proxy/internal/cart"
	"storefront-proxy/internal/model"
	"storefront-proxy/internal/shipping"
)

// handleResolveShipping resolves the zone and rates for a destination.
// GET /api/shipping?country=KW&state=KW-AH&postcode=
func (h *Handler) handleResolveShipping(w http.ResponseWriter, r *http.Request) {
	sc := h.storefront(r)
	q := r.URL.Query()

	d := shipping.Destination{
		Country:  q.Get("country"),
		State:    q.Get("state"),
		Postcode: q.Get("postcode"),
	}
	if d.Country == "" {
		h.writeError(w, r, sc.Lang, model.NewMissingFieldError("country"))
		return
	}

	res, err := h.svc.Shipping.Resolve(r.Context(), d)
	if err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}
	h.writeOK(w, res)
}

// handleSelectShippingRate selects a rate on the session cart.
// POST /api/shipping {"package_id":0,"rate_id":"flat_rate:3","address":{...}}
func (h *Handler) handleSelectShippingRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc := h.storefront(r)

	var sel cart.RateSelection
	if err := decodeJSON(r, &sel); err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}

	h.logger.InfoContext(ctx, "selecting shipping rate",
		slog.String("rate_id", sel.RateID),
		slog.Int("package_id", sel.PackageID),
	)

	res, err := h.svc.Cart.SelectShippingRate(ctx, sc.Session, sel)
	if err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}
	h.writeCart(w, res)
}
