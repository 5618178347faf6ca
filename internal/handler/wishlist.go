package handler

import (
	"log/slog"
	"net/http"

	"storefront-proxy/internal/account"
	"storefront-proxy/internal/wishlist"
)

// handleGetWishlist returns the signed-in customer's wishlist.
// GET /api/wishlist
func (h *Handler) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	sc := h.storefront(r)

	list, err := h.svc.Wishlist.Get(r.Context(), sc.Session.User)
	if err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}
	h.writeOK(w, list)
}

// handleWishlistAction adds, removes or syncs wishlist products.
// POST /api/wishlist {"action":"add","product_id":12}
func (h *Handler) handleWishlistAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc := h.storefront(r)

	var req wishlist.Request
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}

	h.logger.InfoContext(ctx, "wishlist action",
		slog.String("action", req.Action),
		slog.Int("products", len(req.Products)),
	)

	out, err := h.svc.Wishlist.Do(ctx, sc.Session.User, req)
	if err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}
	h.writeOK(w, out)
}

// handleResetPassword runs one step of the password reset flow.
// POST /api/auth/reset-password {"email":"..."} or {"email","code","password"}
func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	sc := h.storefront(r)

	var req account.ResetRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}

	res, err := h.svc.Account.Reset(r.Context(), sc.Lang, req)
	if err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}
	h.writeOK(w, res)
}
