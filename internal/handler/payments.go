package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"storefront-proxy/internal/model"
	"storefront-proxy/internal/orders"
)

// handleRefund refunds an order through MyFatoorah.
// POST /api/myfatoorah/refund {"order_id":123,"amount":"5.000","reason":"..."} (Authorization: Bearer <secret>)
func (h *Handler) handleRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc := h.storefront(r)

	if !h.authorizedAdmin(r) {
		h.writeError(w, r, sc.Lang, model.NewUnauthenticatedError("refund"))
		return
	}

	var req orders.RefundRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}

	h.logger.InfoContext(ctx, "refunding order",
		slog.Int("order_id", req.OrderID),
		slog.String("amount", req.Amount),
	)

	res, err := h.svc.Orders.Refund(ctx, req)
	if err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}
	h.writeOK(w, res)
}

// handleRefundStatus returns the gateway status of a refund.
// GET /api/myfatoorah/refund?refund_id= (Authorization: Bearer <secret>)
func (h *Handler) handleRefundStatus(w http.ResponseWriter, r *http.Request) {
	sc := h.storefront(r)

	if !h.authorizedAdmin(r) {
		h.writeError(w, r, sc.Lang, model.NewUnauthenticatedError("refund"))
		return
	}

	status, err := h.svc.Orders.RefundStatus(r.Context(), r.URL.Query().Get("refund_id"))
	if err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}
	h.writeOK(w, status)
}

// handleSyncOrders reconciles pending orders with MyFatoorah.
// GET is a dry run; POST applies the changes.
// GET|POST /api/myfatoorah/sync-orders (Authorization: Bearer <secret>)
func (h *Handler) handleSyncOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc := h.storefront(r)

	if !h.authorizedAdmin(r) {
		h.writeError(w, r, sc.Lang, model.NewUnauthenticatedError("sync"))
		return
	}

	dryRun := r.Method == http.MethodGet
	report, err := h.svc.Orders.SyncPayments(ctx, dryRun)
	if err != nil {
		h.writeError(w, r, sc.Lang, err)
		return
	}

	h.logger.InfoContext(ctx, "payment sync finished",
		slog.Bool("dry_run", dryRun),
		slog.Int("checked", report.Checked),
		slog.Int("changed", report.Changed),
		slog.Int("failed", report.Failed),
	)
	h.writeOK(w, report)
}

// authorizedAdmin checks the bearer token of a payment route against the sync secret.
// No secret means the routes are open; config validation rejects that in production.
func (h *Handler) authorizedAdmin(r *http.Request) bool {
	if h.opts.SyncSecret == "" {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(h.opts.SyncSecret)) == 1
}
