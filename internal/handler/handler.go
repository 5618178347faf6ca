// Package handler provides the HTTP and MCP surface of the storefront proxy.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"storefront-proxy/internal/adapter"
	"storefront-proxy/internal/bundle"
	"storefront-proxy/internal/i18n"
	"storefront-proxy/internal/model"
	"storefront-proxy/internal/negotiation"
)

// CartCookieMaxAge is the lifetime of the cocart_cart_key cookie.
const CartCookieMaxAge = 7 * 24 * time.Hour

// MaxRequestBodySize limits JSON request bodies to 1MB.
const MaxRequestBodySize = 1 << 20

// Options configures a Handler.
type Options struct {
	// SyncSecret guards /api/myfatoorah/sync-orders. Empty disables the check.
	SyncSecret string
	// Places is the number of decimals amounts are rendered with.
	Places int
	// Negotiation resolves the storefront context for requests that did not
	// go through negotiation.Middleware.
	Negotiation negotiation.Config
	// SecureCookies marks the cart cookie Secure.
	SecureCookies bool
	Logger        *slog.Logger
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	svc    adapter.Services
	opts   Options
	logger *slog.Logger
}

// New creates a Handler serving svc.
func New(svc adapter.Services, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Places <= 0 {
		opts.Places = 3
	}
	return &Handler{svc: svc, opts: opts, logger: opts.Logger}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cart", h.handleGetCart)
	mux.HandleFunc("POST /api/cart", h.handleCartAction)
	mux.HandleFunc("GET /api/cart/bundles", h.handleCartBundles)
	mux.HandleFunc("GET /api/orders/{id}/bundles", h.handleOrderBundles)

	mux.HandleFunc("GET /api/wishlist", h.handleGetWishlist)
	mux.HandleFunc("POST /api/wishlist", h.handleWishlistAction)

	mux.HandleFunc("GET /api/shipping", h.handleResolveShipping)
	mux.HandleFunc("POST /api/shipping", h.handleSelectShippingRate)

	mux.HandleFunc("POST /api/auth/reset-password", h.handleResetPassword)

	mux.HandleFunc("GET /api/myfatoorah/refund", h.handleRefundStatus)
	mux.HandleFunc("POST /api/myfatoorah/refund", h.handleRefund)
	mux.HandleFunc("GET /api/myfatoorah/sync-orders", h.handleSyncOrders)
	mux.HandleFunc("POST /api/myfatoorah/sync-orders", h.handleSyncOrders)

	mux.Handle("/mcp", h.NewMCPHandler())

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// storefront returns the negotiated context of r, resolving it on the spot
// when the middleware did not run.
func (h *Handler) storefront(r *http.Request) *negotiation.Context {
	if c := negotiation.FromContext(r.Context()); c != nil && c.Session != nil {
		return c
	}
	return negotiation.Resolve(r, h.opts.Negotiation, h.logger)
}

func (h *Handler) bundleOptions(lang string) bundle.Options {
	return bundle.Options{Lang: lang, Places: h.opts.Places}
}

// setCartCookie persists the cart key returned by CoCart.
func (h *Handler) setCartCookie(w http.ResponseWriter, key string) {
	if key == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     model.CookieCartKey,
		Value:    key,
		Path:     "/",
		MaxAge:   int(CartCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// === Response Helpers ===

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeOK(w http.ResponseWriter, data any) {
	h.writeJSON(w, http.StatusOK, model.OK(data))
}

// writeError sends a failed envelope. The status comes from the APIError in
// the chain; the message is localized when the catalog knows the code.
// Unexpected errors are logged and reported as internal_error.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, lang string, err error) {
	apiErr, ok := model.AsAPIError(err)
	if !ok || apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	msg := i18n.T(lang, apiErr.Code, apiErr.Message)
	h.writeJSON(w, apiErr.StatusCode, model.Fail(apiErr.Code, msg))
}

// decodeJSON reads JSON from request body into v.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.NewInvalidFieldError("body", "invalid JSON")
	}
	return nil
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}
