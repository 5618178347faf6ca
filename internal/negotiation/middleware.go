package negotiation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"storefront-proxy/internal/i18n"
	"storefront-proxy/internal/model"
)

// Config tunes the middleware.
type Config struct {
	// MinClientVersion rejects older native apps with 426. Empty disables the check.
	MinClientVersion string
	// DefaultCurrency applies when neither the header nor the cookie names one.
	DefaultCurrency string
}

// Middleware resolves the storefront Context of every request and stores it
// in the request context. A malformed Storefront-Context header is logged and
// ignored; an outdated app is rejected with 426 Upgrade Required.
func Middleware(cfg Config, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			c := Resolve(r, cfg, logger)

			if err := CheckVersion(cfg.MinClientVersion, c.App); err != nil {
				var verErr *VersionError
				if errors.As(err, &verErr) {
					logger.Info("client outdated",
						slog.String("app", c.App),
						slog.String("platform", c.Platform),
						slog.String("min", cfg.MinClientVersion))
					writeError(w, http.StatusUpgradeRequired, verErr.Code,
						i18n.T(c.Lang, verErr.Code, verErr.Message))
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), c)))
		})
	}
}

// Resolve builds the Context of r. Preference order for the language is
// the Storefront-Context header, then Accept-Language; for the currency it is
// the header, then the wcml_currency cookie, then cfg.DefaultCurrency.
func Resolve(r *http.Request, cfg Config, logger *slog.Logger) *Context {
	var prefs Preferences
	if h := r.Header.Get(ContextHeader); h != "" {
		p, err := ParseContextHeader(h)
		if err != nil {
			logger.Warn("invalid Storefront-Context header",
				slog.String("header", h),
				slog.String("error", err.Error()))
		} else {
			prefs = p
		}
	}

	c := &Context{
		App:      prefs.App,
		Platform: prefs.Platform,
		Currency: prefs.Currency,
	}

	if prefs.Lang != "" {
		c.Lang = i18n.Match(prefs.Lang)
	} else {
		c.Lang = i18n.Match(r.Header.Get("Accept-Language"))
	}

	if c.Currency == "" {
		c.Currency = strings.ToUpper(cookieValue(r, model.CookieCurrency))
	}
	if c.Currency == "" {
		c.Currency = cfg.DefaultCurrency
	}

	c.Session = &model.Session{
		CartKey:  cookieValue(r, model.CookieCartKey),
		Token:    cookieValue(r, model.CookieToken),
		Currency: c.Currency,
		Lang:     c.Lang,
		User:     model.ParseUserCookie(cookieValue(r, model.CookieUser)),
	}
	return c
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}

// isExemptPath returns true for infrastructure endpoints.
func isExemptPath(path string) bool {
	switch path {
	case "/health", "/healthz", "/metrics":
		return true
	default:
		return false
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.Fail(code, message))
}
