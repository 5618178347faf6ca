// Package negotiation resolves the storefront context of a request: the
// display language and currency, the client app version and the cookie
// session. REST requests get it from middleware; MCP tools pass their
// session fields explicitly.
package negotiation

import (
	"context"

	"storefront-proxy/internal/model"
)

// Context is the negotiated per-request storefront context.
type Context struct {
	Lang     string
	Currency string
	// App is the native client version from Storefront-Context, empty for web.
	App      string
	Platform string
	Session  *model.Session
}

type contextKey string

// ContextKey is the request context key holding *Context.
const ContextKey contextKey = "storefront.context"

// ClientOutdated is the error code returned when the app is below the minimum version.
const ClientOutdated = "client_outdated"

// FromContext returns the negotiated context, or nil when none was stored.
func FromContext(ctx context.Context) *Context {
	c, _ := ctx.Value(ContextKey).(*Context)
	return c
}

// WithContext stores c in ctx.
func WithContext(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, ContextKey, c)
}
