// Package storefront is a typed client for the proxy's /api surface, with
// cookie-backed sessions and swr-cached cart and wishlist stores.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"storefront-proxy/internal/cart"
	"storefront-proxy/internal/cocart"
	"storefront-proxy/internal/model"
	"storefront-proxy/internal/negotiation"
	"storefront-proxy/internal/reconcile"
	"storefront-proxy/internal/wishlist"
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client // a cookie jar is attached when it has none
	Lang       string
	Currency   string
	AppVersion string
	Platform   string
	Logger     *slog.Logger
}

// Client calls the storefront proxy.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	context string
	lang    string
	logger  *slog.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		copied := *hc
		copied.Jar = jar
		hc = &copied
	}

	header, err := negotiation.FormatContextHeader(negotiation.Preferences{
		Currency: cfg.Currency,
		Lang:     cfg.Lang,
		App:      cfg.AppVersion,
		Platform: cfg.Platform,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding storefront context: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: base, http: hc, context: header, lang: cfg.Lang, logger: logger}, nil
}

// SetCookie stores a session cookie for the proxy origin, e.g. the auth token.
func (c *Client) SetCookie(name, value string) {
	c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

// Cookie returns a cookie the proxy set, or "".
func (c *Client) Cookie(name string) string {
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// Cart fetches the current cart.
func (c *Client) Cart(ctx context.Context) (*cocart.Cart, error) {
	var out cocart.Cart
	if err := c.do(ctx, http.MethodGet, "/api/cart", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CartAction posts a cart mutation and returns the updated cart.
func (c *Client) CartAction(ctx context.Context, req cart.Request) (*cocart.Cart, error) {
	var out cocart.Cart
	if err := c.do(ctx, http.MethodPost, "/api/cart", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Wishlist fetches the signed-in customer's wishlist.
func (c *Client) Wishlist(ctx context.Context) (*wishlist.Wishlist, error) {
	var out wishlist.Wishlist
	if err := c.do(ctx, http.MethodGet, "/api/wishlist", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WishlistAction posts an add or remove and returns the updated list.
func (c *Client) WishlistAction(ctx context.Context, req wishlist.Request) (*wishlist.Wishlist, error) {
	if req.Action == wishlist.ActionSync {
		res, err := c.SyncWishlist(ctx, req.Products)
		if err != nil {
			return nil, err
		}
		return res.Wishlist, nil
	}
	var out wishlist.Wishlist
	if err := c.do(ctx, http.MethodPost, "/api/wishlist", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SyncWishlist merges a guest list into the account list.
func (c *Client) SyncWishlist(ctx context.Context, products []reconcile.Product) (*wishlist.SyncResult, error) {
	var out wishlist.SyncResult
	body := wishlist.Request{Action: wishlist.ActionSync, Products: products}
	if err := c.do(ctx, http.MethodPost, "/api/wishlist", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// envelope mirrors model.Envelope with the data left raw.
type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *model.ErrorBody `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.context != "" {
		req.Header.Set(negotiation.ContextHeader, c.context)
	}
	if c.lang != "" {
		req.Header.Set("Accept-Language", c.lang)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return model.NewNetworkError("storefront", err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "storefront call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewNetworkError("storefront", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &model.APIError{
			Code:       "storefront_error",
			Message:    fmt.Sprintf("unexpected response (HTTP %d)", resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}
	if !env.Success {
		apiErr := &model.APIError{Code: "storefront_error", Message: "request failed", StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding %s data: %w", path, err)
	}
	return nil
}
