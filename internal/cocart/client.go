package cocart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// basePath is the CoCart v2 REST namespace. Must include /wp-json.
const basePath = "/wp-json/cocart/v2"

// CartKeyHeader carries the guest session key on CoCart responses.
const CartKeyHeader = "CoCart-API-Cart-Key"

// userAgent identifies this client upstream; some WordPress WAFs reject requests without one.
const userAgent = "Storefront-Proxy/1.0"

// Config holds CoCart client configuration.
type Config struct {
	StoreURL   string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the CoCart v2 cart endpoints.
type Client struct {
	httpClient *http.Client
	storeURL   string
	logger     *slog.Logger
}

// New creates a CoCart client.
func New(cfg Config) (*Client, error) {
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		storeURL:   strings.TrimSuffix(cfg.StoreURL, "/"),
		logger:     logger,
	}, nil
}

// Identity selects the upstream path for one call.
// A non-empty Token uses the authenticated path; otherwise CartKey keys the guest session.
type Identity struct {
	Token    string
	CartKey  string
	Currency string
}

// Guest returns the same identity without the bearer token.
func (id Identity) Guest() Identity {
	id.Token = ""
	return id
}

// Result is a cart plus the session key CoCart reported for it.
type Result struct {
	Cart    *Cart
	CartKey string
}

// GetCart fetches the current cart.
func (c *Client) GetCart(ctx context.Context, id Identity) (*Result, error) {
	return c.do(ctx, http.MethodGet, "/cart", id, nil)
}

// AddItem adds a product. VariationID, when set, is sent as the product id.
func (c *Client) AddItem(ctx context.Context, id Identity, req AddItemRequest) (*Result, error) {
	productID := req.ProductID
	if req.VariationID > 0 {
		productID = req.VariationID
	}
	body := addItemBody{
		ID:        strconv.Itoa(productID),
		Quantity:  strconv.Itoa(req.Quantity),
		Variation: req.Variation,
		ItemData:  req.ItemData,
	}
	return c.do(ctx, http.MethodPost, "/cart/add-item", id, body)
}

// UpdateItem sets the quantity of a line.
func (c *Client) UpdateItem(ctx context.Context, id Identity, itemKey string, quantity int) (*Result, error) {
	body := map[string]string{"quantity": strconv.Itoa(quantity)}
	return c.do(ctx, http.MethodPost, "/cart/item/"+url.PathEscape(itemKey), id, body)
}

// RemoveItem deletes a line.
func (c *Client) RemoveItem(ctx context.Context, id Identity, itemKey string) (*Result, error) {
	return c.do(ctx, http.MethodDelete, "/cart/item/"+url.PathEscape(itemKey), id, nil)
}

// Clear empties the cart.
func (c *Client) Clear(ctx context.Context, id Identity) (*Result, error) {
	return c.do(ctx, http.MethodPost, "/cart/clear", id, nil)
}

func (c *Client) buildURL(path string, id Identity) string {
	q := url.Values{}
	if id.Token == "" && id.CartKey != "" {
		q.Set("cart_key", id.CartKey)
	}
	if id.Currency != "" {
		q.Set("currency", id.Currency)
	}

	u := c.storeURL + basePath + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, method, path string, id Identity, body any) (*Result, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, id), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id.Token != "" {
		req.Header.Set("Authorization", "Bearer "+id.Token)
	}

	c.logger.DebugContext(ctx, "cocart request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Bool("authenticated", id.Token != ""),
		slog.Bool("has_cart_key", id.CartKey != ""),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode >= 400 {
		return nil, parseErrorResponse(resp.StatusCode, respBody)
	}

	var cart Cart
	if err := json.Unmarshal(respBody, &cart); err != nil {
		return nil, fmt.Errorf("parsing cart response: %w", err)
	}

	key := resp.Header.Get(CartKeyHeader)
	if key == "" {
		key = cart.CartKey
	}
	if key == "" && id.Token == "" {
		key = id.CartKey
	}

	return &Result{Cart: &cart, CartKey: key}, nil
}

// parseErrorResponse converts a CoCart error body into a StatusError.
func parseErrorResponse(status int, body []byte) error {
	var wpErr errorResponse
	json.Unmarshal(body, &wpErr) // Best effort parse

	msg := wpErr.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &StatusError{Status: status, Code: wpErr.Code, Message: msg}
}
