package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront-proxy/internal/model"
)

// Base paths. Must include the /wp-json prefix for proper routing.
const (
	storeAPIPath = "/wp-json/wc/store/v1"
	restAPIPath  = "/wp-json/wc/v3"
)

// userAgent identifies this client to upstream servers.
// Required: WooCommerce CDN/WAF rate-limits requests without User-Agent.
const userAgent = "Storefront-Proxy/1.0"

// BatchStrategy controls how batch operations are executed.
type BatchStrategy string

const (
	// BatchStrategyMulti uses the /batch endpoint with per-operation headers.
	BatchStrategyMulti BatchStrategy = "multi"

	// BatchStrategySequential executes operations one by one with nonce chaining.
	// Slower (N HTTP calls) but useful as fallback if batch endpoint has issues.
	BatchStrategySequential BatchStrategy = "sequential"
)

// Config holds WooCommerce client configuration.
type Config struct {
	StoreURL      string
	APIKey        string // REST v3 consumer key
	APISecret     string // REST v3 consumer secret
	BatchStrategy BatchStrategy
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Client talks to the Store API and the REST v3 API of one store.
type Client struct {
	httpClient    *http.Client
	storeURL      string
	apiKey        string
	apiSecret     string
	batchStrategy BatchStrategy
	logger        *slog.Logger
}

// New creates a WooCommerce client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("API credentials are required")
	}

	strategy := cfg.BatchStrategy
	if strategy == "" {
		strategy = BatchStrategyMulti
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
		httpClient:    httpClient,
		storeURL:      strings.TrimSuffix(cfg.StoreURL, "/"),
		apiKey:        cfg.APIKey,
		apiSecret:     cfg.APISecret,
		batchStrategy: strategy,
		logger:        logger,
	}, nil
}

// wpRequest describes one call to a /wp-json endpoint.
type wpRequest struct {
	method    string
	path      string // full path including /wp-json
	query     url.Values
	body      any
	basicAuth bool
	bearer    string // customer token, sent instead of the consumer key
	scope     string // error code scope: "order", "shipping", "wishlist", ...
}

// doJSON executes a WordPress REST call and decodes a 2xx body into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, r wpRequest, out any) error {
	var bodyReader io.Reader
	if r.body != nil {
		jsonBody, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	u := c.storeURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case r.bearer != "":
		req.Header.Set("Authorization", "Bearer "+r.bearer)
	case r.basicAuth:
		req.SetBasicAuth(c.apiKey, c.apiSecret)
	}

	c.logger.DebugContext(ctx, "woocommerce request",
		slog.String("method", r.method),
		slog.String("path", r.path),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewNetworkError("WooCommerce", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewNetworkError("WooCommerce", fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(r.scope, resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing %s response: %w", r.scope, err)
	}
	return nil
}

// parseErrorResponse converts a WordPress error body to an APIError.
// The upstream status is mirrored and the upstream message passed through.
func parseErrorResponse(scope string, statusCode int, body []byte) error {
	var wcErr WooErrorResponse
	json.Unmarshal(body, &wcErr) // Best effort parse

	switch {
	case model.BlamesCredentials(statusCode, wcErr.Code, wcErr.Message):
		return model.NewUpstreamUnauthorizedError(scope, statusCode, wcErr.Code, stripTags(wcErr.Message))
	case statusCode == http.StatusNotFound:
		nf := model.NewNotFoundError(scope)
		if wcErr.Message != "" {
			nf.Message = wcErr.Message
		}
		return nf
	case statusCode == http.StatusTooManyRequests:
		return model.NewRateLimitError("WooCommerce")
	default:
		return model.NewUpstreamError(scope, statusCode, wcErr.Code, stripTags(wcErr.Message))
	}
}

// stripTags drops the HTML WooCommerce wraps around some notices.
func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
