package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"storefront-proxy/internal/model"
)

// =============================================================================
// NONCE AUTHENTICATION STRATEGY
// =============================================================================
//
// The Store API requires a "nonce" for every mutation. Before each mutation we
// GET /cart to obtain a fresh nonce, then use it immediately. The proxy stays
// stateless (no nonce caching) at the cost of one extra round trip:
//
//   apply-coupon:          GET /cart → POST /cart/apply-coupon
//   remove-coupon:         GET /cart → POST /cart/remove-coupon
//   select-shipping-rate:  GET /cart → POST /batch (update-customer + select)
//
// The cart session is the one CoCart owns: signed-in customers are identified
// by their bearer token, guests by the CoCart cart key passed as cart_key.
// =============================================================================

// StoreSession identifies the cart a Store API call acts on.
type StoreSession struct {
	Token    string // bearer token of a signed-in customer
	CartKey  string // CoCart guest key, sent as cart_key when there is no token
	Currency string
}

// nonceInfo holds nonce and cart token from a preflight request.
type nonceInfo struct {
	nonce     string
	cartToken string
}

func (c *Client) storeURLFor(path string, sess StoreSession) string {
	q := url.Values{}
	if sess.Token == "" && sess.CartKey != "" {
		q.Set("cart_key", sess.CartKey)
	}
	if sess.Currency != "" {
		q.Set("currency", sess.Currency)
	}
	u := c.storeURL + storeAPIPath + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// setStoreAPIHeaders sets headers for Store API requests.
// Unlike REST v3, the Store API does NOT use Basic Auth.
func (c *Client) setStoreAPIHeaders(req *http.Request, sess StoreSession, cartToken, nonce string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	if sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}
	if cartToken != "" {
		req.Header.Set("Cart-Token", cartToken)
	}
	if nonce != "" {
		req.Header.Set("Nonce", nonce)
	}
}

// fetchNonce performs a preflight GET /cart request to obtain a fresh nonce.
func (c *Client) fetchNonce(ctx context.Context, sess StoreSession) (*nonceInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.storeURLFor("/cart", sess), nil)
	if err != nil {
		return nil, fmt.Errorf("creating nonce request: %w", err)
	}
	c.setStoreAPIHeaders(req, sess, "", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewNetworkError("WooCommerce", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return nil, parseErrorResponse("cart", resp.StatusCode, body)
	}

	nonce := resp.Header.Get("Nonce")
	if nonce == "" {
		return nil, model.NewUpstreamError("cart", http.StatusBadGateway, "", "no nonce returned from Store API")
	}

	return &nonceInfo{
		nonce:     nonce,
		cartToken: resp.Header.Get("Cart-Token"),
	}, nil
}

// ApplyCoupon applies a discount code to the session's cart.
func (c *Client) ApplyCoupon(ctx context.Context, sess StoreSession, code string) (*WooCartResponse, error) {
	return c.mutate(ctx, sess, "/cart/apply-coupon", map[string]string{"code": code}, "coupon")
}

// RemoveCoupon removes a discount code from the session's cart.
func (c *Client) RemoveCoupon(ctx context.Context, sess StoreSession, code string) (*WooCartResponse, error) {
	return c.mutate(ctx, sess, "/cart/remove-coupon", map[string]string{"code": code}, "coupon")
}

// SelectShippingRate selects a rate for a package. When shipping is non-nil
// the customer address is updated first in the same batch so WooCommerce
// recalculates the packages before the selection.
func (c *Client) SelectShippingRate(ctx context.Context, sess StoreSession, packageID int, rateID string, shipping *WooAddress) (*WooCartResponse, error) {
	b := NewBatch()
	if shipping != nil {
		b.UpdateCustomer(shipping, shipping)
	}
	b.SelectShippingRate(rateID, packageID)

	batch := b.Build()
	if batch == nil {
		return nil, model.NewMissingFieldError("rate_id")
	}
	if len(batch.Requests) == 1 {
		op := batch.Requests[0]
		return c.mutate(ctx, sess, strings.TrimPrefix(op.Path, batchNamespace), op.Body, "shipping")
	}
	return c.executeBatch(ctx, batch, sess, "shipping")
}

// mutate performs nonce preflight followed by a single POST.
func (c *Client) mutate(ctx context.Context, sess StoreSession, path string, body any, scope string) (*WooCartResponse, error) {
	nonceData, err := c.fetchNonce(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("fetching nonce: %w", err)
	}

	var payload []byte
	switch b := body.(type) {
	case json.RawMessage:
		payload = b
	default:
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.storeURLFor(path, sess), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setStoreAPIHeaders(req, sess, nonceData.cartToken, nonceData.nonce)

	return c.doCart(req, scope)
}

func (c *Client) doCart(req *http.Request, scope string) (*WooCartResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewNetworkError("WooCommerce", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewNetworkError("WooCommerce", fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return nil, parseErrorResponse(scope, resp.StatusCode, respBody)
	}

	var cart WooCartResponse
	if err := json.Unmarshal(respBody, &cart); err != nil {
		return nil, fmt.Errorf("parsing cart response: %w", err)
	}
	return &cart, nil
}

// executeBatch dispatches to the configured batch execution strategy.
func (c *Client) executeBatch(ctx context.Context, batch *WooBatchRequest, sess StoreSession, scope string) (*WooCartResponse, error) {
	switch c.batchStrategy {
	case BatchStrategySequential:
		return c.executeBatchSequential(ctx, batch, sess, scope)
	default:
		return c.executeBatchEndpoint(ctx, batch, sess, scope)
	}
}

// executeBatchSequential executes operations one by one, chaining the nonce
// and cart token from each response into the next request. Returns the cart
// from the last operation.
func (c *Client) executeBatchSequential(ctx context.Context, batch *WooBatchRequest, sess StoreSession, scope string) (*WooCartResponse, error) {
	nonceData, err := c.fetchNonce(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("fetching nonce: %w", err)
	}

	currentToken := nonceData.cartToken
	currentNonce := nonceData.nonce
	var lastCart *WooCartResponse

	for i, op := range batch.Requests {
		path := strings.TrimPrefix(op.Path, batchNamespace)
		req, err := http.NewRequestWithContext(ctx, op.Method, c.storeURLFor(path, sess), bytes.NewReader(op.Body))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		c.setStoreAPIHeaders(req, sess, currentToken, currentNonce)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, model.NewNetworkError("WooCommerce", err)
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, model.NewNetworkError("WooCommerce", readErr)
		}

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("operation %d (%s) failed: %w", i, op.Path, parseErrorResponse(scope, resp.StatusCode, body))
		}

		var cart WooCartResponse
		if err := json.Unmarshal(body, &cart); err != nil {
			return nil, fmt.Errorf("parsing cart response: %w", err)
		}
		lastCart = &cart

		if n := resp.Header.Get("Nonce"); n != "" {
			currentNonce = n
		}
		if t := resp.Header.Get("Cart-Token"); t != "" {
			currentToken = t
		}
	}

	return lastCart, nil
}

// executeBatchEndpoint executes the batch via POST /batch.
//
// The /batch endpoint doesn't propagate parent request headers to
// sub-operations, so Cart-Token, Nonce and Authorization are injected into
// each operation's headers.
func (c *Client) executeBatchEndpoint(ctx context.Context, batch *WooBatchRequest, sess StoreSession, scope string) (*WooCartResponse, error) {
	if batch == nil || len(batch.Requests) == 0 {
		return nil, fmt.Errorf("empty batch request")
	}

	nonceData, err := c.fetchNonce(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("fetching nonce: %w", err)
	}

	authHeaders := map[string]string{"Nonce": nonceData.nonce}
	if nonceData.cartToken != "" {
		authHeaders["Cart-Token"] = nonceData.cartToken
	}
	if sess.Token != "" {
		authHeaders["Authorization"] = "Bearer " + sess.Token
	}
	batch.InjectHeaders(authHeaders)

	batchJSON, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshaling batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.storeURLFor("/batch", sess), bytes.NewReader(batchJSON))
	if err != nil {
		return nil, fmt.Errorf("creating batch request: %w", err)
	}
	c.setStoreAPIHeaders(req, sess, nonceData.cartToken, nonceData.nonce)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewNetworkError("WooCommerce", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewNetworkError("WooCommerce", fmt.Errorf("reading batch response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return nil, parseErrorResponse(scope, resp.StatusCode, body)
	}

	var batchResp WooBatchResponse
	if err := json.Unmarshal(body, &batchResp); err != nil {
		return nil, fmt.Errorf("parsing batch response: %w", err)
	}

	var lastCart *WooCartResponse
	for _, result := range batchResp.Responses {
		if result.Status >= 400 {
			return nil, parseErrorResponse(scope, result.Status, result.Body)
		}

		var cart WooCartResponse
		if err := json.Unmarshal(result.Body, &cart); err != nil {
			return nil, fmt.Errorf("parsing batch result: %w", err)
		}
		lastCart = &cart
	}

	return lastCart, nil
}
