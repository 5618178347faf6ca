package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront-proxy/internal/adapter"
	"storefront-proxy/internal/bundle"
	"storefront-proxy/internal/cart"
	"storefront-proxy/internal/cocart"
	"storefront-proxy/internal/model"
	"storefront-proxy/internal/shipping"
)

// jsonrpcRequest is a JSON-RPC 2.0 request structure for testing.
type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response structure for testing.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type callToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
	IsError           bool            `json:"isError,omitempty"`
}

func TestMCPServerCreation(t *testing.T) {
	h := New((&adapter.Mock{}).Services(), Options{})
	if h.NewMCPServer() == nil {
		t.Fatal("NewMCPServer returned nil")
	}
	if h.NewMCPHandler() == nil {
		t.Fatal("NewMCPHandler returned nil")
	}
}

func TestMCPToolsList(t *testing.T) {
	mux := testHandler(&adapter.Mock{}, Options{})
	sessionID := initMCPSession(t, mux)

	resp := postMCP(t, mux, sessionID, jsonrpcRequest{JSONRPC: "2.0", ID: 2, Method: "tools/list"})

	var toolsResult struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &toolsResult); err != nil {
		t.Fatalf("Failed to parse tools result: %v", err)
	}

	expected := map[string]bool{
		"get_cart":         false,
		"add_to_cart":      false,
		"bundle_breakdown": false,
		"resolve_shipping": false,
	}
	for _, tool := range toolsResult.Tools {
		if _, ok := expected[tool.Name]; ok {
			expected[tool.Name] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("Expected tool %q not found in tools list", name)
		}
	}
}

func TestMCPGetCart(t *testing.T) {
	var got *model.Session
	mock := &adapter.Mock{
		GetCartFunc: func(ctx context.Context, sess *model.Session) (*cart.Result, error) {
			got = sess
			return &cart.Result{
				CartKey: "guest-1",
				Guest:   true,
				Cart: &cocart.Cart{
					CartKey:   "guest-1",
					ItemCount: 2,
					Currency:  cocart.Currency{CurrencyCode: "KWD", CurrencyMinorUnit: 3},
					Items: []cocart.Item{{
						ItemKey:      "a",
						ID:           5,
						Name:         "Gift Box",
						Quantity:     cocart.Quantity{Value: 2},
						Totals:       cocart.ItemTotals{Total: "10000"},
						CartItemData: map[string]any{"bundle_items": []any{}},
					}},
					Totals: cocart.Totals{Total: "10000"},
				},
			}, nil
		},
	}
	mux := testHandler(mock, Options{})
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "get_cart", map[string]any{"cart_key": "guest-1", "lang": "ar", "currency": "usd"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result.Content)
	}
	if got == nil || got.CartKey != "guest-1" || got.Lang != "ar" || got.Currency != "USD" {
		t.Errorf("session = %+v", got)
	}

	var summary CartSummary
	if err := json.Unmarshal(result.StructuredContent, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.CartKey != "guest-1" || !summary.Guest || summary.MinorUnit != 3 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.Items) != 1 || !summary.Items[0].IsBundle || summary.Items[0].Quantity != 2 {
		t.Errorf("items = %+v", summary.Items)
	}
}

func TestMCPAddToCart(t *testing.T) {
	var got cart.Request
	mock := &adapter.Mock{
		CartDoFunc: func(ctx context.Context, sess *model.Session, req cart.Request) (*cart.Result, error) {
			got = req
			return &cart.Result{CartKey: "guest-9"}, nil
		},
	}
	mux := testHandler(mock, Options{})
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "add_to_cart", map[string]any{
		"product_id": 12,
		"quantity":   3,
		"item_data":  map[string]any{"box_price": "1.500"},
	})
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result.Content)
	}
	if got.Action != cart.OpAdd || got.ProductID != 12 || got.Quantity == nil || *got.Quantity != 3 {
		t.Errorf("request = %+v", got)
	}
	if got.ItemData["box_price"] != "1.500" {
		t.Errorf("item data = %+v", got.ItemData)
	}
}

func TestMCPBundleBreakdown(t *testing.T) {
	mock := &adapter.Mock{
		CartBundlesFunc: func(ctx context.Context, sess *model.Session, opts bundle.Options) (*cart.Result, []bundle.BreakdownView, error) {
			return &cart.Result{CartKey: "k"}, []bundle.BreakdownView{{
				ItemKey:     "a",
				Quantity:    1,
				PricingMode: "sum",
				Items:       []bundle.ItemView{{ProductID: 1, Quantity: 2, Total: "6.000"}},
				Addons:      []bundle.ItemView{},
				Free:        []bundle.ItemView{},
				Total:       "7.500",
			}}, nil
		},
	}
	mux := testHandler(mock, Options{})
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "bundle_breakdown", map[string]any{})
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result.Content)
	}

	var out BundleBreakdownOutput
	if err := json.Unmarshal(result.StructuredContent, &out); err != nil {
		t.Fatal(err)
	}
	if out.CartKey != "k" || len(out.Bundles) != 1 || out.Bundles[0].Total != "7.500" {
		t.Errorf("output = %+v", out)
	}
}

func TestMCPResolveShipping(t *testing.T) {
	mock := &adapter.Mock{
		ResolveShippingFunc: func(ctx context.Context, d shipping.Destination) (*shipping.Resolution, error) {
			return &shipping.Resolution{ZoneID: 1, ZoneName: "Kuwait", Address: d}, nil
		},
	}
	mux := testHandler(mock, Options{})
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "resolve_shipping", map[string]any{"country": "KW"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result.Content)
	}

	result = callTool(t, mux, sessionID, "resolve_shipping", map[string]any{"country": "", "lang": "ar"})
	if !result.IsError {
		t.Fatal("missing country should be a tool error")
	}
	if len(result.Content) == 0 || !strings.HasPrefix(result.Content[0].Text, "missing_country: ") {
		t.Errorf("content = %+v", result.Content)
	}
}

func TestMCPToolErrorHidesInternals(t *testing.T) {
	mock := &adapter.Mock{
		GetCartFunc: func(ctx context.Context, sess *model.Session) (*cart.Result, error) {
			return nil, context.DeadlineExceeded
		},
	}
	mux := testHandler(mock, Options{})
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "get_cart", map[string]any{})
	if !result.IsError {
		t.Fatal("want tool error")
	}
	if len(result.Content) == 0 || !strings.HasPrefix(result.Content[0].Text, "internal_error: ") {
		t.Errorf("content = %+v", result.Content)
	}
	if strings.Contains(result.Content[0].Text, "deadline") {
		t.Error("internal error details leaked")
	}
}

// setMCPHeaders sets the required headers for MCP Streamable HTTP requests.
func setMCPHeaders(req *http.Request, sessionID string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
}

// parseSSEResponse extracts JSON data from SSE formatted response.
// SSE format: "event: message\ndata: {json}\n\n"
func parseSSEResponse(body string) []byte {
	for _, line := range strings.Split(body, "\n") {
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			return []byte(data)
		}
	}
	return []byte(body)
}

func postMCP(t *testing.T, mux *http.ServeMux, sessionID string, rpc jsonrpcRequest) jsonrpcResponse {
	t.Helper()

	body, _ := json.Marshal(rpc)
	req := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(req, sessionID)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("%s: Status = %d\nBody: %s", rpc.Method, w.Code, w.Body.String())
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(parseSSEResponse(w.Body.String()), &resp); err != nil {
		t.Fatalf("%s: decode response: %v\nBody: %s", rpc.Method, err, w.Body.String())
	}
	if resp.Error != nil {
		t.Fatalf("%s: unexpected error: %+v", rpc.Method, resp.Error)
	}
	return resp
}

func callTool(t *testing.T, mux *http.ServeMux, sessionID, name string, args map[string]any) callToolResult {
	t.Helper()

	raw, _ := json.Marshal(args)
	resp := postMCP(t, mux, sessionID, jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      3,
		Method:  "tools/call",
		Params:  toolCallParams{Name: name, Arguments: raw},
	})

	var result callToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("decode tool result: %v", err)
	}
	return result
}

// initMCPSession initializes an MCP session and returns the session ID.
func initMCPSession(t *testing.T, mux *http.ServeMux) string {
	t.Helper()

	initReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": "2025-06-18",
			"clientInfo":      map[string]string{"name": "test", "version": "1.0"},
			"capabilities":    map[string]any{},
		},
	}

	body, _ := json.Marshal(initReq)
	req := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(req, "")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Failed to initialize MCP session: %s", w.Body.String())
	}
	sessionID := w.Header().Get("Mcp-Session-Id")

	note, _ := json.Marshal(jsonrpcRequest{JSONRPC: "2.0", Method: "notifications/initialized"})
	req = httptest.NewRequest("POST", "/mcp", bytes.NewReader(note))
	setMCPHeaders(req, sessionID)
	mux.ServeHTTP(httptest.NewRecorder(), req)

	return sessionID
}
