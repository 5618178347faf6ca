// MCP transport for the storefront proxy using the official MCP Go SDK.
// Tools take the session fields the REST surface reads from cookies as
// explicit inputs.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storefront-proxy/internal/bundle"
	"storefront-proxy/internal/cart"
	"storefront-proxy/internal/cocart"
	"storefront-proxy/internal/i18n"
	"storefront-proxy/internal/model"
	"storefront-proxy/internal/shipping"
)

// === MCP Tool Input/Output Types ===

// GetCartInput is the input schema for get_cart.
type GetCartInput struct {
	CartKey  string `json:"cart_key,omitempty" jsonschema:"guest cart key returned by a previous call"`
	Token    string `json:"token,omitempty" jsonschema:"bearer token of a signed-in customer"`
	Lang     string `json:"lang,omitempty" jsonschema:"language for messages and labels: en or ar"`
	Currency string `json:"currency,omitempty" jsonschema:"display currency code"`
}

// AddToCartInput is the input schema for add_to_cart.
type AddToCartInput struct {
	CartKey     string            `json:"cart_key,omitempty" jsonschema:"guest cart key returned by a previous call"`
	Token       string            `json:"token,omitempty" jsonschema:"bearer token of a signed-in customer"`
	Lang        string            `json:"lang,omitempty" jsonschema:"language for messages and labels: en or ar"`
	Currency    string            `json:"currency,omitempty" jsonschema:"display currency code"`
	ProductID   int               `json:"product_id" jsonschema:"product ID"`
	VariationID int               `json:"variation_id,omitempty" jsonschema:"variation ID for variable products"`
	Quantity    int               `json:"quantity,omitempty" jsonschema:"quantity, defaults to 1"`
	Variation   map[string]string `json:"variation,omitempty" jsonschema:"variation attributes"`
	ItemData    map[string]any    `json:"item_data,omitempty" jsonschema:"bundle data: bundle_items, box_price, pricing_mode, fixed_price, bundle_total"`
}

// BundleBreakdownInput is the input schema for bundle_breakdown.
type BundleBreakdownInput struct {
	CartKey  string `json:"cart_key,omitempty" jsonschema:"guest cart key returned by a previous call"`
	Token    string `json:"token,omitempty" jsonschema:"bearer token of a signed-in customer"`
	Lang     string `json:"lang,omitempty" jsonschema:"language for messages and labels: en or ar"`
	Currency string `json:"currency,omitempty" jsonschema:"display currency code"`
}

// ResolveShippingInput is the input schema for resolve_shipping.
type ResolveShippingInput struct {
	Country  string `json:"country" jsonschema:"ISO 3166-1 alpha-2 country code"`
	State    string `json:"state,omitempty" jsonschema:"state code, KW-AH or KW:KW-AH"`
	Postcode string `json:"postcode,omitempty" jsonschema:"postcode"`
	Lang     string `json:"lang,omitempty" jsonschema:"language for messages: en or ar"`
}

// CartSummary is the MCP view of a cart. Amounts are CoCart's minor units.
type CartSummary struct {
	CartKey   string     `json:"cart_key"`
	Guest     bool       `json:"guest"`
	Currency  string     `json:"currency"`
	MinorUnit int        `json:"minor_unit" jsonschema:"decimals of the currency minor unit"`
	ItemCount int        `json:"item_count"`
	Items     []CartLine `json:"items"`
	Coupons   []string   `json:"coupons"`
	Total     string     `json:"total" jsonschema:"cart total in minor units"`
}

// CartLine is one line of a CartSummary.
type CartLine struct {
	ItemKey   string `json:"item_key"`
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total"`
	IsBundle  bool   `json:"is_bundle"`
}

// BundleBreakdownOutput is the output of bundle_breakdown.
type BundleBreakdownOutput struct {
	CartKey string                 `json:"cart_key"`
	Bundles []bundle.BreakdownView `json:"bundles"`
}

// NewMCPServer creates an MCP server with the storefront tools registered.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront-proxy",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Storefront proxy for a WooCommerce store. " +
				"Pass the cart_key returned by a cart tool on later calls to keep the same guest cart.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the current cart for a guest cart key or a customer token.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add a product to the cart. Bundle products carry their bundle data in item_data.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bundle_breakdown",
		Description: "Get the price breakdown of each bundle line in the cart.",
	}, h.mcpBundleBreakdown)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_shipping",
		Description: "Resolve the shipping zone and available rates for a destination.",
	}, h.mcpResolveShipping)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetCartInput,
) (*mcp.CallToolResult, *CartSummary, error) {
	sess := h.mcpSession(input.CartKey, input.Token, input.Lang, input.Currency)

	res, err := h.svc.Cart.Get(ctx, sess)
	if err != nil {
		return nil, nil, h.mcpError(sess.Lang, err)
	}
	return nil, summarize(res), nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AddToCartInput,
) (*mcp.CallToolResult, *CartSummary, error) {
	sess := h.mcpSession(input.CartKey, input.Token, input.Lang, input.Currency)

	add := cart.Request{
		Action:      cart.OpAdd,
		ProductID:   cart.ID(input.ProductID),
		VariationID: cart.ID(input.VariationID),
		Variation:   input.Variation,
		ItemData:    input.ItemData,
	}
	if input.Quantity != 0 {
		add.Quantity = &input.Quantity
	}

	res, err := h.svc.Cart.Do(ctx, sess, add)
	if err != nil {
		return nil, nil, h.mcpError(sess.Lang, err)
	}
	return nil, summarize(res), nil
}

func (h *Handler) mcpBundleBreakdown(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input BundleBreakdownInput,
) (*mcp.CallToolResult, *BundleBreakdownOutput, error) {
	sess := h.mcpSession(input.CartKey, input.Token, input.Lang, input.Currency)

	res, views, err := h.svc.Cart.Bundles(ctx, sess, h.bundleOptions(sess.Lang))
	if err != nil {
		return nil, nil, h.mcpError(sess.Lang, err)
	}
	out := &BundleBreakdownOutput{Bundles: views}
	if out.Bundles == nil {
		out.Bundles = []bundle.BreakdownView{}
	}
	if res != nil {
		out.CartKey = res.CartKey
	}
	return nil, out, nil
}

func (h *Handler) mcpResolveShipping(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ResolveShippingInput,
) (*mcp.CallToolResult, *shipping.Resolution, error) {
	lang := i18n.Match(input.Lang)
	if strings.TrimSpace(input.Country) == "" {
		return nil, nil, h.mcpError(lang, model.NewMissingFieldError("country"))
	}

	res, err := h.svc.Shipping.Resolve(ctx, shipping.Destination{
		Country:  input.Country,
		State:    input.State,
		Postcode: input.Postcode,
	})
	if err != nil {
		return nil, nil, h.mcpError(lang, err)
	}
	if res.Rates == nil {
		res.Rates = []shipping.Rate{}
	}
	return nil, res, nil
}

// mcpSession builds the session a REST request would carry in cookies.
func (h *Handler) mcpSession(cartKey, token, lang, currency string) *model.Session {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = h.opts.Negotiation.DefaultCurrency
	}
	return &model.Session{
		CartKey:  strings.TrimSpace(cartKey),
		Token:    strings.TrimSpace(token),
		Currency: currency,
		Lang:     i18n.Match(lang),
	}
}

// summarize flattens a cart result for MCP clients.
func summarize(res *cart.Result) *CartSummary {
	out := &CartSummary{Items: []CartLine{}, Coupons: []string{}}
	if res == nil {
		return out
	}
	out.CartKey = res.CartKey
	out.Guest = res.Guest

	c := res.Cart
	if c == nil {
		return out
	}
	if out.CartKey == "" {
		out.CartKey = c.CartKey
	}
	out.Currency = c.Currency.CurrencyCode
	out.MinorUnit = c.Currency.CurrencyMinorUnit
	out.ItemCount = c.ItemCount
	out.Total = string(c.Totals.Total)
	for _, it := range c.Items {
		out.Items = append(out.Items, cartLine(it))
	}
	for _, cp := range c.Coupons {
		out.Coupons = append(out.Coupons, cp.Coupon)
	}
	return out
}

func cartLine(it cocart.Item) CartLine {
	_, isBundle := it.CartItemData["bundle_items"]
	return CartLine{
		ItemKey:   it.ItemKey,
		ProductID: it.ID,
		Name:      it.Name,
		Quantity:  it.Quantity.Value,
		Total:     string(it.Totals.Total),
		IsBundle:  isBundle,
	}
}

// mcpError converts service errors to MCP tool errors without leaking internals.
func (h *Handler) mcpError(lang string, err error) error {
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		h.logger.Error("mcp internal error", "error", err.Error())
	}
	return fmt.Errorf("%s: %s", apiErr.Code, i18n.T(lang, apiErr.Code, apiErr.Message))
}
