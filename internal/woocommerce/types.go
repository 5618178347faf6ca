// Package woocommerce is the client for the WordPress side of the store:
// the WooCommerce Store API (coupons, shipping rate selection), the REST v3
// API (orders, refunds, shipping zones), the TI Wishlist REST surface and the
// password reset endpoints.
package woocommerce

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// === Store API Response Types ===

// WooCartResponse represents the WooCommerce Store API cart response.
// Only the fields the proxy inspects are decoded; the client is always
// handed the CoCart cart shape.
type WooCartResponse struct {
	Items         []WooCartItem    `json:"items"`
	Totals        WooTotals        `json:"totals"`
	ShippingRates []WooShippingPkg `json:"shipping_rates,omitempty"`
	Coupons       []WooCoupon      `json:"coupons,omitempty"`
	Errors        []WooCartError   `json:"errors,omitempty"`
}

// WooCartError represents an error in cart state.
type WooCartError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WooCartItem represents an item in the Store API cart response.
type WooCartItem struct {
	Key      string `json:"key"` // Cart item key (not numeric ID)
	ID       int    `json:"id"`  // Product ID
	Quantity int    `json:"quantity"`
}

// WooTotals contains pricing totals from the Store API, minor units as strings.
type WooTotals struct {
	CurrencyCode      string `json:"currency_code"`
	CurrencyMinorUnit int    `json:"currency_minor_unit"`
	TotalItems        string `json:"total_items"`
	TotalDiscount     string `json:"total_discount"`
	TotalShipping     string `json:"total_shipping"`
	TotalPrice        string `json:"total_price"`
}

// WooAddress represents a WooCommerce address.
type WooAddress struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1,omitempty"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	Country   string `json:"country,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// WooShippingPkg represents a shipping package with available rates.
type WooShippingPkg struct {
	PackageID     int               `json:"package_id"`
	Name          string            `json:"name"`
	ShippingRates []WooShippingRate `json:"shipping_rates"`
}

// WooShippingRate represents a single shipping option.
type WooShippingRate struct {
	RateID   string `json:"rate_id"`
	Name     string `json:"name"`
	Price    string `json:"price"` // Minor units as string
	MethodID string `json:"method_id"`
	Selected bool   `json:"selected"`
}

// WooCoupon represents an applied discount code.
type WooCoupon struct {
	Code string `json:"code"`
}

// WooErrorResponse represents a WordPress REST error.
type WooErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status int `json:"status"`
	} `json:"data"`
}

// === Batch API Types ===

// WooBatchRequest is the payload for POST /batch endpoint.
type WooBatchRequest struct {
	Requests []WooBatchOperation `json:"requests"`
}

// WooBatchOperation is a single operation within a batch.
// Headers carries per-operation authentication (Cart-Token, Nonce).
type WooBatchOperation struct {
	Path    string            `json:"path"`
	Method  string            `json:"method"`
	Body    json.RawMessage   `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// WooBatchResponse is the response from POST /batch endpoint.
type WooBatchResponse struct {
	Responses []WooBatchResult `json:"responses"`
}

// WooBatchResult is a single result within a batch response.
type WooBatchResult struct {
	Status  int             `json:"status"`
	Body    json.RawMessage `json:"body"`
	Headers WooBatchHeaders `json:"headers"`
}

// WooBatchHeaders contains headers from a batch response.
type WooBatchHeaders struct {
	Nonce     string `json:"Nonce"`
	CartToken string `json:"Cart-Token"`
}

// === REST v3 Types ===

// MetaData is a WooCommerce meta_data entry. Value may be any JSON value.
type MetaData struct {
	ID    int    `json:"id,omitempty"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Order is a WooCommerce REST v3 order.
type Order struct {
	ID                 int             `json:"id"`
	Number             string          `json:"number"`
	Status             string          `json:"status"`
	Currency           string          `json:"currency"`
	Total              string          `json:"total"`
	CustomerID         int             `json:"customer_id"`
	PaymentMethod      string          `json:"payment_method"`
	PaymentMethodTitle string          `json:"payment_method_title"`
	TransactionID      string          `json:"transaction_id"`
	DateCreated        string          `json:"date_created"`
	LineItems          []OrderLineItem `json:"line_items"`
	MetaData           []MetaData      `json:"meta_data"`
	Refunds            []OrderRefund   `json:"refunds,omitempty"`
}

// MetaString returns the first meta value under key rendered as a string.
func (o *Order) MetaString(key string) string {
	if o == nil {
		return ""
	}
	return metaString(o.MetaData, key)
}

// OrderLineItem is one line of an order.
type OrderLineItem struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	ProductID   int        `json:"product_id"`
	VariationID int        `json:"variation_id"`
	Quantity    int        `json:"quantity"`
	Subtotal    string     `json:"subtotal"`
	Total       string     `json:"total"`
	SKU         string     `json:"sku"`
	MetaData    []MetaData `json:"meta_data"`
}

// OrderRefund is the refund summary embedded in an order.
type OrderRefund struct {
	ID     int    `json:"id"`
	Reason string `json:"reason"`
	Total  string `json:"total"`
}

// OrderUpdate is the partial update sent with PUT /orders/{id}.
type OrderUpdate struct {
	Status        string     `json:"status,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	SetPaid       bool       `json:"set_paid,omitempty"`
	MetaData      []MetaData `json:"meta_data,omitempty"`
}

// OrderQuery filters GET /orders.
type OrderQuery struct {
	Status  []string
	Page    int
	PerPage int
}

// RefundRequest creates a refund record. APIRefund=false records the refund
// without asking the payment gateway plugin to move money.
type RefundRequest struct {
	Amount    string `json:"amount"`
	Reason    string `json:"reason,omitempty"`
	APIRefund bool   `json:"api_refund"`
}

// Refund is a created refund.
type Refund struct {
	ID     int    `json:"id"`
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

// OrderNote is an order note.
type OrderNote struct {
	ID           int    `json:"id,omitempty"`
	Note         string `json:"note"`
	CustomerNote bool   `json:"customer_note"`
}

// ShippingZone is a WooCommerce shipping zone. Zone 0 is "Locations not covered by your other zones".
type ShippingZone struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// ZoneLocation is one location rule of a zone.
type ZoneLocation struct {
	Code string `json:"code"`
	Type string `json:"type"` // postcode, state, country, continent
}

// ShippingMethod is a method instance configured on a zone.
type ShippingMethod struct {
	InstanceID  int                      `json:"instance_id"`
	Title       string                   `json:"title"`
	Order       int                      `json:"order"`
	Enabled     bool                     `json:"enabled"`
	MethodID    string                   `json:"method_id"`
	MethodTitle string                   `json:"method_title"`
	Settings    map[string]MethodSetting `json:"settings"`
}

// Setting returns the string value of a method setting, "" when absent.
func (m ShippingMethod) Setting(id string) string {
	s, ok := m.Settings[id]
	if !ok {
		return ""
	}
	return valueString(s.Value)
}

// MethodSetting is one configured setting of a shipping method.
type MethodSetting struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// === TI Wishlist Types ===

// Wishlist is a TI Wishlist list owned by a user.
type Wishlist struct {
	ID       int    `json:"id"`
	UserID   int    `json:"user_id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	ShareKey string `json:"share_key"`
}

// WishlistProduct is one product in a wishlist.
type WishlistProduct struct {
	ItemID      int    `json:"item_id"`
	ProductID   int    `json:"product_id"`
	VariationID int    `json:"variation_id"`
	DateAdded   string `json:"date_added,omitempty"`
	Price       string `json:"price,omitempty"`
	InStock     bool   `json:"in_stock"`
}

// === helpers ===

func metaString(meta []MetaData, key string) string {
	for _, m := range meta {
		if m.Key == key {
			return valueString(m.Value)
		}
	}
	return ""
}

func valueString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
