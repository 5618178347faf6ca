// Package cocart is a client for the CoCart v2 cart session API.
package cocart

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Amount is a monetary or numeric value CoCart may send as a JSON number or string.
// It is kept verbatim; callers decide the unit scale.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	*a = Amount(data)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

// Cart is the CoCart v2 cart response.
type Cart struct {
	CartHash      string          `json:"cart_hash,omitempty"`
	CartKey       string          `json:"cart_key"`
	Currency      Currency        `json:"currency"`
	Customer      json.RawMessage `json:"customer,omitempty"`
	Items         []Item          `json:"items"`
	ItemCount     int             `json:"item_count"`
	ItemsWeight   Amount          `json:"items_weight,omitempty"`
	Coupons       []Coupon        `json:"coupons"`
	NeedsPayment  bool            `json:"needs_payment"`
	NeedsShipping bool            `json:"needs_shipping"`
	Shipping      json.RawMessage `json:"shipping,omitempty"`
	Fees          json.RawMessage `json:"fees,omitempty"`
	Taxes         json.RawMessage `json:"taxes,omitempty"`
	Totals        Totals          `json:"totals"`
	RemovedItems  json.RawMessage `json:"removed_items,omitempty"`
	CrossSells    json.RawMessage `json:"cross_sells,omitempty"`
	Notices       json.RawMessage `json:"notices,omitempty"`
}

// Item finds a line by its item key.
func (c *Cart) Item(key string) (*Item, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Items {
		if c.Items[i].ItemKey == key {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// Currency describes the cart currency.
type Currency struct {
	CurrencyCode              string `json:"currency_code"`
	CurrencySymbol            string `json:"currency_symbol"`
	CurrencyMinorUnit         int    `json:"currency_minor_unit"`
	CurrencyDecimalSeparator  string `json:"currency_decimal_separator,omitempty"`
	CurrencyThousandSeparator string `json:"currency_thousand_separator,omitempty"`
	CurrencyPrefix            string `json:"currency_prefix,omitempty"`
	CurrencySuffix            string `json:"currency_suffix,omitempty"`
}

// Item is one cart line.
type Item struct {
	ItemKey       string         `json:"item_key"`
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	Title         string         `json:"title,omitempty"`
	Price         Amount         `json:"price"` // unit price, minor units
	Quantity      Quantity       `json:"quantity"`
	Totals        ItemTotals     `json:"totals"`
	Slug          string         `json:"slug,omitempty"`
	Meta          map[string]any `json:"meta,omitempty"`
	CartItemData  map[string]any `json:"cart_item_data,omitempty"`
	FeaturedImage string         `json:"featured_image,omitempty"`
}

// Quantity is the line quantity with its purchase bounds.
// Older CoCart builds send a bare number; both shapes decode.
type Quantity struct {
	Value       int `json:"value"`
	MinPurchase int `json:"min_purchase"`
	MaxPurchase int `json:"max_purchase"`
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '{' {
		var raw Amount
		if err := raw.UnmarshalJSON(data); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return err
		}
		q.Value = int(f)
		return nil
	}

	type alias Quantity
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*q = Quantity(a)
	return nil
}

// ItemTotals are the computed line totals.
type ItemTotals struct {
	Subtotal    Amount `json:"subtotal"`
	SubtotalTax Amount `json:"subtotal_tax"`
	Total       Amount `json:"total"`
	Tax         Amount `json:"tax"`
}

// Coupon is an applied coupon as reported by CoCart.
type Coupon struct {
	Coupon string `json:"coupon"`
	Label  string `json:"label"`
	Saving Amount `json:"saving"`
}

// Totals are the cart totals, minor units.
type Totals struct {
	Subtotal      Amount `json:"subtotal"`
	SubtotalTax   Amount `json:"subtotal_tax"`
	FeeTotal      Amount `json:"fee_total"`
	FeeTax        Amount `json:"fee_tax"`
	DiscountTotal Amount `json:"discount_total"`
	DiscountTax   Amount `json:"discount_tax"`
	ShippingTotal Amount `json:"shipping_total"`
	ShippingTax   Amount `json:"shipping_tax"`
	Total         Amount `json:"total"`
	TotalTax      Amount `json:"total_tax"`
}

// AddItemRequest adds a product to the cart.
type AddItemRequest struct {
	ProductID   int
	VariationID int
	Quantity    int
	Variation   map[string]string
	ItemData    map[string]any
}

// addItemBody is the CoCart v2 wire shape. id and quantity are sent as strings.
type addItemBody struct {
	ID        string            `json:"id"`
	Quantity  string            `json:"quantity"`
	Variation map[string]string `json:"variation,omitempty"`
	ItemData  map[string]any    `json:"item_data,omitempty"`
}

// errorResponse is the WordPress REST error shape.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status int `json:"status"`
	} `json:"data"`
}
