package bundle

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Kind distinguishes pre-purchase cart lines from post-purchase order lines.
type Kind int

const (
	KindCart Kind = iota
	KindOrder
)

func (k Kind) String() string {
	if k == KindOrder {
		return "order"
	}
	return "cart"
}

// Source exposes the raw bundle fields of one line item.
// Values are returned as received; validation happens in Extract.
type Source interface {
	Kind() Kind
	BundleItems() any
	BoxPrice() any
	PricingMode() any
	FixedPrice() any
	BundleTotal() any

	// FallbackKey is the key of the persisted fallback record, "" when none.
	FallbackKey() string
	// Quantity is the outer line quantity.
	Quantity() int
	// LineTotal is the line total as reported upstream, in whatever unit it arrived.
	LineTotal() decimal.NullDecimal
}

// CartLine adapts a CoCart line: bundle fields live in cart_item_data.
type CartLine struct {
	ItemKey string
	Qty     int
	Total   decimal.NullDecimal
	Data    map[string]any
}

var _ Source = CartLine{}

func (l CartLine) Kind() Kind { return KindCart }
func (l CartLine) BundleItems() any { return l.Data["bundle_items"] }
func (l CartLine) BoxPrice() any { return l.Data["box_price"] }
func (l CartLine) PricingMode() any { return l.Data["pricing_mode"] }
func (l CartLine) FixedPrice() any { return l.Data["fixed_price"] }
func (l CartLine) BundleTotal() any { return l.Data["bundle_total"] }
func (l CartLine) FallbackKey() string { return l.ItemKey }
func (l CartLine) Quantity() int { return l.Qty }
func (l CartLine) LineTotal() decimal.NullDecimal { return l.Total }

// MetaEntry is one WooCommerce meta_data key/value pair.
type MetaEntry struct {
	ID    int    `json:"id,omitempty"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Meta keys written onto order lines at checkout.
const (
	MetaBundleItems = "_bundle_items"
	MetaBoxPrice    = "_box_price"
	MetaPricingMode = "_pricing_mode"
	MetaFixedPrice  = "_fixed_price"
	MetaBundleTotal = "_bundle_total"
	MetaCartItemKey = "_cart_item_key"
)

// OrderLine adapts a WooCommerce order line: bundle fields live in flat meta_data.
type OrderLine struct {
	ID    int
	Qty   int
	Total decimal.NullDecimal
	Meta  []MetaEntry
}

var _ Source = OrderLine{}

func (l OrderLine) Kind() Kind { return KindOrder }
func (l OrderLine) BundleItems() any { return l.meta(MetaBundleItems) }
func (l OrderLine) BoxPrice() any { return l.meta(MetaBoxPrice) }
func (l OrderLine) PricingMode() any { return l.meta(MetaPricingMode) }
func (l OrderLine) FixedPrice() any { return l.meta(MetaFixedPrice) }
func (l OrderLine) BundleTotal() any { return l.meta(MetaBundleTotal) }
func (l OrderLine) Quantity() int { return l.Qty }
func (l OrderLine) LineTotal() decimal.NullDecimal { return l.Total }

// FallbackKey is the cart item key copied into the order at checkout, if any.
func (l OrderLine) FallbackKey() string {
	s, _ := l.meta(MetaCartItemKey).(string)
	return strings.TrimSpace(s)
}

// meta returns the first value stored under key.
func (l OrderLine) meta(key string) any {
	for _, m := range l.Meta {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}
