// Package bundle extracts bundle metadata from cart and order lines and
// reconciles it into a display-ready price breakdown.
//
// Cart lines (CoCart cart_item_data) and order lines (WooCommerce meta_data)
// carry the same bundle fields under different shapes. Both are read through
// the Source interface so one reconciler serves both contexts.
package bundle

import (
	"github.com/shopspring/decimal"
)

// PricingMode selects which amounts are authoritative for a bundle total.
type PricingMode string

const (
	// ModeSum prices a bundle as the sum of its items plus an optional box price.
	ModeSum PricingMode = "sum"
	// ModeFixed prices a bundle at an authoritative flat total.
	ModeFixed PricingMode = "fixed"
)

// ParseMode converts a raw pricing_mode value. Unknown strings map to ModeSum.
// ok is false when v is absent or not a string.
func ParseMode(v any) (mode PricingMode, ok bool) {
	s, isString := v.(string)
	if !isString || s == "" {
		return ModeSum, false
	}
	if PricingMode(s) == ModeFixed {
		return ModeFixed, true
	}
	return ModeSum, true
}

// Item is one product packed inside a bundle line.
// Optional fields stay nil/invalid when the upstream value had the wrong type.
type Item struct {
	ProductID int                 `json:"product_id"`
	Name      *string             `json:"name,omitempty"`
	Price     decimal.NullDecimal `json:"price"`
	Quantity  *int                `json:"quantity,omitempty"`
	IsAddon   bool                `json:"is_addon"`
	IsFree    bool                `json:"is_free"`
}

// UnitPrice returns the price, or zero when missing.
func (i Item) UnitPrice() decimal.Decimal {
	if !i.Price.Valid {
		return decimal.Zero
	}
	return i.Price.Decimal
}

// Qty returns the quantity, or 1 when missing.
func (i Item) Qty() int {
	if i.Quantity == nil {
		return 1
	}
	return *i.Quantity
}

// LineTotal is UnitPrice × Qty.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Qty())))
}

// Pricing is the closed set of bundle pricing variants: SumPricing or FixedPricing.
type Pricing interface {
	Mode() PricingMode
	Box() decimal.NullDecimal
	isPricing()
}

// SumPricing prices the bundle as items total plus box price.
type SumPricing struct {
	BoxPrice decimal.NullDecimal
}

func (SumPricing) Mode() PricingMode { return ModeSum }
func (p SumPricing) Box() decimal.NullDecimal { return p.BoxPrice }
func (SumPricing) isPricing() {}

// FixedPricing carries the authoritative total. BoxPrice is kept for the sum
// formula used when neither FixedPrice nor BundleTotal is usable.
type FixedPricing struct {
	FixedPrice  decimal.NullDecimal
	BundleTotal decimal.NullDecimal
	BoxPrice    decimal.NullDecimal
}

func (FixedPricing) Mode() PricingMode { return ModeFixed }
func (p FixedPricing) Box() decimal.NullDecimal { return p.BoxPrice }
func (FixedPricing) isPricing() {}

// Origin records where an amount was resolved from.
type Origin string

const (
	OriginLine          Origin = "line"
	OriginFallback      Origin = "fallback"
	OriginEstimateMajor Origin = "estimate_major"
	OriginEstimateMinor Origin = "estimate_minor"
	OriginNone          Origin = "none"
)

// TotalSource records which amount produced a bundle's grand total.
type TotalSource string

const (
	TotalFromFixedPrice  TotalSource = "fixed_price"
	TotalFromBundleTotal TotalSource = "bundle_total"
	TotalFromSum         TotalSource = "sum"
)

// Metadata is the validated bundle data of one line.
type Metadata struct {
	Items   []Item
	Pricing Pricing

	// BoxOrigin is OriginLine or OriginFallback when Pricing carries a box price.
	BoxOrigin Origin
}

// Mode returns the pricing mode, ModeSum when Pricing is unset.
func (m *Metadata) Mode() PricingMode {
	if m == nil || m.Pricing == nil {
		return ModeSum
	}
	return m.Pricing.Mode()
}
