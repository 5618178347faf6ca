package bundle

import (
	"github.com/shopspring/decimal"

	"storefront-proxy/internal/i18n"
)

// Unit is a guess at the scale of an upstream line total.
type Unit int

const (
	// UnitMajor reads the line total as display units (12.500 KWD).
	UnitMajor Unit = iota
	// UnitMinor reads the line total as minor units and divides by MinorDivisor.
	UnitMinor
)

func (u Unit) origin() Origin {
	if u == UnitMinor {
		return OriginEstimateMinor
	}
	return OriginEstimateMajor
}

// DefaultUnitOrder tries major units first, then minor.
var DefaultUnitOrder = []Unit{UnitMajor, UnitMinor}

// Options tune Reconcile.
type Options struct {
	// Lang selects the label language ("en", "ar").
	Lang string
	// Places is the number of decimals used by View; defaults to 3.
	Places int
	// UnitOrder is the order in which line total interpretations are tried for
	// the box price estimate. Defaults to DefaultUnitOrder.
	UnitOrder []Unit
	// MinorDivisor converts minor units to major units; defaults to 100.
	MinorDivisor int64
}

func (o Options) normalized() Options {
	if o.Lang == "" {
		o.Lang = i18n.English
	}
	if o.Places <= 0 {
		o.Places = 3
	}
	if len(o.UnitOrder) == 0 {
		o.UnitOrder = DefaultUnitOrder
	}
	if o.MinorDivisor <= 0 {
		o.MinorDivisor = 100
	}
	return o
}

// Line is one bundle item with its amount scaled to the outer quantity.
type Line struct {
	Item
	Total decimal.Decimal
	Label string // localized "FREE" for free items, empty otherwise
}

// Group is a bucket of lines and its subtotal.
type Group struct {
	Lines    []Line
	Subtotal decimal.Decimal
}

// Partitioned splits items into disjoint display buckets.
type Partitioned struct {
	Regular Group
	Addons  Group
	Free    Group
}

// ItemsTotal sums price × quantity over items, defaulting price to 0 and quantity to 1.
func ItemsTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Partition buckets items into regular, add-on and free groups for a single bundle.
// Free items never contribute to a subtotal, whatever their stored price.
func Partition(items []Item) Partitioned {
	return partition(items, decimal.NewFromInt(1), "")
}

func partition(items []Item, qty decimal.Decimal, freeLabel string) Partitioned {
	var p Partitioned
	for _, it := range items {
		switch {
		case it.IsFree:
			p.Free.Lines = append(p.Free.Lines, Line{Item: it, Total: decimal.Zero, Label: freeLabel})
		case it.IsAddon:
			total := it.LineTotal().Mul(qty)
			p.Addons.Lines = append(p.Addons.Lines, Line{Item: it, Total: total})
			p.Addons.Subtotal = p.Addons.Subtotal.Add(total)
		default:
			total := it.LineTotal().Mul(qty)
			p.Regular.Lines = append(p.Regular.Lines, Line{Item: it, Total: total})
			p.Regular.Subtotal = p.Regular.Subtotal.Add(total)
		}
	}
	return p
}

// Breakdown is the reconciled, quantity-scaled view of one bundle line.
type Breakdown struct {
	Quantity int
	Mode     PricingMode

	Partitioned

	// ItemsTotal is the chargeable items total (regular + add-ons).
	ItemsTotal  decimal.Decimal
	BoxPrice    decimal.Decimal
	FixedPrice  decimal.NullDecimal
	BundleTotal decimal.NullDecimal
	Total       decimal.Decimal

	BoxPriceSource Origin
	TotalSource    TotalSource

	places int
}

// Reconcile computes the breakdown of src from its extracted metadata.
// Returns nil when meta is nil. Every amount is the single-bundle amount times
// the outer line quantity.
func Reconcile(src Source, meta *Metadata, opts Options) *Breakdown {
	if meta == nil || len(meta.Items) == 0 {
		return nil
	}
	opts = opts.normalized()

	qty := 1
	if src != nil && src.Quantity() > 0 {
		qty = src.Quantity()
	}
	n := decimal.NewFromInt(int64(qty))

	pricing := meta.Pricing
	if pricing == nil {
		pricing = SumPricing{}
	}

	single := partition(meta.Items, decimal.NewFromInt(1), "")
	itemsTotal := single.Regular.Subtotal.Add(single.Addons.Subtotal)

	box, boxSource := resolveBox(src, pricing, meta.BoxOrigin, itemsTotal, qty, opts)
	sum := itemsTotal.Add(box)

	total, totalSource := sum, TotalFromSum
	b := &Breakdown{
		Quantity:    qty,
		Mode:        pricing.Mode(),
		Partitioned: partition(meta.Items, n, i18n.T(opts.Lang, i18n.LabelFree, "FREE")),
		ItemsTotal:  itemsTotal.Mul(n),
		BoxPrice:    box.Mul(n),
		places:      opts.Places,
	}

	if fixed, ok := pricing.(FixedPricing); ok {
		if fixed.FixedPrice.Valid {
			b.FixedPrice = scaled(fixed.FixedPrice, n)
		}
		if fixed.BundleTotal.Valid {
			b.BundleTotal = scaled(fixed.BundleTotal, n)
		}
		switch {
		case positive(fixed.FixedPrice):
			total, totalSource = fixed.FixedPrice.Decimal, TotalFromFixedPrice
		case positive(fixed.BundleTotal):
			total, totalSource = fixed.BundleTotal.Decimal, TotalFromBundleTotal
		}
	}

	b.Total = total.Mul(n)
	b.BoxPriceSource = boxSource
	b.TotalSource = totalSource
	return b
}

// resolveBox returns the single-bundle box price: explicit or fallback value,
// else for cart lines an estimate of line total minus items total.
func resolveBox(src Source, pricing Pricing, origin Origin, itemsTotal decimal.Decimal, qty int, opts Options) (decimal.Decimal, Origin) {
	if box := pricing.Box(); box.Valid {
		if origin == "" || origin == OriginNone {
			origin = OriginLine
		}
		return box.Decimal, origin
	}

	if src == nil || src.Kind() != KindCart {
		return decimal.Zero, OriginNone
	}
	lineTotal := src.LineTotal()
	if !lineTotal.Valid {
		return decimal.Zero, OriginNone
	}

	perBundle := lineTotal.Decimal.Div(decimal.NewFromInt(int64(qty)))
	for _, unit := range opts.UnitOrder {
		candidate := perBundle
		if unit == UnitMinor {
			candidate = perBundle.Div(decimal.NewFromInt(opts.MinorDivisor))
		}
		candidate = candidate.Sub(itemsTotal)
		if candidate.IsPositive() {
			return candidate, unit.origin()
		}
	}
	return decimal.Zero, OriginNone
}

func positive(d decimal.NullDecimal) bool {
	return d.Valid && d.Decimal.IsPositive()
}

func scaled(d decimal.NullDecimal, n decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d.Decimal.Mul(n), Valid: true}
}
