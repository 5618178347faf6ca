package bundle

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront-proxy/internal/model"
)

// ItemView is the JSON shape of one bundle item.
type ItemView struct {
	ProductID int    `json:"product_id" jsonschema:"WooCommerce product id"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price,omitempty"`
	Total     string `json:"total"`
	Label     string `json:"label,omitempty"`
	IsAddon   bool   `json:"is_addon"`
	IsFree    bool   `json:"is_free"`
}

// BreakdownView is the JSON shape of a Breakdown with amounts as fixed-point strings.
type BreakdownView struct {
	ItemKey        string     `json:"item_key,omitempty"`
	Quantity       int        `json:"quantity"`
	PricingMode    string     `json:"pricing_mode"`
	Items          []ItemView `json:"items"`
	Addons         []ItemView `json:"addons"`
	Free           []ItemView `json:"free"`
	ItemsSubtotal  string     `json:"items_subtotal"`
	AddonsSubtotal string     `json:"addons_subtotal"`
	ItemsTotal     string     `json:"items_total"`
	BoxPrice       string     `json:"box_price"`
	FixedPrice     string     `json:"fixed_price,omitempty"`
	BundleTotal    string     `json:"bundle_total,omitempty"`
	Total          string     `json:"total"`
	BoxPriceSource string     `json:"box_price_source"`
	TotalSource    string     `json:"total_source"`
}

// View renders b with amounts formatted to the configured decimal places.
func (b *Breakdown) View() BreakdownView {
	if b == nil {
		return BreakdownView{}
	}
	places := b.places
	if places <= 0 {
		places = 3
	}
	format := func(d decimal.Decimal) string { return model.FormatAmount(d, places) }

	v := BreakdownView{
		Quantity:       b.Quantity,
		PricingMode:    string(b.Mode),
		Items:          lineViews(b.Regular.Lines, format),
		Addons:         lineViews(b.Addons.Lines, format),
		Free:           lineViews(b.Free.Lines, format),
		ItemsSubtotal:  format(b.Regular.Subtotal),
		AddonsSubtotal: format(b.Addons.Subtotal),
		ItemsTotal:     format(b.ItemsTotal),
		BoxPrice:       format(b.BoxPrice),
		Total:          format(b.Total),
		BoxPriceSource: string(b.BoxPriceSource),
		TotalSource:    string(b.TotalSource),
	}
	if b.FixedPrice.Valid {
		v.FixedPrice = format(b.FixedPrice.Decimal)
	}
	if b.BundleTotal.Valid {
		v.BundleTotal = format(b.BundleTotal.Decimal)
	}
	return v
}

func lineViews(lines []Line, format func(decimal.Decimal) string) []ItemView {
	out := make([]ItemView, 0, len(lines))
	for _, l := range lines {
		iv := ItemView{
			ProductID: l.ProductID,
			Quantity:  l.Qty(),
			Total:     format(l.Total),
			Label:     l.Label,
			IsAddon:   l.IsAddon,
			IsFree:    l.IsFree,
		}
		if l.Name != nil {
			iv.Name = *l.Name
		}
		if l.Price.Valid && !l.IsFree {
			iv.Price = format(l.Price.Decimal)
		}
		out = append(out, iv)
	}
	return out
}

// Lines runs Extract and Reconcile over every source and returns the views of
// the lines that are bundles, keyed by their fallback key.
func Lines(ctx context.Context, e Extractor, sources []Source, opts Options) []BreakdownView {
	views := make([]BreakdownView, 0)
	for _, src := range sources {
		meta := e.Extract(ctx, src)
		b := Reconcile(src, meta, opts)
		if b == nil {
			continue
		}
		v := b.View()
		v.ItemKey = src.FallbackKey()
		views = append(views, v)
	}
	return views
}
