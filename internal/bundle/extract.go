package bundle

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"storefront-proxy/internal/model"
	"storefront-proxy/internal/storage"
)

// FallbackStore is the read side of storage.Store used during extraction.
type FallbackStore interface {
	GetBundle(ctx context.Context, key string) (*storage.BundleRecord, error)
}

// Extractor resolves bundle metadata from a line and the fallback store.
type Extractor struct {
	Store  FallbackStore // optional
	Logger *slog.Logger  // optional
}

// Extract is shorthand for Extractor{Store: store}.Extract.
func Extract(ctx context.Context, src Source, store FallbackStore) *Metadata {
	return Extractor{Store: store}.Extract(ctx, src)
}

// Extract returns the validated bundle metadata of src, or nil when src is not a bundle.
//
// Each field is taken from the line when present there, otherwise from the
// fallback record; a single field is never assembled from both. Extract does
// not fail: store errors and malformed values degrade to "absent".
func (e Extractor) Extract(ctx context.Context, src Source) (meta *Metadata) {
	if src == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger().Warn("bundle extraction panicked", slog.Any("panic", r))
			meta = nil
		}
	}()

	rec := e.fallback(ctx, src.FallbackKey())

	items := ParseItems(src.BundleItems())
	if len(items) == 0 && rec != nil && len(rec.Items) > 0 {
		items = ParseItems(rec.Items)
	}
	if len(items) == 0 {
		return nil
	}

	box, boxOrigin := resolveAmount(src.BoxPrice(), rec, func(r *storage.BundleRecord) string { return r.BoxPrice })
	if !box.Valid {
		boxOrigin = OriginNone
	}

	mode, ok := ParseMode(src.PricingMode())
	if !ok && rec != nil {
		mode, _ = ParseMode(rec.PricingMode)
	}

	meta = &Metadata{Items: items, BoxOrigin: boxOrigin}
	if mode == ModeFixed {
		fixed, _ := resolveAmount(src.FixedPrice(), rec, func(r *storage.BundleRecord) string { return r.FixedPrice })
		total, _ := resolveAmount(src.BundleTotal(), rec, func(r *storage.BundleRecord) string { return r.BundleTotal })
		meta.Pricing = FixedPricing{FixedPrice: fixed, BundleTotal: total, BoxPrice: box}
	} else {
		meta.Pricing = SumPricing{BoxPrice: box}
	}
	return meta
}

func (e Extractor) fallback(ctx context.Context, key string) *storage.BundleRecord {
	if e.Store == nil || key == "" {
		return nil
	}
	rec, err := e.Store.GetBundle(ctx, key)
	if err != nil {
		e.logger().Warn("bundle fallback lookup failed",
			slog.String("item_key", key),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return rec
}

func (e Extractor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// resolveAmount prefers the line value; the record is consulted only when the line has none.
// Negative amounts are treated as absent.
func resolveAmount(lineValue any, rec *storage.BundleRecord, field func(*storage.BundleRecord) string) (decimal.NullDecimal, Origin) {
	if v := model.ParseAmount(lineValue); v.Valid && !v.Decimal.IsNegative() {
		return v, OriginLine
	}
	if rec != nil {
		if v := model.ParseAmount(field(rec)); v.Valid && !v.Decimal.IsNegative() {
			return v, OriginFallback
		}
	}
	return decimal.NullDecimal{}, OriginNone
}
