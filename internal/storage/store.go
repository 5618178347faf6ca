// Package storage persists bundle metadata that the cart backend fails to round-trip.
//
// CoCart does not reliably keep custom cart_item_data across requests, so the
// cart proxy mirrors bundle data here, keyed by the cart line item key, and the
// reconciler consults it only when the upstream payload comes back empty.
package storage

import (
	"context"
	"encoding/json"
	"time"
)

// BundleRecord is the persisted copy of one cart line's bundle data.
// Scalar amounts are kept as the strings the client sent.
type BundleRecord struct {
	Key         string          `json:"key"`
	Items       json.RawMessage `json:"bundle_items,omitempty"`
	BoxPrice    string          `json:"box_price,omitempty"`
	PricingMode string          `json:"pricing_mode,omitempty"`
	FixedPrice  string          `json:"fixed_price,omitempty"`
	BundleTotal string          `json:"bundle_total,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Empty reports whether the record carries no bundle data at all.
func (r *BundleRecord) Empty() bool {
	if r == nil {
		return true
	}
	return len(r.Items) == 0 && r.BoxPrice == "" && r.PricingMode == "" &&
		r.FixedPrice == "" && r.BundleTotal == ""
}

// Store defines the bundle fallback storage operations.
type Store interface {
	// GetBundle returns the record for key, or nil and no error when absent.
	GetBundle(ctx context.Context, key string) (*BundleRecord, error)

	// PutBundle inserts or replaces the record for rec.Key.
	// A zero UpdatedAt is set to the current time.
	PutBundle(ctx context.Context, rec *BundleRecord) error

	// DeleteBundle removes the record for key. Deleting a missing key is not an error.
	DeleteBundle(ctx context.Context, key string) error

	// PurgeBundlesBefore deletes records last updated before cutoff and
	// returns how many were removed.
	PurgeBundlesBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
