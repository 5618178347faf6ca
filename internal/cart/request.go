package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"storefront-proxy/internal/cocart"
	"storefront-proxy/internal/model"
	"storefront-proxy/internal/storage"
)

// Bundle fields carried in cart_item_data.
var bundleFields = []string{"bundle_items", "box_price", "pricing_mode", "fixed_price", "bundle_total"}

// ID is a product id the frontend may send as a number or a numeric string.
type ID int

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
		if len(data) == 0 {
			*id = 0
			return nil
		}
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("invalid id %q", data)
	}
	*id = ID(n)
	return nil
}

// Request is the body of POST /api/cart.
type Request struct {
	Action      string            `json:"action"`
	ProductID   ID                `json:"product_id,omitempty"`
	VariationID ID                `json:"variation_id,omitempty"`
	Quantity    *int              `json:"quantity,omitempty"`
	Variation   map[string]string `json:"variation,omitempty"`
	ItemKey     string            `json:"item_key,omitempty"`
	Code        string            `json:"code,omitempty"`
	ItemData    map[string]any    `json:"item_data,omitempty"`

	// Bundle fields may also be sent at the top level.
	BundleItems any `json:"bundle_items,omitempty"`
	BoxPrice    any `json:"box_price,omitempty"`
	PricingMode any `json:"pricing_mode,omitempty"`
	FixedPrice  any `json:"fixed_price,omitempty"`
	BundleTotal any `json:"bundle_total,omitempty"`
}

// itemData merges top-level bundle fields into ItemData. ItemData wins.
func (r *Request) itemData() map[string]any {
	data := make(map[string]any, len(r.ItemData)+len(bundleFields))
	top := map[string]any{
		"bundle_items": r.BundleItems,
		"box_price":    r.BoxPrice,
		"pricing_mode": r.PricingMode,
		"fixed_price":  r.FixedPrice,
		"bundle_total": r.BundleTotal,
	}
	for k, v := range top {
		if v != nil {
			data[k] = v
		}
	}
	for k, v := range r.ItemData {
		data[k] = v
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

// Do dispatches a POST /api/cart action.
func (s *Service) Do(ctx context.Context, sess *model.Session, req Request) (*Result, error) {
	switch req.Action {
	case OpAdd:
		return s.Add(ctx, sess, req)
	case OpUpdate:
		if req.Quantity == nil {
			return nil, model.NewInvalidFieldError("quantity", "is required")
		}
		return s.Update(ctx, sess, req.ItemKey, *req.Quantity)
	case OpRemove:
		return s.Remove(ctx, sess, req.ItemKey)
	case OpClear:
		return s.Clear(ctx, sess)
	case OpApplyCoupon:
		return s.ApplyCoupon(ctx, sess, strings.TrimSpace(req.Code))
	case OpRemoveCoupon:
		return s.RemoveCoupon(ctx, sess, strings.TrimSpace(req.Code))
	default:
		return nil, model.NewInvalidFieldError("action", fmt.Sprintf("unsupported action %q", req.Action))
	}
}

// Add adds a product. Bundle data in the request is forwarded as
// cart_item_data and mirrored to the fallback store under the new line's key.
func (s *Service) Add(ctx context.Context, sess *model.Session, req Request) (*Result, error) {
	if req.ProductID <= 0 {
		return nil, model.NewMissingFieldError("product_id")
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	if qty < 1 {
		return nil, model.NewInvalidFieldError("quantity", "must be at least 1")
	}

	add := cocart.AddItemRequest{
		ProductID:   int(req.ProductID),
		VariationID: int(req.VariationID),
		Quantity:    qty,
		Variation:   req.Variation,
		ItemData:    req.itemData(),
	}

	res, err := s.run(ctx, OpAdd, sess, func(id cocart.Identity) (*cocart.Result, error) {
		return s.carts.AddItem(ctx, id, add)
	})
	if err != nil {
		return nil, err
	}

	if hasBundle(add.ItemData) {
		productID := add.ProductID
		if add.VariationID > 0 {
			productID = add.VariationID
		}
		if key := addedLineKey(res.Cart, productID); key != "" {
			s.rememberBundle(ctx, key, add.ItemData)
		}
	}
	return res, nil
}

func hasBundle(data map[string]any) bool {
	v, ok := data["bundle_items"]
	return ok && v != nil
}

// addedLineKey finds the line created for productID. Bundles of the same
// product get distinct lines; the one carrying bundle data is preferred,
// else the last match.
func addedLineKey(c *cocart.Cart, productID int) string {
	if c == nil {
		return ""
	}
	key := ""
	for _, it := range c.Items {
		if it.ID != productID {
			continue
		}
		if hasBundle(it.CartItemData) {
			return it.ItemKey
		}
		key = it.ItemKey
	}
	return key
}

func (s *Service) rememberBundle(ctx context.Context, key string, data map[string]any) {
	if s.bundles == nil {
		return
	}
	rec := bundleRecord(key, data)
	if rec.Empty() {
		return
	}
	if err := s.bundles.PutBundle(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "saving bundle fallback failed",
			slog.String("item_key", key),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) forgetBundle(ctx context.Context, key string) {
	if s.bundles == nil {
		return
	}
	if err := s.bundles.DeleteBundle(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "deleting bundle fallback failed",
			slog.String("item_key", key),
			slog.String("error", err.Error()),
		)
	}
}

// bundleRecord snapshots the bundle fields of item data.
func bundleRecord(key string, data map[string]any) *storage.BundleRecord {
	rec := &storage.BundleRecord{Key: key}

	switch items := data["bundle_items"].(type) {
	case nil:
	case string:
		if json.Valid([]byte(items)) {
			rec.Items = json.RawMessage(items)
		}
	default:
		if raw, err := json.Marshal(items); err == nil {
			rec.Items = raw
		}
	}

	rec.BoxPrice = amountString(data["box_price"])
	rec.FixedPrice = amountString(data["fixed_price"])
	rec.BundleTotal = amountString(data["bundle_total"])
	if mode, ok := data["pricing_mode"].(string); ok {
		rec.PricingMode = strings.TrimSpace(mode)
	}
	return rec
}

func amountString(v any) string {
	d := model.ParseAmount(v)
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
