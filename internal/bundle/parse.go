package bundle

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"storefront-proxy/internal/model"
)

// ParseItems validates a raw bundle_items value.
//
// raw may be a decoded JSON array, a JSON string, or raw JSON bytes. Entries
// that are not objects or lack a numeric integral product_id are dropped;
// optional fields of the wrong type are left unset. Returns nil when nothing
// valid remains.
func ParseItems(raw any) []Item {
	entries := toEntries(raw)
	if len(entries) == 0 {
		return nil
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		item, ok := parseItem(obj)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil
	}
	return items
}

func toEntries(raw any) []any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case []Item:
		out := make([]any, 0, len(v))
		for _, it := range v {
			out = append(out, itemToMap(it))
		}
		return out
	case string:
		return decodeEntries([]byte(strings.TrimSpace(v)))
	case json.RawMessage:
		return decodeEntries(v)
	case []byte:
		return decodeEntries(v)
	default:
		return nil
	}
}

func decodeEntries(data []byte) []any {
	if len(data) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil
	}

	switch v := decoded.(type) {
	case []any:
		return v
	case string:
		// Double-encoded: WooCommerce meta sometimes stores the JSON text as a JSON string.
		return decodeEntries([]byte(v))
	default:
		return nil
	}
}

func parseItem(obj map[string]any) (Item, bool) {
	id, ok := toInt(obj["product_id"])
	if !ok {
		return Item{}, false
	}

	item := Item{ProductID: id}

	if name, ok := obj["name"].(string); ok {
		item.Name = &name
	}
	item.Price = model.ParseAmount(obj["price"])
	if q, ok := toInt(obj["quantity"]); ok {
		item.Quantity = &q
	}
	if b, ok := obj["is_addon"].(bool); ok {
		item.IsAddon = b
	}
	if b, ok := obj["is_free"].(bool); ok {
		item.IsFree = b
	}
	return item, true
}

// toInt accepts only numeric values with no fractional part. Strings are rejected.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	default:
		return 0, false
	}
}

// floatToInt rejects NaN, infinities, fractions and values outside the int64 range.
func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
		return 0, false
	}
	return int(f), true
}

func itemToMap(it Item) map[string]any {
	m := map[string]any{
		"product_id": it.ProductID,
		"is_addon":   it.IsAddon,
		"is_free":    it.IsFree,
	}
	if it.Name != nil {
		m["name"] = *it.Name
	}
	if it.Price.Valid {
		m["price"] = it.Price.Decimal
	}
	if it.Quantity != nil {
		m["quantity"] = *it.Quantity
	}
	return m
}
