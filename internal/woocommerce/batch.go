package woocommerce

import (
	"encoding/json"
	"maps"
	"net/http"
)

// batchNamespace prefixes operation paths inside a Store API batch body.
// The batch endpoint routes on the REST namespace, not the full /wp-json URL.
const batchNamespace = "/wc/store/v1"

// Batch collects cart operations for POST /wc/store/v1/batch.
// WooCommerce runs them in order and answers with one result per operation,
// so rate selection can set the destination and pick a rate in one round trip.
type Batch struct {
	ops []WooBatchOperation
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) push(route string, body any) *Batch {
	raw, err := json.Marshal(body)
	if err != nil {
		return b
	}
	b.ops = append(b.ops, WooBatchOperation{
		Path:   batchNamespace + route,
		Method: http.MethodPost,
		Body:   raw,
	})
	return b
}

// UpdateCustomer queues an address change. Nil addresses are left untouched
// upstream; with both nil nothing is queued.
func (b *Batch) UpdateCustomer(billing, shipping *WooAddress) *Batch {
	body := map[string]*WooAddress{}
	if billing != nil {
		body["billing_address"] = billing
	}
	if shipping != nil {
		body["shipping_address"] = shipping
	}
	if len(body) == 0 {
		return b
	}
	return b.push("/cart/update-customer", body)
}

// SelectShippingRate queues a rate choice for one shipping package.
func (b *Batch) SelectShippingRate(rateID string, packageID int) *Batch {
	if rateID == "" {
		return b
	}
	return b.push("/cart/select-shipping-rate", map[string]any{
		"package_id": packageID,
		"rate_id":    rateID,
	})
}

// ApplyCoupon queues a coupon code.
func (b *Batch) ApplyCoupon(code string) *Batch {
	if code == "" {
		return b
	}
	return b.push("/cart/apply-coupon", map[string]string{"code": code})
}

// RemoveCoupon queues a coupon removal.
func (b *Batch) RemoveCoupon(code string) *Batch {
	if code == "" {
		return b
	}
	return b.push("/cart/remove-coupon", map[string]string{"code": code})
}

// Len reports how many operations are queued.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Build returns the request body, or nil when nothing was queued.
func (b *Batch) Build() *WooBatchRequest {
	if len(b.ops) == 0 {
		return nil
	}
	return &WooBatchRequest{Requests: b.ops}
}

// InjectHeaders copies session headers into every operation.
// The batch endpoint does not forward the outer request's Nonce or Cart-Token.
func (r *WooBatchRequest) InjectHeaders(headers map[string]string) {
	for i := range r.Requests {
		if r.Requests[i].Headers == nil {
			r.Requests[i].Headers = make(map[string]string, len(headers))
		}
		maps.Copy(r.Requests[i].Headers, headers)
	}
}
