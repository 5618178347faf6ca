package woocommerce

import (
	"encoding/json"
	"testing"
)

func TestBatch_UpdateCustomerShippingOnly(t *testing.T) {
	addr := &WooAddress{Country: "KW", State: "KW-AH", Postcode: "54000"}
	req := NewBatch().UpdateCustomer(nil, addr).Build()

	if req == nil || len(req.Requests) != 1 {
		t.Fatalf("requests = %v, want 1 operation", req)
	}

	op := req.Requests[0]
	if op.Path != "/wc/store/v1/cart/update-customer" || op.Method != "POST" {
		t.Errorf("op = %s %s", op.Method, op.Path)
	}

	var body map[string]map[string]string
	if err := json.Unmarshal(op.Body, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if _, ok := body["billing_address"]; ok {
		t.Error("billing_address should be omitted when nil")
	}
	if body["shipping_address"]["state"] != "KW-AH" {
		t.Errorf("shipping_address = %v", body["shipping_address"])
	}
}

func TestBatch_EmptyInputsQueueNothing(t *testing.T) {
	b := NewBatch().
		UpdateCustomer(nil, nil).
		SelectShippingRate("", 0).
		ApplyCoupon("").
		RemoveCoupon("")

	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
	if b.Build() != nil {
		t.Error("Build() should return nil for an empty batch")
	}
}

func TestBatch_SelectShippingRateBody(t *testing.T) {
	req := NewBatch().SelectShippingRate("flat_rate:3", 1).Build()

	var body struct {
		PackageID int    `json:"package_id"`
		RateID    string `json:"rate_id"`
	}
	if err := json.Unmarshal(req.Requests[0].Body, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.RateID != "flat_rate:3" || body.PackageID != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestBatch_KeepsQueueOrder(t *testing.T) {
	req := NewBatch().
		UpdateCustomer(&WooAddress{Country: "KW"}, nil).
		RemoveCoupon("OLD").
		ApplyCoupon("EID10").
		SelectShippingRate("free_shipping:1", 0).
		Build()

	want := []string{
		"/wc/store/v1/cart/update-customer",
		"/wc/store/v1/cart/remove-coupon",
		"/wc/store/v1/cart/apply-coupon",
		"/wc/store/v1/cart/select-shipping-rate",
	}
	if len(req.Requests) != len(want) {
		t.Fatalf("requests = %d, want %d", len(req.Requests), len(want))
	}
	for i, path := range want {
		if req.Requests[i].Path != path {
			t.Errorf("op %d path = %s, want %s", i, req.Requests[i].Path, path)
		}
	}
}

func TestWooBatchRequest_InjectHeaders(t *testing.T) {
	req := NewBatch().ApplyCoupon("A").SelectShippingRate("r", 0).Build()
	req.Requests[1].Headers = map[string]string{"X-Keep": "1"}
	req.InjectHeaders(map[string]string{"Nonce": "n1", "Cart-Token": "t1"})

	for i, op := range req.Requests {
		if op.Headers["Nonce"] != "n1" || op.Headers["Cart-Token"] != "t1" {
			t.Errorf("op %d headers = %v", i, op.Headers)
		}
	}
	if req.Requests[1].Headers["X-Keep"] != "1" {
		t.Error("existing operation headers were dropped")
	}
}
