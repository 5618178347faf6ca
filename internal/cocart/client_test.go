package cocart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleCart = `{
	"cart_key": "guest-123",
	"currency": {"currency_code": "KWD", "currency_symbol": "د.ك", "currency_minor_unit": 3},
	"items": [{
		"item_key": "abc",
		"id": 42,
		"name": "Flower Box",
		"price": "12500",
		"quantity": {"value": 2, "min_purchase": 1, "max_purchase": -1},
		"totals": {"subtotal": 25000, "subtotal_tax": 0, "total": 25000, "tax": 0},
		"cart_item_data": {"bundle_items": "[{\"product_id\":7}]", "box_price": "2.5"}
	}],
	"item_count": 2,
	"coupons": [],
	"totals": {"subtotal": "25000", "total": "25000"}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{StoreURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestGetCart_GuestPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/cocart/v2/cart" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("cart_key"); got != "guest-123" {
			t.Errorf("cart_key = %q", got)
		}
		if got := r.URL.Query().Get("currency"); got != "KWD" {
			t.Errorf("currency = %q", got)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("guest path must not send Authorization")
		}
		w.Write([]byte(sampleCart))
	})

	res, err := c.GetCart(context.Background(), Identity{CartKey: "guest-123", Currency: "KWD"})
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}

	if res.CartKey != "guest-123" {
		t.Errorf("CartKey = %q", res.CartKey)
	}
	if len(res.Cart.Items) != 1 {
		t.Fatalf("items = %d", len(res.Cart.Items))
	}
	item := res.Cart.Items[0]
	if item.Quantity.Value != 2 || item.Totals.Total != "25000" || item.Price != "12500" {
		t.Errorf("item = %+v", item)
	}
	if item.CartItemData["box_price"] != "2.5" {
		t.Errorf("cart_item_data = %+v", item.CartItemData)
	}
	if res.Cart.Currency.CurrencyMinorUnit != 3 {
		t.Errorf("minor unit = %d", res.Cart.Currency.CurrencyMinorUnit)
	}
}

func TestGetCart_AuthPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Query().Has("cart_key") {
			t.Error("authenticated path must not send cart_key")
		}
		w.Header().Set(CartKeyHeader, "user-9")
		w.Write([]byte(`{"items": []}`))
	})

	res, err := c.GetCart(context.Background(), Identity{Token: "tok", CartKey: "guest-123"})
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if res.CartKey != "user-9" {
		t.Errorf("CartKey = %q, want header value", res.CartKey)
	}
}

func TestAddItem_WireFormat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/wp-json/cocart/v2/cart/add-item" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["id"] != "99" || body["quantity"] != "3" {
			t.Errorf("body = %v", body)
		}
		data, _ := body["item_data"].(map[string]any)
		if data["pricing_mode"] != "fixed" {
			t.Errorf("item_data = %v", body["item_data"])
		}
		w.Write([]byte(sampleCart))
	})

	_, err := c.AddItem(context.Background(), Identity{}, AddItemRequest{
		ProductID:   42,
		VariationID: 99,
		Quantity:    3,
		ItemData:    map[string]any{"pricing_mode": "fixed"},
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
}

func TestUpdateAndRemove_Paths(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPost {
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"quantity":"4"}` {
				t.Errorf("update body = %s", body)
			}
		}
		w.Write([]byte(`{"items": []}`))
	})

	ctx := context.Background()
	if _, err := c.UpdateItem(ctx, Identity{}, "abc", 4); err != nil {
		t.Fatal(err)
	}
	if _, err := c.RemoveItem(ctx, Identity{}, "abc"); err != nil {
		t.Fatal(err)
	}

	want := []string{"POST /wp-json/cocart/v2/cart/item/abc", "DELETE /wp-json/cocart/v2/cart/item/abc"}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Errorf("calls = %v, want %v", seen, want)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantAuth bool
	}{
		{"jwt invalid", 401, `{"code":"cocart_jwt_auth_invalid_token","message":"Invalid token."}`, true},
		{"forbidden authentication", 403, `{"code":"rest_forbidden","message":"Authentication required"}`, true},
		{"unauthorized message", 401, `{"code":"x","message":"Unauthorized"}`, true},
		{"403 unrelated", 403, `{"code":"cocart_cannot_add","message":"Product is out of stock"}`, false},
		{"404 token wording", 404, `{"code":"not_found","message":"token"}`, false},
		{"400", 400, `{"code":"cocart_product_id_required","message":"Product ID is required"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.GetCart(context.Background(), Identity{Token: "stale"})
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *StatusError", err)
			}
			if se.Status != tt.status {
				t.Errorf("Status = %d", se.Status)
			}
			if got := IsAuthError(err); got != tt.wantAuth {
				t.Errorf("IsAuthError = %v, want %v", got, tt.wantAuth)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := New(Config{StoreURL: url})
	_, err := c.GetCart(context.Background(), Identity{})

	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("err = %v, want *NetworkError", err)
	}
	if IsAuthError(err) {
		t.Error("network errors are not auth errors")
	}
}

func TestQuantity_BareNumber(t *testing.T) {
	var item Item
	if err := json.Unmarshal([]byte(`{"item_key":"k","quantity":3,"price":1250}`), &item); err != nil {
		t.Fatal(err)
	}
	if item.Quantity.Value != 3 {
		t.Errorf("Quantity = %+v", item.Quantity)
	}
	if item.Price != "1250" {
		t.Errorf("Price = %q", item.Price)
	}
}

func TestNew_RequiresStoreURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing store URL")
	}
}
