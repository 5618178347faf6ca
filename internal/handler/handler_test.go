package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront-proxy/internal/account"
	"storefront-proxy/internal/adapter"
	"storefront-proxy/internal/bundle"
	"storefront-proxy/internal/cart"
	"storefront-proxy/internal/cocart"
	"storefront-proxy/internal/model"
	"storefront-proxy/internal/negotiation"
	"storefront-proxy/internal/orders"
	"storefront-proxy/internal/shipping"
	"storefront-proxy/internal/wishlist"
)

func testHandler(mock *adapter.Mock, opts Options) *http.ServeMux {
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Negotiation.DefaultCurrency == "" {
		opts.Negotiation.DefaultCurrency = "KWD"
	}
	h := New(mock.Services(), opts)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *model.ErrorBody `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v\nBody: %s", err, w.Body.String())
	}
	return env
}

func serve(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func jsonBody(v any) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func TestHandleHealth(t *testing.T) {
	mux := testHandler(&adapter.Mock{}, Options{})

	for _, path := range []string{"/health", "/healthz"} {
		w := serve(mux, httptest.NewRequest("GET", path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: Status = %d, want %d", path, w.Code, http.StatusOK)
		}
		var resp healthResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.Status != "ok" {
			t.Errorf("%s: Status = %s, want ok", path, resp.Status)
		}
	}
}

func TestHandleGetCart_SessionFromCookies(t *testing.T) {
	var got *model.Session
	mock := &adapter.Mock{
		GetCartFunc: func(ctx context.Context, sess *model.Session) (*cart.Result, error) {
			got = sess
			return &cart.Result{
				Cart:    &cocart.Cart{CartKey: "guest-2", ItemCount: 1, Items: []cocart.Item{{ItemKey: "a", ID: 5}}},
				CartKey: "guest-2",
				Guest:   true,
			}, nil
		},
	}
	mux := testHandler(mock, Options{})

	req := httptest.NewRequest("GET", "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: model.CookieCartKey, Value: "guest-1"})
	req.AddCookie(&http.Cookie{Name: model.CookieToken, Value: "jwt"})
	req.AddCookie(&http.Cookie{Name: model.CookieUser, Value: "%7B%22id%22%3A7%7D"})
	req.AddCookie(&http.Cookie{Name: model.CookieCurrency, Value: "usd"})
	w := serve(mux, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200\nBody: %s", w.Code, w.Body.String())
	}
	if got == nil {
		t.Fatal("GetCart not called")
	}
	if got.CartKey != "guest-1" || got.Token != "jwt" || got.Currency != "USD" {
		t.Errorf("session = %+v", got)
	}
	if got.User == nil || got.User.ID != 7 {
		t.Errorf("User = %+v, want id 7", got.User)
	}

	env := decodeEnvelope(t, w)
	if !env.Success {
		t.Fatalf("Success = false: %s", w.Body.String())
	}
	var c cocart.Cart
	if err := json.Unmarshal(env.Data, &c); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if c.CartKey != "guest-2" || len(c.Items) != 1 {
		t.Errorf("cart = %+v", c)
	}

	var cookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == model.CookieCartKey {
			cookie = ck
		}
	}
	if cookie == nil {
		t.Fatal("cart cookie not set")
	}
	if cookie.Value != "guest-2" || !cookie.HttpOnly || cookie.MaxAge != 7*24*60*60 || cookie.Path != "/" {
		t.Errorf("cookie = %+v", cookie)
	}
}

func TestHandleGetCart_EmptyResult(t *testing.T) {
	mux := testHandler(&adapter.Mock{}, Options{})

	w := serve(mux, httptest.NewRequest("GET", "/api/cart", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d", w.Code)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("no cart key means no cookie")
	}
	if !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Errorf("empty cart should list no items: %s", w.Body.String())
	}
}

func TestHandleGetCart_UsesNegotiatedContext(t *testing.T) {
	var got *model.Session
	mock := &adapter.Mock{
		GetCartFunc: func(ctx context.Context, sess *model.Session) (*cart.Result, error) {
			got = sess
			return &cart.Result{}, nil
		},
	}
	mux := testHandler(mock, Options{})

	sess := &model.Session{CartKey: "from-middleware", Lang: "ar"}
	req := httptest.NewRequest("GET", "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: model.CookieCartKey, Value: "from-cookie"})
	req = req.WithContext(negotiation.WithContext(req.Context(), &negotiation.Context{Lang: "ar", Session: sess}))
	serve(mux, req)

	if got != sess {
		t.Errorf("session = %+v, want the negotiated one", got)
	}
}

func TestHandleCartAction(t *testing.T) {
	var got cart.Request
	mock := &adapter.Mock{
		CartDoFunc: func(ctx context.Context, sess *model.Session, req cart.Request) (*cart.Result, error) {
			got = req
			return &cart.Result{Cart: &cocart.Cart{CartKey: "k"}, CartKey: "k"}, nil
		},
	}
	mux := testHandler(mock, Options{})

	body := `{"action":"add","product_id":"12","quantity":2,"bundle_items":[{"product_id":1}],"box_price":"1.500"}`
	w := serve(mux, httptest.NewRequest("POST", "/api/cart", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d\nBody: %s", w.Code, w.Body.String())
	}
	if got.Action != cart.OpAdd || got.ProductID != 12 || got.Quantity == nil || *got.Quantity != 2 {
		t.Errorf("request = %+v", got)
	}
	if got.BoxPrice != "1.500" || got.BundleItems == nil {
		t.Errorf("bundle fields not forwarded: %+v", got)
	}
}

func TestHandleCartAction_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		lang       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "invalid json",
			body:       `{not json`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_body",
		},
		{
			name:       "validation localized",
			body:       `{"action":"add"}`,
			lang:       "ar-KW,ar;q=0.9",
			err:        model.NewMissingFieldError("product_id"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "missing_product_id",
			wantMsg:    "يرجى اختيار منتج.",
		},
		{
			name:       "upstream status mirrored",
			body:       `{"action":"apply-coupon","code":"X"}`,
			err:        model.NewUpstreamError("coupon", http.StatusNotFound, "woocommerce_rest_cart_coupon_error", "Coupon does not exist"),
			wantStatus: http.StatusNotFound,
			wantCode:   "coupon_error",
			wantMsg:    "This coupon could not be applied.",
		},
		{
			name:       "network error",
			body:       `{"action":"clear"}`,
			err:        model.NewNetworkError("CoCart", errors.New("dial tcp: refused")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "network_error",
			wantMsg:    "We couldn't reach the store. Please check your connection and try again.",
		},
		{
			name:       "unexpected error hidden",
			body:       `{"action":"clear"}`,
			err:        errors.New("db password is hunter2"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
			wantMsg:    "Something went wrong. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &adapter.Mock{
				CartDoFunc: func(ctx context.Context, sess *model.Session, req cart.Request) (*cart.Result, error) {
					return nil, tt.err
				},
			}
			mux := testHandler(mock, Options{})

			req := httptest.NewRequest("POST", "/api/cart", strings.NewReader(tt.body))
			if tt.lang != "" {
				req.Header.Set("Accept-Language", tt.lang)
			}
			w := serve(mux, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
			env := decodeEnvelope(t, w)
			if env.Success || env.Error == nil {
				t.Fatalf("want failed envelope, got %s", w.Body.String())
			}
			if env.Error.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", env.Error.Code, tt.wantCode)
			}
			if tt.wantMsg != "" && env.Error.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", env.Error.Message, tt.wantMsg)
			}
			if strings.Contains(w.Body.String(), "hunter2") {
				t.Error("internal error details leaked")
			}
		})
	}
}

func TestHandleCartBundles(t *testing.T) {
	var gotOpts bundle.Options
	mock := &adapter.Mock{
		CartBundlesFunc: func(ctx context.Context, sess *model.Session, opts bundle.Options) (*cart.Result, []bundle.BreakdownView, error) {
			gotOpts = opts
			return &cart.Result{Cart: &cocart.Cart{CartKey: "k"}, CartKey: "k"},
				[]bundle.BreakdownView{{ItemKey: "a", Total: "5.000", Items: []bundle.ItemView{}}}, nil
		},
	}
	mux := testHandler(mock, Options{Places: 3})

	req := httptest.NewRequest("GET", "/api/cart/bundles", nil)
	req.Header.Set("Accept-Language", "ar")
	w := serve(mux, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d\nBody: %s", w.Code, w.Body.String())
	}
	if gotOpts.Lang != "ar" || gotOpts.Places != 3 {
		t.Errorf("opts = %+v", gotOpts)
	}

	var out bundlesResponse
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Bundles) != 1 || out.Bundles[0].Total != "5.000" {
		t.Errorf("bundles = %+v", out.Bundles)
	}
	if out.Cart == nil || out.Cart.CartKey != "k" {
		t.Errorf("cart = %+v", out.Cart)
	}
}

func TestHandleOrderBundles(t *testing.T) {
	var gotToken string
	var gotID int
	mock := &adapter.Mock{
		OrderBundlesFunc: func(ctx context.Context, token string, orderID int, opts bundle.Options) ([]bundle.BreakdownView, error) {
			gotToken, gotID = token, orderID
			return nil, nil
		},
	}
	mux := testHandler(mock, Options{})

	req := httptest.NewRequest("GET", "/api/orders/42/bundles", nil)
	req.AddCookie(&http.Cookie{Name: model.CookieToken, Value: "jwt-7"})
	req.AddCookie(&http.Cookie{Name: model.CookieUser, Value: "%7B%22id%22%3A9%7D"})
	w := serve(mux, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d\nBody: %s", w.Code, w.Body.String())
	}
	if gotID != 42 || gotToken != "jwt-7" {
		t.Errorf("order %d token %q", gotID, gotToken)
	}
	if !strings.Contains(w.Body.String(), `"bundles":[]`) {
		t.Errorf("nil breakdowns should render as []: %s", w.Body.String())
	}

	w = serve(mux, httptest.NewRequest("GET", "/api/orders/abc/bundles", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("non numeric id: Status = %d, want 400", w.Code)
	}
	if env := decodeEnvelope(t, w); env.Error == nil || env.Error.Code != "invalid_order_id" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestHandleWishlist(t *testing.T) {
	var gotReq wishlist.Request
	mock := &adapter.Mock{
		WishlistDoFunc: func(ctx context.Context, user *model.User, req wishlist.Request) (any, error) {
			if user == nil {
				return nil, model.NewUnauthenticatedError("wishlist")
			}
			gotReq = req
			return &wishlist.Wishlist{ID: 3}, nil
		},
	}
	mux := testHandler(mock, Options{})

	w := serve(mux, httptest.NewRequest("GET", "/api/wishlist", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("guest GET: Status = %d, want 401", w.Code)
	}
	if env := decodeEnvelope(t, w); env.Error == nil || env.Error.Code != "wishlist_unauthenticated" {
		t.Errorf("error = %+v", env.Error)
	}

	req := httptest.NewRequest("POST", "/api/wishlist", jsonBody(map[string]any{"action": "add", "product_id": 9}))
	req.AddCookie(&http.Cookie{Name: model.CookieUser, Value: "%7B%22id%22%3A7%7D"})
	w = serve(mux, req)
	if w.Code != http.StatusOK {
		t.Fatalf("POST: Status = %d\nBody: %s", w.Code, w.Body.String())
	}
	if gotReq.Action != wishlist.ActionAdd || gotReq.ProductID != 9 {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestHandleResolveShipping(t *testing.T) {
	var got shipping.Destination
	mock := &adapter.Mock{
		ResolveShippingFunc: func(ctx context.Context, d shipping.Destination) (*shipping.Resolution, error) {
			got = d
			return &shipping.Resolution{ZoneID: 2, ZoneName: "Kuwait", Rates: []shipping.Rate{{RateID: "flat_rate:3"}}}, nil
		},
	}
	mux := testHandler(mock, Options{})

	w := serve(mux, httptest.NewRequest("GET", "/api/shipping?country=KW&state=KW-AH&postcode=12345", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d\nBody: %s", w.Code, w.Body.String())
	}
	if got != (shipping.Destination{Country: "KW", State: "KW-AH", Postcode: "12345"}) {
		t.Errorf("destination = %+v", got)
	}

	w = serve(mux, httptest.NewRequest("GET", "/api/shipping", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing country: Status = %d, want 400", w.Code)
	}
}

func TestHandleSelectShippingRate(t *testing.T) {
	var got cart.RateSelection
	mock := &adapter.Mock{
		SelectShippingRateFunc: func(ctx context.Context, sess *model.Session, sel cart.RateSelection) (*cart.Result, error) {
			got = sel
			return &cart.Result{Cart: &cocart.Cart{CartKey: "k"}, CartKey: "k"}, nil
		},
	}
	mux := testHandler(mock, Options{})

	w := serve(mux, httptest.NewRequest("POST", "/api/shipping", strings.NewReader(`{"package_id":0,"rate_id":"flat_rate:3"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d\nBody: %s", w.Code, w.Body.String())
	}
	if got.RateID != "flat_rate:3" {
		t.Errorf("selection = %+v", got)
	}
	if len(w.Result().Cookies()) != 1 {
		t.Error("rate selection should refresh the cart cookie")
	}
}

func TestHandleResetPassword(t *testing.T) {
	var gotLang string
	var gotReq account.ResetRequest
	mock := &adapter.Mock{
		ResetFunc: func(ctx context.Context, lang string, req account.ResetRequest) (*account.ResetResult, error) {
			gotLang, gotReq = lang, req
			return &account.ResetResult{Action: "request", Message: "ok"}, nil
		},
	}
	mux := testHandler(mock, Options{})

	req := httptest.NewRequest("POST", "/api/auth/reset-password", strings.NewReader(`{"email":"a@b.co"}`))
	req.Header.Set("Accept-Language", "ar")
	w := serve(mux, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d\nBody: %s", w.Code, w.Body.String())
	}
	if gotLang != "ar" || gotReq.Email != "a@b.co" {
		t.Errorf("lang %q req %+v", gotLang, gotReq)
	}
}

func TestHandleRefund(t *testing.T) {
	var got orders.RefundRequest
	mock := &adapter.Mock{
		RefundFunc: func(ctx context.Context, req orders.RefundRequest) (*orders.RefundResult, error) {
			got = req
			return &orders.RefundResult{OrderID: req.OrderID, Amount: "5.000", RefundID: 77, Recorded: true}, nil
		},
		RefundStatusFunc: func(ctx context.Context, refundID string) (any, error) {
			return map[string]string{"refund_id": refundID, "status": "Refunded"}, nil
		},
	}
	mux := testHandler(mock, Options{SyncSecret: "s3cret"})

	req := httptest.NewRequest("POST", "/api/myfatoorah/refund", strings.NewReader(`{"order_id":12,"amount":"5.000","reason":"damaged"}`))
	req.Header.Set("Authorization", "Bearer s3cret")
	w := serve(mux, req)
	if w.Code != http.StatusOK {
		t.Fatalf("POST: Status = %d\nBody: %s", w.Code, w.Body.String())
	}
	if got.OrderID != 12 || got.Amount != "5.000" || got.Reason != "damaged" {
		t.Errorf("request = %+v", got)
	}

	req = httptest.NewRequest("GET", "/api/myfatoorah/refund?refund_id=77", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w = serve(mux, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET: Status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"refund_id":"77"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestHandleRefund_RequiresSecret(t *testing.T) {
	called := false
	mock := &adapter.Mock{
		RefundFunc: func(ctx context.Context, req orders.RefundRequest) (*orders.RefundResult, error) {
			called = true
			return &orders.RefundResult{}, nil
		},
		RefundStatusFunc: func(ctx context.Context, refundID string) (any, error) {
			called = true
			return nil, nil
		},
	}
	mux := testHandler(mock, Options{SyncSecret: "s3cret"})

	tests := []struct {
		name string
		req  *http.Request
		auth string
	}{
		{"anonymous refund", httptest.NewRequest("POST", "/api/myfatoorah/refund", strings.NewReader(`{"order_id":10}`)), ""},
		{"wrong token refund", httptest.NewRequest("POST", "/api/myfatoorah/refund", strings.NewReader(`{"order_id":10}`)), "Bearer nope"},
		{"anonymous status", httptest.NewRequest("GET", "/api/myfatoorah/refund?refund_id=1", nil), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.auth != "" {
				tt.req.Header.Set("Authorization", tt.auth)
			}
			w := serve(mux, tt.req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("Status = %d, want 401\nBody: %s", w.Code, w.Body.String())
			}
			if env := decodeEnvelope(t, w); env.Error == nil || env.Error.Code != "refund_unauthenticated" {
				t.Errorf("envelope = %+v", env)
			}
		})
	}
	if called {
		t.Error("refund service reached without authorization")
	}
}

func TestHandleSyncOrders(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		method     string
		auth       string
		wantStatus int
		wantDryRun bool
	}{
		{"dry run", "s3cret", "GET", "Bearer s3cret", http.StatusOK, true},
		{"apply", "s3cret", "POST", "Bearer s3cret", http.StatusOK, false},
		{"missing token", "s3cret", "POST", "", http.StatusUnauthorized, false},
		{"wrong token", "s3cret", "POST", "Bearer nope", http.StatusUnauthorized, false},
		{"wrong scheme", "s3cret", "POST", "Basic s3cret", http.StatusUnauthorized, false},
		{"no secret configured", "", "GET", "", http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			var gotDryRun bool
			mock := &adapter.Mock{
				SyncPaymentsFunc: func(ctx context.Context, dryRun bool) (*orders.SyncReport, error) {
					called, gotDryRun = true, dryRun
					return &orders.SyncReport{DryRun: dryRun, Changes: []orders.SyncChange{}}, nil
				},
			}
			mux := testHandler(mock, Options{SyncSecret: tt.secret})

			req := httptest.NewRequest(tt.method, "/api/myfatoorah/sync-orders", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := serve(mux, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				if called {
					t.Error("sync ran without authorization")
				}
				return
			}
			if gotDryRun != tt.wantDryRun {
				t.Errorf("dryRun = %v, want %v", gotDryRun, tt.wantDryRun)
			}
		})
	}
}
