// Package orders implements the order side of the storefront: MyFatoorah
// refunds, payment status sync, and the bundle breakdown of placed orders.
package orders

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"storefront-proxy/internal/bundle"
	"storefront-proxy/internal/events"
	"storefront-proxy/internal/model"
	"storefront-proxy/internal/myfatoorah"
	"storefront-proxy/internal/woocommerce"
)

// Order meta keys written by the MyFatoorah WooCommerce plugin.
const (
	MetaPaymentID = "_myfatoorah_payment_id"
	MetaInvoiceID = "_myfatoorah_invoice_id"
)

// Store is the REST v3 order surface of the WooCommerce client.
type Store interface {
	GetOrder(ctx context.Context, orderID int) (*woocommerce.Order, error)
	ListOrders(ctx context.Context, q woocommerce.OrderQuery) ([]woocommerce.Order, error)
	UpdateOrder(ctx context.Context, orderID int, update woocommerce.OrderUpdate) (*woocommerce.Order, error)
	CreateRefund(ctx context.Context, orderID int, req woocommerce.RefundRequest) (*woocommerce.Refund, error)
	AddOrderNote(ctx context.Context, orderID int, note string, customerNote bool) (*woocommerce.OrderNote, error)
	// CurrentUser resolves the customer a bearer token belongs to.
	CurrentUser(ctx context.Context, token string) (*model.User, error)
}

// Gateway is the MyFatoorah surface.
type Gateway interface {
	MakeRefund(ctx context.Context, key string, keyType myfatoorah.KeyType, amount decimal.Decimal, comment string) (*myfatoorah.Refund, error)
	GetRefundStatus(ctx context.Context, refundID string) ([]myfatoorah.RefundStatus, error)
	GetPaymentStatus(ctx context.Context, key string, keyType myfatoorah.KeyType) (*myfatoorah.PaymentStatus, error)
}

// Config wires a Service.
type Config struct {
	Store       Store
	Gateway     Gateway
	Events      events.Publisher     // optional
	Bundles     bundle.FallbackStore // optional
	Places      int                  // decimals for amounts sent to WooCommerce, default 3
	Concurrency int                  // payment status lookups in flight during sync, default 4
	Logger      *slog.Logger
}

// Service runs order operations.
type Service struct {
	store       Store
	gateway     Gateway
	events      events.Publisher
	bundles     bundle.FallbackStore
	places      int
	concurrency int
	logger      *slog.Logger
}

// New creates an order service.
func New(cfg Config) *Service {
	s := &Service{
		store:       cfg.Store,
		gateway:     cfg.Gateway,
		events:      cfg.Events,
		bundles:     cfg.Bundles,
		places:      cfg.Places,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	if s.places <= 0 {
		s.places = 3
	}
	if s.concurrency <= 0 {
		s.concurrency = 4
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// errPaymentsUnavailable is returned by gateway operations when no gateway is configured.
var errPaymentsUnavailable = &model.APIError{
	Code:       "payments_unavailable",
	Message:    "the payment gateway is not configured",
	StatusCode: http.StatusServiceUnavailable,
}

func (s *Service) requireGateway() error {
	if s.gateway == nil {
		return errPaymentsUnavailable
	}
	return nil
}

// paymentKey finds the gateway key of an order. The payment id is preferred.
func paymentKey(o *woocommerce.Order) (string, myfatoorah.KeyType) {
	if id := o.MetaString(MetaPaymentID); id != "" {
		return id, myfatoorah.KeyPaymentID
	}
	if id := o.MetaString(MetaInvoiceID); id != "" {
		return id, myfatoorah.KeyInvoiceID
	}
	return "", ""
}

// paidWithGateway reports whether an order went through MyFatoorah.
func paidWithGateway(o *woocommerce.Order) bool {
	if strings.HasPrefix(strings.ToLower(o.PaymentMethod), "myfatoorah") {
		return true
	}
	key, _ := paymentKey(o)
	return key != ""
}

// Bundles returns the bundle breakdown of an order owned by the customer the
// bearer token belongs to. Ownership is decided by WordPress, never by the
// client-written user cookie.
func (s *Service) Bundles(ctx context.Context, token string, orderID int, opts bundle.Options) ([]bundle.BreakdownView, error) {
	if token == "" {
		return nil, model.NewUnauthenticatedError("order")
	}
	if orderID <= 0 {
		return nil, model.NewMissingFieldError("order_id")
	}

	user, err := s.store.CurrentUser(ctx, token)
	if err != nil {
		if apiErr, ok := model.AsAPIError(err); ok && (apiErr.UpstreamStatus == http.StatusUnauthorized || apiErr.UpstreamStatus == http.StatusForbidden) {
			return nil, model.NewUnauthenticatedError("order")
		}
		return nil, err
	}
	if user.ID <= 0 {
		return nil, model.NewUnauthenticatedError("order")
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != user.ID {
		s.logger.WarnContext(ctx, "order ownership mismatch",
			slog.Int("order_id", orderID),
			slog.Int("user_id", user.ID),
		)
		return nil, model.NewForbiddenError("order")
	}

	e := bundle.Extractor{Store: s.bundles, Logger: s.logger}
	return bundle.Lines(ctx, e, Sources(order), opts), nil
}

// Sources adapts the lines of an order for bundle reconciliation.
func Sources(o *woocommerce.Order) []bundle.Source {
	if o == nil {
		return nil
	}
	sources := make([]bundle.Source, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		meta := make([]bundle.MetaEntry, 0, len(li.MetaData))
		for _, m := range li.MetaData {
			meta = append(meta, bundle.MetaEntry{ID: m.ID, Key: m.Key, Value: m.Value})
		}
		sources = append(sources, bundle.OrderLine{
			ID:    li.ID,
			Qty:   li.Quantity,
			Total: model.ParseAmount(li.Total),
			Meta:  meta,
		})
	}
	return sources
}
