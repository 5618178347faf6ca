package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"storefront-proxy/internal/events"
	"storefront-proxy/internal/metrics"
	"storefront-proxy/internal/model"
	"storefront-proxy/internal/woocommerce"
)

// RefundRequest is the body of POST /api/myfatoorah/refund.
// An empty Amount refunds the order total.
type RefundRequest struct {
	OrderID int    `json:"order_id"`
	Amount  string `json:"amount,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// RefundResult reports a completed refund.
type RefundResult struct {
	OrderID         int    `json:"order_id"`
	Amount          string `json:"amount"`
	RefundID        int64  `json:"refund_id"`
	RefundReference string `json:"refund_reference,omitempty"`
	StoreRefundID   int    `json:"store_refund_id,omitempty"`
	// Recorded is false when the gateway refunded but WooCommerce did not
	// accept the refund record. An order note still documents the refund.
	Recorded bool `json:"recorded"`
}

// Refund refunds an order through MyFatoorah and records it in WooCommerce
// without asking WooCommerce to move money again.
func (s *Service) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if err := s.requireGateway(); err != nil {
		return nil, err
	}
	if req.OrderID <= 0 {
		return nil, model.NewMissingFieldError("order_id")
	}

	order, err := s.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	key, keyType := paymentKey(order)
	if key == "" {
		return nil, model.NewInvalidFieldError("order", "order has no MyFatoorah payment")
	}

	remaining := refundable(order)
	if !remaining.IsPositive() {
		return nil, model.NewInvalidFieldError("order", "order is already fully refunded")
	}
	amount := remaining
	if strings.TrimSpace(req.Amount) != "" {
		parsed := model.ParseAmount(req.Amount)
		if !parsed.Valid {
			return nil, model.NewInvalidFieldError("amount", "not a number")
		}
		amount = parsed.Decimal
	}
	if !amount.IsPositive() {
		return nil, model.NewInvalidFieldError("amount", "must be positive")
	}
	if amount.GreaterThan(remaining) {
		return nil, model.NewInvalidFieldError("amount", "exceeds the refundable balance of "+model.FormatAmount(remaining, s.places))
	}

	reason := strings.TrimSpace(req.Reason)
	refund, err := s.gateway.MakeRefund(ctx, key, keyType, amount, reason)
	metrics.RecordOperation("myfatoorah_refund", err == nil)
	if err != nil {
		return nil, err
	}

	formatted := model.FormatAmount(amount, s.places)
	result := &RefundResult{
		OrderID:         order.ID,
		Amount:          formatted,
		RefundID:        refund.RefundID,
		RefundReference: refund.RefundReference,
	}

	stored, err := s.store.CreateRefund(ctx, order.ID, woocommerce.RefundRequest{
		Amount:    formatted,
		Reason:    reason,
		APIRefund: false,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "recording refund in store failed",
			slog.Int("order_id", order.ID),
			slog.Int64("refund_id", refund.RefundID),
			slog.String("error", err.Error()),
		)
	} else {
		result.StoreRefundID = stored.ID
		result.Recorded = true
	}

	note := fmt.Sprintf("MyFatoorah refund of %s %s created (RefundId %d, %s %s).",
		formatted, order.Currency, refund.RefundID, keyType, key)
	if reason != "" {
		note += " Reason: " + reason
	}
	if _, err := s.store.AddOrderNote(ctx, order.ID, note, false); err != nil {
		s.logger.WarnContext(ctx, "adding refund note failed",
			slog.Int("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order refunded",
		slog.Int("order_id", order.ID),
		slog.String("amount", formatted),
		slog.Int64("refund_id", refund.RefundID),
	)
	events.PublishLogged(ctx, s.events, s.logger, events.New(events.TypeOrderRefunded, order.ID, result))

	return result, nil
}

// refundable is the order total less the refunds already recorded on it.
// WooCommerce reports refund totals as negative amounts.
func refundable(order *woocommerce.Order) decimal.Decimal {
	left := model.ParseDecimal(order.Total)
	for _, r := range order.Refunds {
		left = left.Sub(model.ParseDecimal(r.Total).Abs())
	}
	return left
}

// RefundStatus returns the gateway status of a refund.
func (s *Service) RefundStatus(ctx context.Context, refundID string) (any, error) {
	if err := s.requireGateway(); err != nil {
		return nil, err
	}
	refundID = strings.TrimSpace(refundID)
	if refundID == "" {
		return nil, model.NewMissingFieldError("refund_id")
	}
	statuses, err := s.gateway.GetRefundStatus(ctx, refundID)
	if err != nil {
		return nil, err
	}
	return statuses, nil
}
