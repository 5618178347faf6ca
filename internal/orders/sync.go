package orders

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"storefront-proxy/internal/events"
	"storefront-proxy/internal/metrics"
	"storefront-proxy/internal/myfatoorah"
	"storefront-proxy/internal/woocommerce"
)

// Order statuses the sync reads and writes.
const (
	StatusPending    = "pending"
	StatusOnHold     = "on-hold"
	StatusProcessing = "processing"
	StatusFailed     = "failed"
)

// targetStatus maps a gateway invoice status to the order status it implies.
// Pending and unknown statuses leave the order alone.
func targetStatus(invoiceStatus string) string {
	switch invoiceStatus {
	case myfatoorah.InvoicePaid:
		return StatusProcessing
	case myfatoorah.InvoiceFailed, myfatoorah.InvoiceExpired, myfatoorah.InvoiceCanceled:
		return StatusFailed
	default:
		return ""
	}
}

// SyncChange is the outcome for one order.
type SyncChange struct {
	OrderID       int    `json:"order_id"`
	InvoiceStatus string `json:"invoice_status,omitempty"`
	From          string `json:"from"`
	To            string `json:"to,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Applied       bool   `json:"applied"`
	Error         string `json:"error,omitempty"`
}

// SyncReport summarizes a sync run.
type SyncReport struct {
	DryRun    bool         `json:"dry_run"`
	Checked   int          `json:"checked"`
	Changed   int          `json:"changed"`
	Unchanged int          `json:"unchanged"`
	Failed    int          `json:"failed"`
	Changes   []SyncChange `json:"changes"`
}

// SyncPayments reconciles pending MyFatoorah orders with the gateway.
// A dry run reports the changes it would make without applying them.
// Per-order failures are reported, not returned.
func (s *Service) SyncPayments(ctx context.Context, dryRun bool) (*SyncReport, error) {
	if err := s.requireGateway(); err != nil {
		return nil, err
	}
	list, err := s.store.ListOrders(ctx, woocommerce.OrderQuery{
		Status:  []string{StatusPending, StatusOnHold},
		PerPage: 50,
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]woocommerce.Order, 0, len(list))
	for _, o := range list {
		if paidWithGateway(&o) {
			candidates = append(candidates, o)
		}
	}

	results := make([]SyncChange, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range candidates {
		g.Go(func() error {
			results[i] = s.syncOrder(gctx, &candidates[i], dryRun)
			return nil
		})
	}
	g.Wait()

	report := &SyncReport{DryRun: dryRun, Checked: len(candidates), Changes: make([]SyncChange, 0)}
	for _, c := range results {
		switch {
		case c.Error != "":
			report.Failed++
			report.Changes = append(report.Changes, c)
		case c.To == "":
			report.Unchanged++
		default:
			report.Changed++
			report.Changes = append(report.Changes, c)
		}
	}

	s.logger.InfoContext(ctx, "payment sync finished",
		slog.Bool("dry_run", dryRun),
		slog.Int("checked", report.Checked),
		slog.Int("changed", report.Changed),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *Service) syncOrder(ctx context.Context, o *woocommerce.Order, dryRun bool) SyncChange {
	change := SyncChange{OrderID: o.ID, From: o.Status}

	key, keyType := paymentKey(o)
	if key == "" {
		change.Error = "order has no MyFatoorah payment key"
		return change
	}

	status, err := s.gateway.GetPaymentStatus(ctx, key, keyType)
	if err != nil {
		change.Error = err.Error()
		return change
	}
	change.InvoiceStatus = status.InvoiceStatus

	target := targetStatus(status.InvoiceStatus)
	if target == "" || target == o.Status {
		return change
	}
	change.To = target

	update := woocommerce.OrderUpdate{Status: target}
	if target == StatusProcessing {
		if tx := status.SuccessfulTransaction(); tx != nil {
			change.TransactionID = tx.TransactionID
			update.TransactionID = tx.TransactionID
		}
	}
	if dryRun {
		return change
	}

	_, err = s.store.UpdateOrder(ctx, o.ID, update)
	metrics.RecordOperation("payment_sync_update", err == nil)
	if err != nil {
		change.Error = err.Error()
		return change
	}
	change.Applied = true

	events.PublishLogged(ctx, s.events, s.logger, events.New(events.TypeOrderPaymentSynced, o.ID, change))
	return change
}
