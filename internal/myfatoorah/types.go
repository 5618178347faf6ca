package myfatoorah

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// KeyType selects what Key identifies in a request.
type KeyType string

const (
	KeyPaymentID KeyType = "PaymentId"
	KeyInvoiceID KeyType = "InvoiceId"
	KeyRefundID  KeyType = "RefundId"
)

// Invoice statuses reported by GetPaymentStatus.
const (
	InvoicePaid     = "Paid"
	InvoicePending  = "Pending"
	InvoiceFailed   = "Failed"
	InvoiceExpired  = "Expired"
	InvoiceCanceled = "Canceled"
)

// envelope is the wrapper of every gateway response.
type envelope struct {
	IsSuccess        bool              `json:"IsSuccess"`
	Message          string            `json:"Message"`
	ValidationErrors []ValidationError `json:"ValidationErrors"`
	Data             json.RawMessage   `json:"Data"`
}

// ValidationError is one field error of a rejected request.
type ValidationError struct {
	Name  string `json:"Name"`
	Error string `json:"Error"`
}

func (e envelope) errorMessage() string {
	parts := make([]string, 0, len(e.ValidationErrors)+1)
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	for _, v := range e.ValidationErrors {
		if v.Name != "" {
			parts = append(parts, v.Name+": "+v.Error)
		} else if v.Error != "" {
			parts = append(parts, v.Error)
		}
	}
	return strings.Join(parts, "; ")
}

// RefundRequest is the body of MakeRefund.
type RefundRequest struct {
	Key                     string      `json:"Key"`
	KeyType                 KeyType     `json:"KeyType"`
	RefundChargeOnCustomer  bool        `json:"RefundChargeOnCustomer"`
	ServiceChargeOnCustomer bool        `json:"ServiceChargeOnCustomer"`
	Amount                  json.Number `json:"Amount"`
	Comment                 string      `json:"Comment,omitempty"`
}

// Refund is the MakeRefund result.
type Refund struct {
	Key             string          `json:"Key"`
	RefundID        int64           `json:"RefundId"`
	RefundReference string          `json:"RefundReference"`
	RefundAmount    decimal.Decimal `json:"RefundAmount"`
	Amount          decimal.Decimal `json:"Amount"`
}

// RefundStatus is one entry of GetRefundStatus.
type RefundStatus struct {
	RefundID        int64           `json:"RefundId"`
	RefundStatus    string          `json:"RefundStatus"`
	InvoiceID       int64           `json:"InvoiceId"`
	Amount          decimal.Decimal `json:"Amount"`
	RefundReference string          `json:"RefundReference"`
	RefundAvailable bool            `json:"RefundAvailable,omitempty"`
}

type refundStatusData struct {
	RefundStatusResult []RefundStatus `json:"RefundStatusResult"`
}

// PaymentStatus is the GetPaymentStatus result.
type PaymentStatus struct {
	InvoiceID           int64           `json:"InvoiceId"`
	InvoiceStatus       string          `json:"InvoiceStatus"`
	InvoiceReference    string          `json:"InvoiceReference"`
	CustomerReference   string          `json:"CustomerReference"`
	InvoiceValue        decimal.Decimal `json:"InvoiceValue"`
	InvoiceTransactions []Transaction   `json:"InvoiceTransactions"`
}

// Transaction is one payment attempt on an invoice.
type Transaction struct {
	TransactionID     string `json:"TransactionId"`
	PaymentID         string `json:"PaymentId"`
	PaymentGateway    string `json:"PaymentGateway"`
	TransactionStatus string `json:"TransactionStatus"`
	Error             string `json:"Error,omitempty"`
}

// SuccessfulTransaction returns the transaction that settled the invoice, if any.
func (p *PaymentStatus) SuccessfulTransaction() *Transaction {
	if p == nil {
		return nil
	}
	for i := len(p.InvoiceTransactions) - 1; i >= 0; i-- {
		tx := &p.InvoiceTransactions[i]
		// The gateway spells it "Succss".
		if s := strings.ToLower(tx.TransactionStatus); s == "succss" || s == "success" {
			return tx
		}
	}
	return nil
}

type keyRequest struct {
	Key     string  `json:"Key"`
	KeyType KeyType `json:"KeyType"`
}
