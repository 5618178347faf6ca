// Package myfatoorah is a client for the MyFatoorah v2 payment gateway API.
package myfatoorah

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storefront-proxy/internal/model"
)

// Gateway base URLs.
const (
	LiveURL = "https://api.myfatoorah.com"
	TestURL = "https://apitest.myfatoorah.com"
)

// Config holds gateway client configuration.
type Config struct {
	BaseURL    string // defaults to LiveURL
	APIKey     string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls the MyFatoorah refund and payment status endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// New creates a gateway client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("MyFatoorah API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = LiveURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		logger:     logger,
	}, nil
}

// MakeRefund refunds amount against a payment or invoice.
func (c *Client) MakeRefund(ctx context.Context, key string, keyType KeyType, amount decimal.Decimal, comment string) (*Refund, error) {
	req := RefundRequest{
		Key:     key,
		KeyType: keyType,
		Amount:  json.Number(amount.String()),
		Comment: comment,
	}
	var refund Refund
	if err := c.call(ctx, "/v2/MakeRefund", req, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

// GetRefundStatus returns the status of a refund.
func (c *Client) GetRefundStatus(ctx context.Context, refundID string) ([]RefundStatus, error) {
	var data refundStatusData
	if err := c.call(ctx, "/v2/GetRefundStatus", keyRequest{Key: refundID, KeyType: KeyRefundID}, &data); err != nil {
		return nil, err
	}
	return data.RefundStatusResult, nil
}

// GetPaymentStatus returns the invoice status for a payment or invoice key.
func (c *Client) GetPaymentStatus(ctx context.Context, key string, keyType KeyType) (*PaymentStatus, error) {
	var status PaymentStatus
	if err := c.call(ctx, "/v2/GetPaymentStatus", keyRequest{Key: key, KeyType: keyType}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// call posts body and decodes the envelope Data into out.
// IsSuccess=false becomes myfatoorah_error regardless of the HTTP status.
func (c *Client) call(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "myfatoorah request", slog.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewNetworkError("MyFatoorah", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewNetworkError("MyFatoorah", fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return model.NewUpstreamUnauthorizedError("myfatoorah", resp.StatusCode, "", "")
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 400 {
			return model.NewUpstreamError("myfatoorah", resp.StatusCode, "", http.StatusText(resp.StatusCode))
		}
		return fmt.Errorf("parsing myfatoorah response: %w", err)
	}

	if !env.IsSuccess {
		status := resp.StatusCode
		if status < 400 {
			status = http.StatusBadGateway
		}
		return model.NewUpstreamError("myfatoorah", status, "", env.errorMessage())
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("parsing myfatoorah data: %w", err)
	}
	return nil
}
