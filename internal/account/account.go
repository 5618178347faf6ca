// Package account implements the password reset flow against the WordPress
// reset-code endpoints.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"storefront-proxy/internal/i18n"
	"storefront-proxy/internal/metrics"
	"storefront-proxy/internal/model"
)

// MinPasswordLength is the shortest password accepted on confirm.
const MinPasswordLength = 8

// Actions of POST /api/auth/reset-password.
const (
	ActionRequest = "request"
	ActionConfirm = "confirm"
)

// API is the password reset surface of the WooCommerce client.
type API interface {
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	SetPassword(ctx context.Context, email, code, password string) (string, error)
}

// ResetRequest is the body of POST /api/auth/reset-password.
type ResetRequest struct {
	Action   string `json:"action"`
	Email    string `json:"email"`
	Code     string `json:"code,omitempty"`
	Password string `json:"password,omitempty"`
}

// ResetResult is the localized outcome of a reset step.
type ResetResult struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

// Service validates and forwards reset requests.
type Service struct {
	api    API
	logger *slog.Logger
}

// New creates an account service.
func New(api API, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, logger: logger}
}

// Reset runs one step of the reset flow. An empty action is a request when
// no code is given and a confirm otherwise.
func (s *Service) Reset(ctx context.Context, lang string, req ResetRequest) (*ResetResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Code = strings.TrimSpace(req.Code)

	action := req.Action
	if action == "" {
		action = ActionRequest
		if req.Code != "" {
			action = ActionConfirm
		}
	}

	if err := validate(action, req); err != nil {
		return nil, err
	}

	var err error
	switch action {
	case ActionRequest:
		_, err = s.api.RequestPasswordReset(ctx, req.Email)
	case ActionConfirm:
		_, err = s.api.SetPassword(ctx, req.Email, req.Code, req.Password)
	}
	metrics.RecordOperation("password_"+action, err == nil)
	if err != nil {
		s.logger.InfoContext(ctx, "password reset step failed",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	key := "reset_requested"
	if action == ActionConfirm {
		key = "password_updated"
	}
	return &ResetResult{Action: action, Message: i18n.T(lang, key, "")}, nil
}

func validate(action string, req ResetRequest) error {
	if action != ActionRequest && action != ActionConfirm {
		return model.NewInvalidFieldError("action", fmt.Sprintf("unsupported action %q", action))
	}
	if req.Email == "" {
		return model.NewMissingFieldError("email")
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return model.NewInvalidFieldError("email", "not a valid address")
	}
	if action == ActionRequest {
		return nil
	}
	if req.Code == "" {
		return model.NewMissingFieldError("code")
	}
	if utf8.RuneCountInString(req.Password) < MinPasswordLength {
		return model.NewInvalidFieldError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	return nil
}
