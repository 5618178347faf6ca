// Package model defines the shared request, response and error types of the storefront proxy.
package model

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Cookie names shared with the storefront frontend.
const (
	CookieCartKey  = "cocart_cart_key"
	CookieToken    = "asl_auth_token"
	CookieUser     = "asl_auth_user"
	CookieCurrency = "wcml_currency"
)

// Session is the per-request identity carried in cookies.
// A request may hold a guest cart key, a bearer token, both, or neither.
type Session struct {
	CartKey  string // CoCart guest session key
	Token    string // bearer token of a signed-in customer
	Currency string // active display currency, appended upstream
	Lang     string // "en" or "ar"
	User     *User  // decoded asl_auth_user, nil for guests
}

// HasToken reports whether the session carries a bearer token.
func (s *Session) HasToken() bool {
	return s != nil && s.Token != ""
}

// HasCartKey reports whether the session is pinned to a guest cart.
func (s *Session) HasCartKey() bool {
	return s != nil && s.CartKey != ""
}

// User is the identity stored by the frontend in the asl_auth_user cookie.
type User struct {
	ID          int    `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// ParseUserCookie decodes the asl_auth_user cookie value.
// The frontend writes URL-encoded JSON; raw JSON is accepted too.
// Returns nil when the value is empty, malformed, or has no positive id.
func ParseUserCookie(raw string) *User {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if decoded, err := url.QueryUnescape(raw); err == nil {
		raw = decoded
	}

	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil
	}
	if u.ID <= 0 {
		return nil
	}
	return &u
}
