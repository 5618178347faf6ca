package woocommerce

import (
	"context"
	"net/http"

	"storefront-proxy/internal/model"
)

// Password reset endpoints of the "Password Reset with Code for WordPress REST API" plugin.
const passwordResetPath = "/wp-json/bdpwr/v1"

// resetResponse is the plugin's success shape.
type resetResponse struct {
	Message string `json:"message"`
}

// RequestPasswordReset asks WordPress to email a reset code.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	var resp resetResponse
	err := c.doJSON(ctx, wpRequest{
		method: http.MethodPost,
		path:   passwordResetPath + "/reset-password",
		body:   map[string]string{"email": email},
		scope:  "reset",
	}, &resp)
	return resp.Message, err
}

// SetPassword completes a reset with the emailed code.
func (c *Client) SetPassword(ctx context.Context, email, code, password string) (string, error) {
	var resp resetResponse
	err := c.doJSON(ctx, wpRequest{
		method: http.MethodPost,
		path:   passwordResetPath + "/set-password",
		body:   map[string]string{"email": email, "code": code, "password": password},
		scope:  "reset",
	}, &resp)
	return resp.Message, err
}

// CurrentUser asks WordPress who owns token. The JWT auth plugin verifies the
// token, so the returned id can be trusted for ownership checks.
func (c *Client) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	var me struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	err := c.doJSON(ctx, wpRequest{
		method: http.MethodGet,
		path:   "/wp-json/wp/v2/users/me",
		bearer: token,
		scope:  "account",
	}, &me)
	if err != nil {
		return nil, err
	}
	return &model.User{ID: me.ID, DisplayName: me.Name}, nil
}
