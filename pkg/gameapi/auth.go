package gameapi

import (
	"context"
	"fmt"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

// Login authenticates against the auth endpoint and returns the full user
// record. A wrong login or password comes back as an *Error carrying the
// server's message verbatim.
func (c *Client) Login(ctx context.Context, login, password string) (*model.UserRecord, error) {
	const op = "auth.login"

	if login == "" || password == "" {
		return nil, WrapError(op, fmt.Errorf("login and password required"))
	}

	req := map[string]string{
		"login":    login,
		"password": password,
	}
	var resp struct {
		Success bool             `json:"success"`
		User    model.UserRecord `json:"user"`
		Error   string           `json:"error"`
	}
	if err := c.post(ctx, op, c.config.Endpoints.Auth, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, NewServerError(op, 401, resp.Error)
	}
	return &resp.User, nil
}
