package api

import (
	"context"
	"net/http"

	"github.com/atinyakov/GophBank/internal/models"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, identifier, password string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   pathLogin,
		body:   models.LoginRequest{Identifier: identifier, Password: password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the full profile of the token owner.
func (c *Client) Me(ctx context.Context, token string) (*models.MeResponse, error) {
	var out models.MeResponse
	err := c.do(ctx, call{method: http.MethodGet, path: pathMe, auth: true, token: token}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// OpenAccount submits an account opening request. No token is required.
func (c *Client) OpenAccount(ctx context.Context, req models.OpenAccountRequest) (*models.OpenAccountResponse, error) {
	var out models.OpenAccountResponse
	err := c.do(ctx, call{method: http.MethodPost, path: pathOpenAccount, body: req}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
