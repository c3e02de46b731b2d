// Package api is the typed client of the banking HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/logger"
)

// API paths.
const (
	pathLogin         = "/api/auth/login"
	pathMe            = "/api/me"
	pathOpenAccount   = "/api/accounts/open"
	pathDeposit       = "/api/transactions/deposit"
	pathWithdraw      = "/api/transactions/withdraw"
	pathTransfer      = "/api/transactions/transfer"
	pathHistory       = "/api/transactions"
	pathCreateOrder   = "/api/payments/create-order"
	pathVerifyPayment = "/api/payments/verify"
)

// RequestIDHeader carries a per-call identifier for log correlation.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Client calls the banking API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// New returns a Client for baseURL. A nil httpClient uses a default client
// without timeout; a nil log disables logging.
func New(baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     logger.OrNop(log).Named("api"),
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call describes one request.
type call struct {
	method string
	path   string
	query  url.Values
	// auth marks calls that need a bearer token.
	auth  bool
	token string
	body  any
}

// do performs c and decodes a successful response into out. out may be nil,
// a *string for text responses, or any JSON target.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	if cl.auth && cl.token == "" {
		return ErrNoToken
	}

	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.auth {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)

	log := c.log.With(
		zap.String("request_id", reqID),
		zap.String("method", cl.method),
		zap.String("path", cl.path),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug("request failed", zap.Error(err))
		return fmt.Errorf("%s %s failed: %w", cl.method, cl.path, err)
	}
	defer resp.Body.Close()

	log.Debug("response received",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Status: resp.StatusCode, Message: errorMessage(data)}
	}

	switch dst := out.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case *string:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		*dst = strings.TrimSpace(string(data))
		return nil
	default:
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("invalid response: %w", err)
		}
		return nil
	}
}
