package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/models"
)

// CreateOrder opens a payment-gateway order for a deposit of amount.
func (c *Client) CreateOrder(ctx context.Context, token string, amount decimal.Decimal) (*models.PaymentOrder, error) {
	var out models.PaymentOrder
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   pathCreateOrder,
		auth:   true,
		token:  token,
		body:   models.AmountRequest{Amount: amount},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyPayment asks the server to check the checkout signature and credit
// the account.
func (c *Client) VerifyPayment(ctx context.Context, token string, v models.PaymentVerification) (string, error) {
	var msg string
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   pathVerifyPayment,
		auth:   true,
		token:  token,
		body:   v,
	}, &msg)
	return msg, err
}
