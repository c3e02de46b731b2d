package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/models"
)

// Default history paging, newest entries first.
const (
	DefaultPageSize = 10
	DefaultSort     = "createdAt,desc"
)

// PageRequest selects one page of the transaction history. Page is 0-based.
type PageRequest struct {
	Page int
	Size int
	Sort string
}

func (p PageRequest) values() url.Values {
	size := p.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	sort := p.Sort
	if sort == "" {
		sort = DefaultSort
	}
	page := p.Page
	if page < 0 {
		page = 0
	}
	return url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
		"sort": {sort},
	}
}

// Deposit credits amount to the token owner's account and returns the
// server's confirmation text.
func (c *Client) Deposit(ctx context.Context, token string, amount decimal.Decimal) (string, error) {
	var msg string
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   pathDeposit,
		auth:   true,
		token:  token,
		body:   models.AmountRequest{Amount: amount},
	}, &msg)
	return msg, err
}

// Withdraw debits amount from the token owner's account.
func (c *Client) Withdraw(ctx context.Context, token string, amount decimal.Decimal) (string, error) {
	var msg string
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   pathWithdraw,
		auth:   true,
		token:  token,
		body:   models.AmountRequest{Amount: amount},
	}, &msg)
	return msg, err
}

// Transfer moves amount to the receiver account.
func (c *Client) Transfer(ctx context.Context, token, receiverAccount string, amount decimal.Decimal) (string, error) {
	var msg string
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   pathTransfer,
		auth:   true,
		token:  token,
		body:   models.TransferRequest{ReceiverAccountNumber: receiverAccount, Amount: amount},
	}, &msg)
	return msg, err
}

// History lists one page of the token owner's transactions.
func (c *Client) History(ctx context.Context, token string, p PageRequest) (*models.Page[models.TransactionRecord], error) {
	var out models.Page[models.TransactionRecord]
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   pathHistory,
		query:  p.values(),
		auth:   true,
		token:  token,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
