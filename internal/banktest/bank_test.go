package banktest

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophBank/internal/client/api"
	"github.com/atinyakov/GophBank/internal/models"
)

func TestBank_MoneyMovements(t *testing.T) {
	b := New(t)
	alice := b.AddAccount(Account{Email: "alice@bank.test", Phone: "9876543210", Password: "password1", Balance: decimal.NewFromInt(3000)})
	bob := b.AddAccount(Account{Email: "bob@bank.test", Password: "password2"})
	c := b.API(nil)
	ctx := context.Background()

	login, err := c.Login(ctx, "9876543210", "password1")
	require.NoError(t, err)
	assert.Equal(t, alice.AccountNumber, login.AccountNumber)

	msg, err := c.Deposit(ctx, login.Token, decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.Equal(t, "Deposit successful", msg)

	_, err = c.Withdraw(ctx, login.Token, decimal.NewFromInt(5000))
	assert.Equal(t, "Insufficient balance", api.MessageOf(err, ""))

	_, err = c.Transfer(ctx, login.Token, bob.AccountNumber, decimal.NewFromInt(1000))
	require.NoError(t, err)

	_, err = c.Transfer(ctx, login.Token, "0000000000", decimal.NewFromInt(1))
	assert.Equal(t, "Receiver account not found", api.MessageOf(err, ""))

	me, err := c.Me(ctx, login.Token)
	require.NoError(t, err)
	assert.True(t, me.Balance.Equal(decimal.NewFromInt(2500)), me.Balance.String())

	got, _ := b.Account(bob.AccountNumber)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(1000)))

	page, err := c.History(ctx, login.Token, api.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Content, 2)
	assert.Equal(t, models.Transfer, page.Content[0].Type)
	assert.Equal(t, models.Deposit, page.Content[1].Type)
	assert.True(t, page.First)
	assert.True(t, page.Last)
}

func TestBank_LoginFailure(t *testing.T) {
	b := New(t)
	b.AddAccount(Account{Email: "alice@bank.test", Password: "password1"})

	_, err := b.API(nil).Login(context.Background(), "alice@bank.test", "nope")
	assert.Equal(t, http.StatusUnauthorized, api.StatusOf(err))
	assert.Equal(t, 1, b.Hits("/api/auth/login"))
}

func TestBank_OpenAccountConflict(t *testing.T) {
	b := New(t)
	b.AddAccount(Account{Email: "alice@bank.test", Password: "password1"})

	_, err := b.API(nil).OpenAccount(context.Background(), models.OpenAccountRequest{
		FullName:    "Alice",
		Email:       "alice@bank.test",
		Password:    "password1",
		AccountType: models.Savings,
	})
	assert.Equal(t, http.StatusConflict, api.StatusOf(err))
	assert.Equal(t, "Email already registered", api.MessageOf(err, ""))
}

func TestBank_Payments(t *testing.T) {
	b := New(t)
	acc := b.AddAccount(Account{Email: "alice@bank.test", Password: "password1"})
	tok := b.IssueToken(acc.Email, TokenTTL)
	c := b.API(nil)
	ctx := context.Background()

	order, err := c.CreateOrder(ctx, tok, decimal.NewFromInt(250))
	require.NoError(t, err)
	assert.Equal(t, KeyID, order.Key)

	_, err = c.VerifyPayment(ctx, tok, models.PaymentVerification{OrderID: order.OrderID, PaymentID: "pay_1", Signature: "forged"})
	assert.Equal(t, "Payment verification failed", api.MessageOf(err, ""))

	_, err = c.VerifyPayment(ctx, tok, models.PaymentVerification{OrderID: order.OrderID, PaymentID: "pay_1", Signature: Sign(order.OrderID, "pay_1")})
	require.NoError(t, err)

	got, _ := b.Account(acc.AccountNumber)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(250)))
}

func TestBank_FailNext(t *testing.T) {
	b := New(t)
	acc := b.AddAccount(Account{Email: "alice@bank.test", Password: "password1"})
	tok := b.IssueToken(acc.Email, TokenTTL)
	b.FailNext("/api/transactions/deposit", http.StatusServiceUnavailable, `{"error":"Service unavailable"}`)
	c := b.API(nil)

	_, err := c.Deposit(context.Background(), tok, decimal.NewFromInt(10))
	assert.Equal(t, "Service unavailable", api.MessageOf(err, ""))

	_, err = c.Deposit(context.Background(), tok, decimal.NewFromInt(10))
	assert.NoError(t, err)
	assert.Equal(t, 2, b.Hits("/api/transactions/deposit"))
}
