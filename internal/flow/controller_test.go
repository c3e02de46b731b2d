package flow

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophBank/internal/client/api"
	"github.com/atinyakov/GophBank/internal/validate"
)

type fakeSession struct {
	mu         sync.Mutex
	token      string
	balance    decimal.Decimal
	hasBalance bool
	refreshes  int
	tokens     []string
}

func newSession(balance int64) *fakeSession {
	return &fakeSession{token: "tok", balance: decimal.NewFromInt(balance), hasBalance: true}
}

func (s *fakeSession) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *fakeSession) Balance() (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, s.hasBalance
}

func (s *fakeSession) FetchProfile(_ context.Context, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	s.tokens = append(s.tokens, token)
}

func (s *fakeSession) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

// fakeMoney implements MoneyAPI with overridable funcs.
type fakeMoney struct {
	DepositFunc  func(ctx context.Context, token string, amount decimal.Decimal) (string, error)
	WithdrawFunc func(ctx context.Context, token string, amount decimal.Decimal) (string, error)
	TransferFunc func(ctx context.Context, token, receiver string, amount decimal.Decimal) (string, error)

	calls atomic.Int32
}

func (f *fakeMoney) Deposit(ctx context.Context, token string, amount decimal.Decimal) (string, error) {
	f.calls.Add(1)
	return f.DepositFunc(ctx, token, amount)
}

func (f *fakeMoney) Withdraw(ctx context.Context, token string, amount decimal.Decimal) (string, error) {
	f.calls.Add(1)
	return f.WithdrawFunc(ctx, token, amount)
}

func (f *fakeMoney) Transfer(ctx context.Context, token, receiver string, amount decimal.Decimal) (string, error) {
	f.calls.Add(1)
	return f.TransferFunc(ctx, token, receiver, amount)
}

type recordingNavigator struct {
	routes chan string
}

func newNavigator() *recordingNavigator {
	return &recordingNavigator{routes: make(chan string, 4)}
}

func (n *recordingNavigator) Navigate(route string) {
	n.routes <- route
}

func (n *recordingNavigator) expect(t *testing.T, route string) {
	t.Helper()
	select {
	case got := <-n.routes:
		assert.Equal(t, route, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("no navigation to %s", route)
	}
}

func (n *recordingNavigator) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case got := <-n.routes:
		t.Fatalf("unexpected navigation to %s", got)
	case <-time.After(wait):
	}
}

func fill(t *testing.T, c *Controller, values Values) {
	t.Helper()
	for k, v := range values {
		require.NoError(t, c.Set(k, v))
	}
}

func TestWithdraw_BalanceCheckBlocksAdvance(t *testing.T) {
	money := &fakeMoney{}
	c := New(NewWithdraw(money), Deps{Session: newSession(3000)})

	require.NoError(t, c.Set(FieldAmount, "5000"))
	err := c.Next()
	require.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, FieldErrors{FieldAmount: validate.MsgWithdrawBalance}, c.Errors())
	assert.Equal(t, Entry, c.State())
	assert.Equal(t, 1, c.Step())
	assert.Equal(t, int32(0), money.calls.Load())
}

func TestWithdraw_UnknownBalanceSkipsCheck(t *testing.T) {
	s := newSession(0)
	s.hasBalance = false
	c := New(NewWithdraw(&fakeMoney{}), Deps{Session: s})

	require.NoError(t, c.Set(FieldAmount, "5000"))
	require.NoError(t, c.Next())
	assert.Equal(t, Review, c.State())
}

func TestSet_ClearsFieldError(t *testing.T) {
	c := New(NewDeposit(&fakeMoney{}), Deps{Session: newSession(0)})

	require.NoError(t, c.Set(FieldAmount, "abc"))
	require.ErrorIs(t, c.Next(), ErrValidation)
	assert.Equal(t, validate.MsgAmount, c.Errors()[FieldAmount])

	require.NoError(t, c.Set(FieldAmount, "10"))
	assert.Empty(t, c.Errors())
}

func TestTransfer_Success(t *testing.T) {
	s := newSession(3000)
	nav := newNavigator()
	money := &fakeMoney{
		TransferFunc: func(_ context.Context, token, receiver string, amount decimal.Decimal) (string, error) {
			assert.Equal(t, "tok", token)
			assert.Equal(t, "1234567890", receiver)
			assert.True(t, amount.Equal(decimal.NewFromInt(1000)))
			return "Transfer successful", nil
		},
	}
	c := New(NewTransfer(money), Deps{Session: s, Navigator: nav, RedirectDelay: 10 * time.Millisecond})

	fill(t, c, Values{FieldRecipient: "1234567890", FieldAmount: "1000"})
	require.NoError(t, c.Next())
	require.Equal(t, Review, c.State())
	require.NoError(t, c.Confirm(context.Background()))

	assert.Equal(t, Success, c.State())
	assert.Equal(t, []State{Entry, Review, Submitting, Success}, c.History())
	assert.Equal(t, 1, s.Refreshes())
	assert.Equal(t, int32(1), money.calls.Load())
	assert.Empty(t, c.Banner())

	out, ok := c.Outcome()
	require.True(t, ok)
	assert.Equal(t, "Transfer successful", out.Message)
	assert.True(t, out.Amount.Equal(decimal.NewFromInt(1000)))

	nav.expect(t, RouteDashboard)
	assert.False(t, c.RedirectPending())
}

func TestTransfer_RecipientNameIsOptional(t *testing.T) {
	money := &fakeMoney{
		TransferFunc: func(context.Context, string, string, decimal.Decimal) (string, error) {
			return "Transfer successful", nil
		},
	}

	t.Run("left blank", func(t *testing.T) {
		c := New(NewTransfer(money), Deps{Session: newSession(3000)})
		fill(t, c, Values{FieldRecipient: "1234567890", FieldAmount: "100"})
		require.NoError(t, c.Next())
		assert.Equal(t, Review, c.State())
		assert.Empty(t, c.Errors())

		require.NoError(t, c.Confirm(context.Background()))
		out, ok := c.Outcome()
		require.True(t, ok)
		assert.Empty(t, out.RecipientName)
	})

	t.Run("carried to the outcome", func(t *testing.T) {
		c := New(NewTransfer(money), Deps{Session: newSession(3000)})
		fill(t, c, Values{FieldRecipient: "1234567890", FieldAmount: "100", FieldRecipientName: "  Ravi Kumar "})
		require.NoError(t, c.Next())
		require.NoError(t, c.Confirm(context.Background()))

		out, ok := c.Outcome()
		require.True(t, ok)
		assert.Equal(t, "Ravi Kumar", out.RecipientName)
	})
}

func TestTransfer_RecipientRequired(t *testing.T) {
	c := New(NewTransfer(&fakeMoney{}), Deps{Session: newSession(3000)})

	require.NoError(t, c.Set(FieldAmount, "5000"))
	require.ErrorIs(t, c.Next(), ErrValidation)
	assert.Equal(t, FieldErrors{
		FieldRecipient: validate.MsgRecipient,
		FieldAmount:    validate.MsgTransferBalance,
	}, c.Errors())
}

func TestDeposit_FailureReturnsToEntry(t *testing.T) {
	s := newSession(100)
	nav := newNavigator()
	money := &fakeMoney{
		DepositFunc: func(context.Context, string, decimal.Decimal) (string, error) {
			return "", &api.Error{Status: http.StatusServiceUnavailable}
		},
	}
	c := New(NewDeposit(money), Deps{Session: s, Navigator: nav, RedirectDelay: 10 * time.Millisecond})

	require.NoError(t, c.Set(FieldAmount, "250.50"))
	require.NoError(t, c.Next())
	require.NoError(t, c.Confirm(context.Background()))

	assert.Equal(t, Entry, c.State())
	assert.Equal(t, "Deposit failed", c.Banner())
	assert.Equal(t, "250.50", c.Value(FieldAmount))
	assert.Equal(t, []State{Entry, Review, Submitting, Failure, Entry}, c.History())
	assert.Equal(t, 0, s.Refreshes())
	_, ok := c.Outcome()
	assert.False(t, ok)
	nav.expectNone(t, 50*time.Millisecond)
}

func TestWithdraw_ServerMessageBanner(t *testing.T) {
	money := &fakeMoney{
		WithdrawFunc: func(context.Context, string, decimal.Decimal) (string, error) {
			return "", &api.Error{Status: http.StatusBadRequest, Message: "Insufficient balance"}
		},
	}
	c := New(NewWithdraw(money), Deps{Session: newSession(3000)})

	require.NoError(t, c.Set(FieldAmount, "100"))
	require.NoError(t, c.Next())
	require.NoError(t, c.Confirm(context.Background()))
	assert.Equal(t, "Insufficient balance", c.Banner())

	// The banner clears on the next submission.
	money.WithdrawFunc = func(context.Context, string, decimal.Decimal) (string, error) {
		return "Withdrawal successful", nil
	}
	require.NoError(t, c.Next())
	require.NoError(t, c.Confirm(context.Background()))
	assert.Equal(t, Success, c.State())
	assert.Empty(t, c.Banner())
}

func TestDeposit_NoTokenFailsClosed(t *testing.T) {
	s := newSession(0)
	s.token = ""
	money := &fakeMoney{
		DepositFunc: func(_ context.Context, token string, _ decimal.Decimal) (string, error) {
			if token == "" {
				return "", api.ErrNoToken
			}
			return "ok", nil
		},
	}
	c := New(NewDeposit(money), Deps{Session: s})

	require.NoError(t, c.Set(FieldAmount, "10"))
	require.NoError(t, c.Next())
	require.NoError(t, c.Confirm(context.Background()))
	assert.Equal(t, Entry, c.State())
	assert.Equal(t, "Deposit failed", c.Banner())
}

func TestConfirm_Busy(t *testing.T) {
	release := make(chan struct{})
	money := &fakeMoney{
		DepositFunc: func(context.Context, string, decimal.Decimal) (string, error) {
			<-release
			return "Deposit successful", nil
		},
	}
	c := New(NewDeposit(money), Deps{Session: newSession(0)})
	require.NoError(t, c.Set(FieldAmount, "10"))
	require.NoError(t, c.Next())

	done := make(chan error, 1)
	go func() { done <- c.Confirm(context.Background()) }()

	require.Eventually(t, func() bool { return c.State() == Submitting }, time.Second, time.Millisecond)

	assert.ErrorIs(t, c.Confirm(context.Background()), ErrBusy)
	assert.ErrorIs(t, c.Set(FieldAmount, "20"), ErrBusy)
	assert.ErrorIs(t, c.Next(), ErrBusy)
	assert.ErrorIs(t, c.Back(), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, Success, c.State())
	assert.Equal(t, int32(1), money.calls.Load())
}

func TestInvalidTransitions(t *testing.T) {
	assert.False(t, CanTransition(Entry, Success))
	assert.False(t, CanTransition(Entry, Submitting))
	assert.False(t, CanTransition(Success, Submitting))
	assert.True(t, CanTransition(Review, Submitting))
	assert.True(t, CanTransition(Submitting, Failure))

	c := New(NewDeposit(&fakeMoney{}), Deps{Session: newSession(0)})
	ctx := context.Background()

	assert.ErrorIs(t, c.Confirm(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, c.Back(), ErrInvalidTransition)
	assert.ErrorIs(t, c.Pay(ctx, MethodUPI), ErrNotGateway)
	assert.ErrorIs(t, c.Set("nickname", "x"), ErrUnknownField)

	require.NoError(t, c.Set(FieldAmount, "10"))
	require.NoError(t, c.Next())
	assert.ErrorIs(t, c.Next(), ErrInvalidTransition)
	assert.ErrorIs(t, c.Set(FieldAmount, "20"), ErrInvalidTransition)

	require.NoError(t, c.Back())
	assert.Equal(t, Entry, c.State())
	assert.Equal(t, "10", c.Value(FieldAmount))
	assert.Equal(t, []State{Entry, Review, Entry}, c.History())
}

func TestLeave_CancelsRedirect(t *testing.T) {
	nav := newNavigator()
	money := &fakeMoney{
		DepositFunc: func(context.Context, string, decimal.Decimal) (string, error) {
			return "Deposit successful", nil
		},
	}
	c := New(NewDeposit(money), Deps{Session: newSession(0), Navigator: nav, RedirectDelay: 30 * time.Millisecond})

	require.NoError(t, c.Set(FieldAmount, "10"))
	require.NoError(t, c.Next())
	require.NoError(t, c.Confirm(context.Background()))
	require.True(t, c.RedirectPending())

	c.Leave()
	assert.False(t, c.RedirectPending())
	nav.expectNone(t, 100*time.Millisecond)
}

func TestLeave_DropsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	s := newSession(0)
	nav := newNavigator()
	money := &fakeMoney{
		DepositFunc: func(context.Context, string, decimal.Decimal) (string, error) {
			<-release
			return "Deposit successful", nil
		},
	}
	c := New(NewDeposit(money), Deps{Session: s, Navigator: nav, RedirectDelay: 10 * time.Millisecond})
	require.NoError(t, c.Set(FieldAmount, "10"))
	require.NoError(t, c.Next())

	done := make(chan error, 1)
	go func() { done <- c.Confirm(context.Background()) }()
	require.Eventually(t, func() bool { return c.State() == Submitting }, time.Second, time.Millisecond)

	c.Leave()
	close(release)
	require.NoError(t, <-done)

	// The money moved, so the session is still refreshed.
	assert.Equal(t, 1, s.Refreshes())
	assert.Equal(t, Submitting, c.State())
	nav.expectNone(t, 50*time.Millisecond)

	c.Reset()
	assert.Equal(t, Entry, c.State())
	assert.Empty(t, c.Value(FieldAmount))
}

func TestReset(t *testing.T) {
	money := &fakeMoney{
		DepositFunc: func(context.Context, string, decimal.Decimal) (string, error) {
			return "Deposit successful", nil
		},
	}
	c := New(NewDeposit(money), Deps{Session: newSession(0), RedirectDelay: time.Hour})
	require.NoError(t, c.Set(FieldAmount, "10"))
	require.NoError(t, c.Next())
	require.NoError(t, c.Confirm(context.Background()))
	require.Equal(t, Success, c.State())

	c.Reset()
	assert.Equal(t, Entry, c.State())
	assert.Equal(t, 1, c.Step())
	assert.Empty(t, c.Values())
	assert.Equal(t, []State{Entry}, c.History())
	_, ok := c.Outcome()
	assert.False(t, ok)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "payment-method-selection", PaymentMethodSelection.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestBannerFor(t *testing.T) {
	assert.Equal(t, "Card declined", bannerFor(&Rejection{Reason: "Card declined"}, "Payment failed"))
	assert.Equal(t, "Payment failed", bannerFor(&Rejection{}, "Payment failed"))
	assert.Equal(t, "Payment failed", bannerFor(errors.New("boom"), "Payment failed"))
	assert.Equal(t, "Order expired", bannerFor(&api.Error{Status: 400, Message: "Order expired"}, "Payment failed"))
}

func TestFields(t *testing.T) {
	c := New(NewTransfer(&fakeMoney{}), Deps{Session: newSession(0)})
	assert.Equal(t, []string{FieldRecipient, FieldAmount, FieldRecipientName}, c.Fields())
	assert.Equal(t, 1, c.Steps())
	assert.Equal(t, KindTransfer, c.Descriptor().Kind)
	_, ok := c.Order()
	assert.False(t, ok)
}
