package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophBank/internal/banktest"
	"github.com/atinyakov/GophBank/internal/client/storage"
	"github.com/atinyakov/GophBank/internal/flow"
	"github.com/atinyakov/GophBank/internal/models"
	"github.com/atinyakov/GophBank/internal/session"
)

// signingCheckout completes every payment with a signature the fake bank
// accepts, or dismisses it when cancel is set.
type signingCheckout struct {
	cancel bool
	opened int
}

func (c *signingCheckout) Open(_ context.Context, order models.PaymentOrder, _ flow.PaymentMethod, onResult func(flow.CheckoutResult)) error {
	c.opened++
	if c.cancel {
		onResult(flow.CheckoutResult{Cancelled: true})
		return nil
	}
	onResult(flow.CheckoutResult{PaymentID: "pay_shell", Signature: banktest.Sign(order.OrderID, "pay_shell")})
	return nil
}

func (c *signingCheckout) Cancel() {}

type fixture struct {
	bank    *banktest.Bank
	session *session.Manager
	alice   banktest.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bank := banktest.New(t)
	alice := bank.AddAccount(banktest.Account{
		FullName: "Asha Rao",
		Email:    "asha@bank.test",
		Phone:    "9876543210",
		Password: "secret123",
		Balance:  decimal.NewFromInt(1000),
	})
	m, err := session.New(context.Background(), bank.API(nil), storage.NewMemory(), nil)
	require.NoError(t, err)
	return &fixture{bank: bank, session: m, alice: alice}
}

func (f *fixture) run(t *testing.T, checkout flow.Checkout, script ...string) string {
	t.Helper()
	var out bytes.Buffer
	sh := New(strings.NewReader(strings.Join(script, "\n")+"\n"), &out, Options{
		Session:       f.session,
		API:           f.bank.API(nil),
		Checkout:      checkout,
		RedirectDelay: time.Hour,
	})
	require.NoError(t, sh.Run(context.Background()))
	return out.String()
}

func TestShell_RequiresLogin(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, nil, "deposit 100", "history", "bogus", "exit")

	assert.Contains(t, out, "Welcome to GophBank")
	assert.Equal(t, 2, strings.Count(out, "Please log in first."))
	assert.Contains(t, out, "Unknown command")
	assert.Contains(t, out, "Bye")
	assert.Zero(t, f.bank.Hits("/api/transactions/deposit"))
}

func TestShell_Help(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, nil, "help")

	assert.Contains(t, out, "transfer [account] [amount] [name]")
}

func TestShell_LoginFailure(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, nil, "login asha@bank.test", "wrong-password", "exit")

	assert.Contains(t, out, session.MsgLoginFailed)
	assert.False(t, f.session.IsAuthenticated())
}

func TestShell_LoginDepositHistory(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, nil,
		"login",
		"asha@bank.test",
		"secret123",
		"deposit 500",
		"y",
		"history",
		"exit",
	)

	assert.Contains(t, out, "Name      Asha Rao")
	assert.Contains(t, out, "Balance   ₹1,000.00")
	assert.Contains(t, out, "Amount                     ₹500.00")
	assert.Contains(t, out, "Deposit successful")
	assert.Contains(t, out, "New balance: ₹1,500.00")
	assert.Contains(t, out, "+₹500.00")
	assert.Contains(t, out, "Page 1 of 1, showing 1 of 1 loaded (1 total)")

	acc, ok := f.bank.Account(f.alice.AccountNumber)
	require.True(t, ok)
	assert.Equal(t, "1500", acc.Balance.String())
}

func TestShell_TransferAsksAgainForInvalidAmount(t *testing.T) {
	f := newFixture(t)
	bob := f.bank.AddAccount(banktest.Account{Email: "bob@bank.test", Password: "password2"})

	out := f.run(t, nil,
		"login asha@bank.test",
		"secret123",
		"transfer "+bob.AccountNumber+" 5000",
		"250",
		"y",
		"exit",
	)

	assert.Contains(t, out, "Insufficient balance for this transfer")
	assert.Contains(t, out, "Amount [5000]: ")
	assert.Contains(t, out, "Transfer successful")
	assert.Equal(t, 1, f.bank.Hits("/api/transactions/transfer"))

	got, ok := f.bank.Account(bob.AccountNumber)
	require.True(t, ok)
	assert.Equal(t, "250", got.Balance.String())
}

func TestShell_ServerErrorShowsBanner(t *testing.T) {
	f := newFixture(t)
	f.bank.FailNext("/api/transactions/withdraw", 503, `{"message":"Service unavailable"}`)

	out := f.run(t, nil,
		"login asha@bank.test",
		"secret123",
		"withdraw 100",
		"y",
		answerCancel,
		"exit",
	)

	assert.Contains(t, out, "Error: Service unavailable")
	assert.Contains(t, out, "Cancelled.")
	assert.Equal(t, 1, f.bank.Hits("/api/transactions/withdraw"))
}

func TestShell_ReviewBackEditsAmount(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, nil,
		"login asha@bank.test",
		"secret123",
		"withdraw 100",
		"b",
		"40",
		"y",
		"exit",
	)

	assert.Contains(t, out, "Withdrawal successful")
	acc, _ := f.bank.Account(f.alice.AccountNumber)
	assert.Equal(t, "960", acc.Balance.String())
}

func TestShell_PayThroughGateway(t *testing.T) {
	f := newFixture(t)
	checkout := &signingCheckout{}

	out := f.run(t, checkout,
		"login asha@bank.test",
		"secret123",
		"pay 250 upi",
		"y",
		"exit",
	)

	assert.Equal(t, 1, checkout.opened)
	assert.Contains(t, out, "Payment verified and deposit successful")
	assert.Contains(t, out, "New balance: ₹1,250.00")
}

func TestShell_PayDismissed(t *testing.T) {
	f := newFixture(t)
	checkout := &signingCheckout{cancel: true}

	out := f.run(t, checkout,
		"login asha@bank.test",
		"secret123",
		"pay 250",
		"y",
		"paypal",
		"card",
		"cancel",
		"exit",
	)

	assert.Contains(t, out, "Unknown payment method.")
	assert.Contains(t, out, "Payment cancelled.")
	assert.Equal(t, 1, checkout.opened)
	assert.Zero(t, f.bank.Hits("/api/payments/verify"))
}

func TestShell_TerminalCheckoutCancel(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, nil,
		"login asha@bank.test",
		"secret123",
		"pay 250 card",
		"y",
		"",
		"cancel",
		"exit",
	)

	assert.Contains(t, out, "Checkout: order order_")
	assert.Contains(t, out, "₹250.00 via card (key "+banktest.KeyID+")")
	assert.Contains(t, out, "Payment cancelled.")
	assert.Equal(t, 1, f.bank.Hits("/api/payments/create-order"))
}

func TestShell_Register(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, nil,
		"register",
		"Ravi Kumar",
		"ravi@bank.test",
		"9123456789",
		"longenough",
		"123412341234",
		"abcde1234f",
		"ABCDE1234F",
		"",
		"2000",
		"y",
		"exit",
	)

	assert.Contains(t, out, "Step 1 of 3")
	assert.Contains(t, out, "Step 3 of 3")
	assert.Contains(t, out, "Valid PAN format required")
	assert.Contains(t, out, "Account type (SAVINGS or CURRENT) [SAVINGS]: ")
	assert.Contains(t, out, "XXXXXXXX1234")
	assert.Contains(t, out, "**********")
	assert.Contains(t, out, "Account opened successfully")
	assert.Contains(t, out, "Type 'login' to sign in")
	assert.False(t, f.session.IsAuthenticated())
}

func TestShell_RegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, nil,
		"register",
		"Asha Again",
		"asha@bank.test",
		"9000000001",
		"longenough",
		"123412341234",
		"ABCDE1234F",
		"CURRENT",
		"100",
		"y",
		answerCancel,
		"exit",
	)

	assert.Contains(t, out, "Error: Email already registered")
	assert.Contains(t, out, "Cancelled.")
}

func TestShell_WhoamiAndLogout(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, nil,
		"login asha@bank.test",
		"secret123",
		"whoami",
		"logout",
		"whoami",
		"exit",
	)

	assert.Contains(t, out, "Signed in as asha@bank.test (valid until")
	assert.Contains(t, out, "Logged out.")
	assert.Contains(t, out, "Please log in first.")
	assert.False(t, f.session.IsAuthenticated())
}

func TestShell_EndOfInputInsideDialog(t *testing.T) {
	f := newFixture(t)

	var out bytes.Buffer
	sh := New(strings.NewReader("login\n"), &out, Options{Session: f.session, API: f.bank.API(nil)})

	require.NoError(t, sh.Run(context.Background()))
	assert.Contains(t, out.String(), "Email or phone: ")
}

func TestShell_ResumedSessionShowsDashboard(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.session.Login(context.Background(), "asha@bank.test", "secret123").Success)

	out := f.run(t, nil, "exit")

	assert.NotContains(t, out, "Welcome to GophBank")
	assert.Contains(t, out, "Account   "+f.alice.AccountNumber+" (SAVINGS, ACTIVE)")
}

func TestShell_PendingRouteIsShown(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.session.Login(context.Background(), "asha@bank.test", "secret123").Success)

	var out bytes.Buffer
	sh := New(strings.NewReader(""), &out, Options{Session: f.session, API: f.bank.API(nil)})
	sh.Navigate(flow.RouteDashboard)
	sh.Navigate(flow.RouteLogin)

	sh.showPendingRoute()
	assert.Contains(t, out.String(), "Dashboard")
	assert.NotContains(t, out.String(), "Type 'login'")

	out.Reset()
	sh.showPendingRoute()
	assert.Empty(t, out.String())
}

func TestShell_HistoryPaging(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.session.Login(context.Background(), "asha@bank.test", "secret123").Success)
	client := f.bank.API(nil)
	for i := 0; i < 12; i++ {
		_, err := client.Deposit(context.Background(), f.session.Token(), decimal.NewFromInt(int64(i+1)))
		require.NoError(t, err)
	}

	out := f.run(t, nil,
		"history prev",
		"history",
		"history next",
		"history next",
		"history filter debit",
		"history filter sideways",
		"exit",
	)

	assert.Contains(t, out, "Page 1 of 2, showing 10 of 10 loaded (12 total)")
	assert.Contains(t, out, "Type 'history next' for older transactions.")
	assert.Contains(t, out, "Page 2 of 2, showing 2 of 2 loaded (12 total)")
	assert.Equal(t, 2, strings.Count(out, "No more pages."))
	assert.Contains(t, out, "No transactions on this page match.")
	assert.Contains(t, out, "Filter must be all, credit or debit.")
}

func TestShell_TransferWithRecipientName(t *testing.T) {
	f := newFixture(t)
	bob := f.bank.AddAccount(banktest.Account{Email: "bob@bank.test", Password: "password2"})

	out := f.run(t, nil,
		"login asha@bank.test",
		"secret123",
		"transfer "+bob.AccountNumber+" 100 Bob Menon",
		"y",
		"exit",
	)

	assert.NotContains(t, out, "Recipient name (optional):")
	assert.Contains(t, out, "Bob Menon")
	assert.Contains(t, out, "Sent to Bob Menon")
	assert.Equal(t, 1, f.bank.Hits("/api/transactions/transfer"))
}

func TestShell_TransferPromptsForOptionalName(t *testing.T) {
	f := newFixture(t)
	bob := f.bank.AddAccount(banktest.Account{Email: "bob@bank.test", Password: "password2"})

	out := f.run(t, nil,
		"login asha@bank.test",
		"secret123",
		"transfer",
		bob.AccountNumber,
		"100",
		"",
		"y",
		"exit",
	)

	assert.Contains(t, out, "Recipient name (optional): ")
	assert.Contains(t, out, "Transfer successful")
	assert.NotContains(t, out, "Sent to")
	assert.Equal(t, 1, f.bank.Hits("/api/transactions/transfer"))
}
