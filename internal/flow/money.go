package flow

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/validate"
)

// MoneyAPI moves money on behalf of the token owner.
type MoneyAPI interface {
	Deposit(ctx context.Context, token string, amount decimal.Decimal) (string, error)
	Withdraw(ctx context.Context, token string, amount decimal.Decimal) (string, error)
	Transfer(ctx context.Context, token, receiverAccount string, amount decimal.Decimal) (string, error)
}

// Deposit credits the account directly.
type Deposit struct {
	client MoneyAPI
}

func NewDeposit(client MoneyAPI) *Deposit {
	return &Deposit{client: client}
}

func (*Deposit) Descriptor() Descriptor {
	return Descriptor{
		Kind:          KindDeposit,
		Title:         "Deposit Money",
		Steps:         [][]string{{FieldAmount}},
		Fallback:      "Deposit failed",
		Authenticated: true,
		SuccessRoute:  RouteDashboard,
	}
}

func (*Deposit) Validate(_ int, values Values, _ Env) FieldErrors {
	return applyRules(values, stepRule{FieldAmount, validate.Amount})
}

func (d *Deposit) Submit(ctx context.Context, values Values, env Env) (Outcome, error) {
	amount, _ := validate.ParseAmount(values[FieldAmount])
	msg, err := d.client.Deposit(ctx, env.Token, amount)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Message: msg, Amount: amount}, nil
}

// Withdraw debits the account. The balance check is advisory and skipped
// while no balance is cached.
type Withdraw struct {
	client MoneyAPI
}

func NewWithdraw(client MoneyAPI) *Withdraw {
	return &Withdraw{client: client}
}

func (*Withdraw) Descriptor() Descriptor {
	return Descriptor{
		Kind:          KindWithdraw,
		Title:         "Withdraw Money",
		Steps:         [][]string{{FieldAmount}},
		Fallback:      "Withdrawal failed",
		Authenticated: true,
		SuccessRoute:  RouteDashboard,
	}
}

func (*Withdraw) Validate(_ int, values Values, env Env) FieldErrors {
	errs := applyRules(values, stepRule{FieldAmount, validate.Amount})
	checkBalance(errs, values, env, validate.MsgWithdrawBalance)
	return errs
}

func (w *Withdraw) Submit(ctx context.Context, values Values, env Env) (Outcome, error) {
	amount, _ := validate.ParseAmount(values[FieldAmount])
	msg, err := w.client.Withdraw(ctx, env.Token, amount)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Message: msg, Amount: amount}, nil
}

// Transfer moves money to another account number.
type Transfer struct {
	client MoneyAPI
}

func NewTransfer(client MoneyAPI) *Transfer {
	return &Transfer{client: client}
}

func (*Transfer) Descriptor() Descriptor {
	return Descriptor{
		Kind:          KindTransfer,
		Title:         "Transfer Money",
		Steps:         [][]string{{FieldRecipient, FieldAmount, FieldRecipientName}},
		Fallback:      "Transfer failed",
		Authenticated: true,
		SuccessRoute:  RouteDashboard,
	}
}

func (*Transfer) Validate(_ int, values Values, env Env) FieldErrors {
	errs := applyRules(values,
		stepRule{FieldRecipient, validate.Recipient},
		stepRule{FieldAmount, validate.Amount},
	)
	checkBalance(errs, values, env, validate.MsgTransferBalance)
	return errs
}

func (t *Transfer) Submit(ctx context.Context, values Values, env Env) (Outcome, error) {
	amount, _ := validate.ParseAmount(values[FieldAmount])
	msg, err := t.client.Transfer(ctx, env.Token, strings.TrimSpace(values[FieldRecipient]), amount)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Message: msg, Amount: amount, RecipientName: strings.TrimSpace(values[FieldRecipientName])}, nil
}

// checkBalance adds msg to the amount field when a valid amount exceeds the
// cached balance.
func checkBalance(errs FieldErrors, values Values, env Env, msg string) {
	if _, bad := errs[FieldAmount]; bad || !env.HasBalance {
		return
	}
	amount, _ := validate.ParseAmount(values[FieldAmount])
	if !validate.Covers(env.Balance, amount) {
		errs[FieldAmount] = msg
	}
}
