package flow

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/models"
	"github.com/atinyakov/GophBank/internal/validate"
)

// PaymentMethod is how the customer pays in the checkout widget.
type PaymentMethod string

const (
	MethodUPI        PaymentMethod = "upi"
	MethodCard       PaymentMethod = "card"
	MethodNetBanking PaymentMethod = "netbanking"
	MethodWallet     PaymentMethod = "wallet"
)

// PaymentMethods lists the supported methods in display order.
var PaymentMethods = []PaymentMethod{MethodUPI, MethodCard, MethodNetBanking, MethodWallet}

// Valid reports whether m is a supported method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodUPI, MethodCard, MethodNetBanking, MethodWallet:
		return true
	}
	return false
}

// CheckoutResult is reported by the checkout widget exactly once.
type CheckoutResult struct {
	PaymentID string
	Signature string
	// Cancelled is set when the customer dismissed the widget.
	Cancelled bool
	// Err is set when the payment failed inside the widget.
	Err error
}

// Checkout is the external payment widget. Open may call onResult before
// returning or at any later time. Cancel closes an open widget; a result
// arriving after Cancel is ignored.
type Checkout interface {
	Open(ctx context.Context, order models.PaymentOrder, method PaymentMethod, onResult func(CheckoutResult)) error
	Cancel()
}

// PaymentAPI creates and verifies gateway orders.
type PaymentAPI interface {
	CreateOrder(ctx context.Context, token string, amount decimal.Decimal) (*models.PaymentOrder, error)
	VerifyPayment(ctx context.Context, token string, v models.PaymentVerification) (string, error)
}

var errCheckoutOnly = errors.New("gateway deposits are paid through checkout")

// GatewayDeposit adds money through the payment gateway: a server side
// order, the checkout widget, then server side verification.
type GatewayDeposit struct {
	client PaymentAPI
}

func NewGatewayDeposit(client PaymentAPI) *GatewayDeposit {
	return &GatewayDeposit{client: client}
}

func (*GatewayDeposit) Descriptor() Descriptor {
	return Descriptor{
		Kind:          KindGatewayDeposit,
		Title:         "Add Money",
		Steps:         [][]string{{FieldAmount}},
		Fallback:      "Payment failed",
		Authenticated: true,
		SuccessRoute:  RouteDashboard,
	}
}

func (*GatewayDeposit) Validate(_ int, values Values, _ Env) FieldErrors {
	return applyRules(values, stepRule{FieldAmount, validate.Amount})
}

func (*GatewayDeposit) Submit(context.Context, Values, Env) (Outcome, error) {
	return Outcome{}, errCheckoutOnly
}

func (g *GatewayDeposit) CreateOrder(ctx context.Context, values Values, env Env) (*models.PaymentOrder, error) {
	amount, _ := validate.ParseAmount(values[FieldAmount])
	return g.client.CreateOrder(ctx, env.Token, amount)
}

func (g *GatewayDeposit) Verify(ctx context.Context, order models.PaymentOrder, v models.PaymentVerification, env Env) (Outcome, error) {
	msg, err := g.client.VerifyPayment(ctx, env.Token, v)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Message: msg, Amount: order.Amount}, nil
}
