package flow

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/models"
)

// Kind names an operation.
type Kind string

const (
	KindDeposit        Kind = "deposit"
	KindGatewayDeposit Kind = "gateway-deposit"
	KindWithdraw       Kind = "withdraw"
	KindTransfer       Kind = "transfer"
	KindRegistration   Kind = "registration"
)

// Routes the controller navigates to.
const (
	RouteDashboard = "/dashboard"
	RouteLogin     = "/login"
)

// Field names.
const (
	FieldAmount         = "amount"
	FieldRecipient      = "recipient"
	FieldRecipientName  = "recipientName"
	FieldFullName       = "fullName"
	FieldEmail          = "email"
	FieldPhone          = "phone"
	FieldPassword       = "password"
	FieldAadhaar        = "aadhaarNumber"
	FieldPAN            = "panCardNumber"
	FieldAccountType    = "accountType"
	FieldInitialDeposit = "initialDeposit"
)

// Descriptor is the static shape of an operation.
type Descriptor struct {
	Kind  Kind
	Title string
	// Steps holds the field names collected at each Entry step, in order.
	Steps [][]string
	// Fallback is the banner used when the server gives no reason.
	Fallback string
	// Authenticated operations need a token, refresh the profile on
	// success and redirect to the dashboard.
	Authenticated bool
	// SuccessRoute is where the customer goes after Success.
	SuccessRoute string
	// Defaults prefill fields on start and reset.
	Defaults Values
}

// hasField reports whether name is collected at some step.
func (d Descriptor) hasField(name string) bool {
	for _, step := range d.Steps {
		for _, f := range step {
			if f == name {
				return true
			}
		}
	}
	return false
}

// Values are the field values as typed.
type Values map[string]string

// FieldErrors maps a field name to its message.
type FieldErrors map[string]string

// Env is what an operation may read from the session.
type Env struct {
	Token string
	// Balance is the cached balance; HasBalance is false until the profile
	// has been refreshed at least once.
	Balance    decimal.Decimal
	HasBalance bool
}

// Outcome is what a successful submission reports back.
type Outcome struct {
	// Message is the server's confirmation text.
	Message string
	// Amount echoes the submitted amount for money movements.
	Amount decimal.Decimal
	// RecipientName is the display name typed for a transfer. It never
	// leaves the client.
	RecipientName string
	// Account is set by registration.
	Account *models.OpenAccountResponse
}

// Operation plugs a concrete transaction into the controller.
type Operation interface {
	Descriptor() Descriptor
	// Validate checks the fields of a 1-based step.
	Validate(step int, values Values, env Env) FieldErrors
	// Submit performs the terminal remote call.
	Submit(ctx context.Context, values Values, env Env) (Outcome, error)
}

// Gateway is implemented by operations paid through an external checkout.
// Their Submit is never called.
type Gateway interface {
	Operation
	CreateOrder(ctx context.Context, values Values, env Env) (*models.PaymentOrder, error)
	Verify(ctx context.Context, order models.PaymentOrder, v models.PaymentVerification, env Env) (Outcome, error)
}

// stepRule is one field check.
type stepRule struct {
	field string
	check func(string) string
}

// applyRules runs rules in order and collects the failures.
func applyRules(values Values, rules ...stepRule) FieldErrors {
	errs := FieldErrors{}
	for _, r := range rules {
		if msg := r.check(values[r.field]); msg != "" {
			errs[r.field] = msg
		}
	}
	return errs
}
