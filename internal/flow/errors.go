package flow

import "errors"

var (
	// ErrInvalidTransition is returned for a move the state table forbids.
	ErrInvalidTransition = errors.New("invalid flow transition")
	// ErrBusy is returned while a submission is in flight.
	ErrBusy = errors.New("submission in progress")
	// ErrValidation is returned when the current step has field errors.
	ErrValidation = errors.New("validation failed")
	// ErrNotGateway is returned by Pay on flows without a payment gateway.
	ErrNotGateway = errors.New("flow does not use a payment gateway")
	// ErrUnknownField is returned by Set for a field the flow does not have.
	ErrUnknownField = errors.New("unknown field")
)

// ErrNoCheckout is returned by Pay when no checkout capability is wired.
var ErrNoCheckout = errors.New("no checkout available")

// Rejection is a failure whose reason is shown to the customer verbatim.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return r.Reason
}
