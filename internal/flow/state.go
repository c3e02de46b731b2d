package flow

import "slices"

// State is the tagged phase of a flow.
type State int

const (
	// Entry collects field values, possibly over several steps.
	Entry State = iota
	// Review shows the values back for confirmation.
	Review
	// PaymentMethodSelection lets the customer pick how a gateway
	// deposit is paid.
	PaymentMethodSelection
	// Submitting means a remote call is in flight.
	Submitting
	// Success is terminal until the controller is reset or left.
	Success
	// Failure is transient: the controller moves on to Entry or
	// PaymentMethodSelection right away with the banner set.
	Failure
)

var stateNames = [...]string{
	Entry:                  "entry",
	Review:                 "review",
	PaymentMethodSelection: "payment-method-selection",
	Submitting:             "submitting",
	Success:                "success",
	Failure:                "failure",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// transitions lists the allowed moves out of each state.
var transitions = map[State][]State{
	Entry:                  {Review},
	Review:                 {Entry, Submitting, PaymentMethodSelection},
	PaymentMethodSelection: {Review, Submitting},
	Submitting:             {Success, Failure, PaymentMethodSelection},
	Failure:                {Entry, PaymentMethodSelection},
	Success:                {},
}

// CanTransition reports whether from -> to is an allowed move.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}
