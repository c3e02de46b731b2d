package shell

import (
	"context"
	"strings"

	"github.com/atinyakov/GophBank/internal/flow"
	"github.com/atinyakov/GophBank/internal/models"
)

// terminalCheckout asks the customer to complete the payment with the
// gateway out of band and paste back the payment id and signature it
// returned. An empty payment id dismisses the checkout.
type terminalCheckout struct {
	p *Prompter
}

func (c terminalCheckout) Open(_ context.Context, order models.PaymentOrder, method flow.PaymentMethod, onResult func(flow.CheckoutResult)) error {
	c.p.Printf("Checkout: order %s, %s via %s (key %s)\n",
		order.OrderID, models.FormatINR(order.Amount), method, order.Key)

	paymentID, err := c.p.Line("Payment id (empty to cancel): ")
	if err != nil || paymentID == "" {
		onResult(flow.CheckoutResult{Cancelled: true})
		return nil
	}
	signature, err := c.p.Line("Payment signature: ")
	if err != nil || strings.TrimSpace(signature) == "" {
		onResult(flow.CheckoutResult{Cancelled: true})
		return nil
	}
	onResult(flow.CheckoutResult{PaymentID: paymentID, Signature: signature})
	return nil
}

func (terminalCheckout) Cancel() {}
