package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/GophBank/internal/flow"
	"github.com/atinyakov/GophBank/internal/models"
	"github.com/atinyakov/GophBank/internal/validate"
)

// Answers typed at any field prompt instead of a value.
const (
	answerBack   = ":back"
	answerCancel = ":cancel"
)

// checkoutPoll is how often an asynchronous checkout is polled.
const checkoutPoll = 50 * time.Millisecond

var labels = map[string]string{
	flow.FieldAmount:         "Amount",
	flow.FieldRecipient:      "Recipient account number",
	flow.FieldRecipientName:  "Recipient name (optional)",
	flow.FieldFullName:       "Full name",
	flow.FieldEmail:          "Email",
	flow.FieldPhone:          "Phone",
	flow.FieldPassword:       "Password",
	flow.FieldAadhaar:        "Aadhaar number",
	flow.FieldPAN:            "PAN card number",
	flow.FieldAccountType:    "Account type (SAVINGS or CURRENT)",
	flow.FieldInitialDeposit: "Initial deposit",
}

func label(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}
	return field
}

func (s *Shell) newController(op flow.Operation) *flow.Controller {
	return flow.New(op, flow.Deps{
		Session:       s.session,
		Navigator:     s,
		Checkout:      s.checkout,
		RedirectDelay: s.delay,
		Log:           s.log,
	})
}

func (s *Shell) runFlow(ctx context.Context, op flow.Operation, preset flow.Values) error {
	return s.drive(ctx, s.newController(op), preset, "")
}

// drive walks c to a terminal outcome, asking for whatever the current
// state needs. Fields given in preset are not asked for unless they fail
// validation; method preselects the payment method once.
func (s *Shell) drive(ctx context.Context, c *flow.Controller, preset flow.Values, method flow.PaymentMethod) error {
	answered := map[string]bool{}
	for f, v := range preset {
		if err := c.Set(f, v); err == nil {
			answered[f] = true
		}
	}

	desc := c.Descriptor()
	s.p.Println(desc.Title)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch c.State() {
		case flow.Entry:
			done, err := s.entry(c, answered)
			if err != nil || done {
				return err
			}
		case flow.Review:
			done, err := s.review(ctx, c, answered)
			if err != nil || done {
				return err
			}
		case flow.PaymentMethodSelection:
			done, err := s.selectMethod(ctx, c, method)
			method = ""
			if err != nil || done {
				return err
			}
		case flow.Submitting:
			if err := s.await(ctx, c); err != nil {
				return err
			}
		case flow.Success:
			s.succeeded(c)
			return nil
		default:
			return fmt.Errorf("flow stopped in %s", c.State())
		}
	}
}

// entry asks for the fields of the current step and advances.
func (s *Shell) entry(c *flow.Controller, answered map[string]bool) (bool, error) {
	if c.Steps() > 1 {
		s.p.Printf("Step %d of %d\n", c.Step(), c.Steps())
	}

	errs := c.Errors()
	for _, f := range c.Fields() {
		msg, invalid := errs[f]
		if answered[f] && !invalid {
			continue
		}
		if invalid {
			s.p.Println("  " + msg)
		}

		v, err := s.ask(f, c.Value(f))
		if err != nil {
			return true, errQuit
		}
		switch v {
		case answerCancel:
			s.p.Println("Cancelled.")
			return true, nil
		case answerBack:
			if err := c.Back(); err != nil {
				s.p.Println("Already at the first step.")
				return false, nil
			}
			s.forget(c, answered)
			return false, nil
		}
		if err := c.Set(f, v); err != nil {
			return true, err
		}
		answered[f] = true
	}

	err := c.Next()
	if errors.Is(err, flow.ErrValidation) {
		return false, nil
	}
	return false, err
}

// ask prompts for one field. An empty answer keeps current.
func (s *Shell) ask(field, current string) (string, error) {
	prompt := label(field)
	if current != "" && field != flow.FieldPassword {
		prompt += " [" + current + "]"
	}
	prompt += ": "

	var (
		v   string
		err error
	)
	if field == flow.FieldPassword {
		v, err = s.p.Password(prompt)
	} else {
		v, err = s.p.Line(prompt)
	}
	if err != nil {
		return "", err
	}
	if v == "" {
		return current, nil
	}
	return v, nil
}

// forget marks the fields of the current step as unanswered so they are
// asked again.
func (s *Shell) forget(c *flow.Controller, answered map[string]bool) {
	for _, f := range c.Fields() {
		delete(answered, f)
	}
}

func (s *Shell) review(ctx context.Context, c *flow.Controller, answered map[string]bool) (bool, error) {
	desc := c.Descriptor()
	values := c.Values()

	s.p.Println("Please review:")
	for _, step := range desc.Steps {
		for _, f := range step {
			s.p.Printf("  %-26s %s\n", label(f), display(f, values[f]))
		}
	}
	if desc.Authenticated {
		if balance, ok := s.session.Balance(); ok {
			s.p.Printf("  %-26s %s\n", "Available balance", models.FormatINR(balance))
		}
	}

	answer, err := s.p.Line("Confirm? [y]es, [b]ack, [c]ancel: ")
	if err != nil {
		return true, errQuit
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		if err := c.Confirm(ctx); err != nil {
			return true, err
		}
		if banner := c.Banner(); banner != "" && c.State() != flow.Success {
			s.p.Println("Error: " + banner)
			s.forget(c, answered)
		}
	case "b", "back":
		if err := c.Back(); err != nil {
			return true, err
		}
		s.forget(c, answered)
	case "c", "cancel":
		s.p.Println("Cancelled.")
		return true, nil
	default:
		s.p.Println("Please answer y, b or c.")
	}
	return false, nil
}

func (s *Shell) selectMethod(ctx context.Context, c *flow.Controller, method flow.PaymentMethod) (bool, error) {
	if method == "" {
		names := make([]string, len(flow.PaymentMethods))
		for i, m := range flow.PaymentMethods {
			names[i] = string(m)
		}
		answer, err := s.p.Line("Payment method (" + strings.Join(names, ", ") + "), or back/cancel: ")
		if err != nil {
			return true, errQuit
		}
		switch strings.ToLower(answer) {
		case "back", "b":
			return false, c.Back()
		case "cancel", "c":
			s.p.Println("Cancelled.")
			return true, nil
		}
		method = flow.PaymentMethod(strings.ToLower(answer))
	}

	err := c.Pay(ctx, method)
	if errors.Is(err, flow.ErrValidation) {
		s.p.Println("Unknown payment method.")
		return false, nil
	}
	if err != nil {
		return true, err
	}
	if err := s.await(ctx, c); err != nil {
		return true, err
	}

	if c.State() == flow.PaymentMethodSelection {
		if banner := c.Banner(); banner != "" {
			s.p.Println("Error: " + banner)
		} else {
			s.p.Println("Payment cancelled.")
		}
	}
	return false, nil
}

// await blocks while a checkout is still open.
func (s *Shell) await(ctx context.Context, c *flow.Controller) error {
	ticker := time.NewTicker(checkoutPoll)
	defer ticker.Stop()

	for c.State() == flow.Submitting {
		select {
		case <-ctx.Done():
			c.Leave()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (s *Shell) succeeded(c *flow.Controller) {
	out, _ := c.Outcome()
	desc := c.Descriptor()

	if out.Account != nil {
		s.p.Printf("Account opened: %s (%s, %s)\n", out.Account.AccountNumber, out.Account.AccountType, out.Account.Status)
	}
	if out.Message != "" {
		s.p.Println(out.Message)
	}
	if out.RecipientName != "" {
		s.p.Printf("Sent to %s\n", out.RecipientName)
	}
	if desc.Authenticated {
		s.p.Printf("Amount: %s\n", models.FormatINR(out.Amount))
		if balance, ok := s.session.Balance(); ok {
			s.p.Printf("New balance: %s\n", models.FormatINR(balance))
		}
		s.p.Println("Returning to the dashboard shortly.")
		s.active = c
		return
	}
	s.show(desc.SuccessRoute)
}

// display renders a field value for review.
func display(field, v string) string {
	switch field {
	case flow.FieldPassword:
		return strings.Repeat("*", len([]rune(v)))
	case flow.FieldAadhaar:
		if len(v) > 4 {
			return strings.Repeat("X", len(v)-4) + v[len(v)-4:]
		}
	case flow.FieldAmount, flow.FieldInitialDeposit:
		if amount, ok := validate.ParseAmount(v); ok {
			return models.FormatINR(amount)
		}
	case flow.FieldRecipientName:
		if strings.TrimSpace(v) == "" {
			return "-"
		}
	}
	return v
}
