// Package flow drives multi-step money movements and account opening
// through one state machine: entry, review, optional payment method
// selection, submission and a terminal outcome.
package flow

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/client/api"
	"github.com/atinyakov/GophBank/internal/logger"
	"github.com/atinyakov/GophBank/internal/models"
)

// DefaultRedirectDelay is how long Success stays on screen before the
// dashboard is shown.
const DefaultRedirectDelay = 2 * time.Second

// Session is what the controller needs from the session manager.
type Session interface {
	Token() string
	Balance() (decimal.Decimal, bool)
	FetchProfile(ctx context.Context, token string)
}

// Navigator moves the UI to a route.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) {
	f(route)
}

// Deps are the collaborators of a Controller. Session may be nil for
// operations that are not Authenticated; Navigator and Checkout are
// optional.
type Deps struct {
	Session       Session
	Navigator     Navigator
	Checkout      Checkout
	RedirectDelay time.Duration
	Log           *zap.Logger
}

// Controller runs one operation. It is safe for concurrent use; the lock is
// never held across remote calls, the Submitting state guards against a
// second submission instead.
type Controller struct {
	op      Operation
	gateway Gateway
	desc    Descriptor
	deps    Deps
	log     *zap.Logger

	mu sync.Mutex
	// gen changes on Reset and Leave; late results of an older
	// generation are dropped.
	gen          uint64
	state        State
	step         int
	values       Values
	errs         FieldErrors
	banner       string
	outcome      *Outcome
	order        *models.PaymentOrder
	method       PaymentMethod
	history      []State
	redirect     *time.Timer
	checkoutOpen bool
}

// New returns a controller at step 1 of Entry.
func New(op Operation, deps Deps) *Controller {
	if deps.RedirectDelay <= 0 {
		deps.RedirectDelay = DefaultRedirectDelay
	}
	desc := op.Descriptor()
	gw, _ := op.(Gateway)
	c := &Controller{
		op:      op,
		gateway: gw,
		desc:    desc,
		deps:    deps,
		log:     logger.OrNop(deps.Log).Named("flow").With(zap.String("operation", string(desc.Kind))),
	}
	c.resetLocked()
	return c
}

// Set stores a field value and clears that field's error.
func (c *Controller) Set(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Submitting {
		return ErrBusy
	}
	if c.state != Entry {
		return c.invalidLocked("edit fields")
	}
	if !c.desc.hasField(field) {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	c.values[field] = value
	delete(c.errs, field)
	return nil
}

// Next validates the current step. A valid step advances to the next one,
// or to Review after the last. An invalid step stays put with its field
// errors set and ErrValidation returned.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Submitting {
		return ErrBusy
	}
	if c.state != Entry {
		return c.invalidLocked("advance")
	}

	errs := c.op.Validate(c.step, c.values, c.envLocked())
	if len(errs) > 0 {
		c.errs = errs
		return fmt.Errorf("%w: step %d", ErrValidation, c.step)
	}
	c.errs = FieldErrors{}

	if c.step < len(c.desc.Steps) {
		c.step++
		return nil
	}
	return c.moveLocked(Review)
}

// Back goes to the previous step, from Review to Entry, or from payment
// method selection to Review. Field values are kept.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state == Submitting:
		return ErrBusy
	case c.state == Entry && c.step > 1:
		c.step--
		c.errs = FieldErrors{}
		return nil
	case c.state == Review:
		return c.moveLocked(Entry)
	case c.state == PaymentMethodSelection:
		return c.moveLocked(Review)
	}
	return c.invalidLocked("go back")
}

// Confirm accepts the reviewed values. Gateway operations move on to
// payment method selection; all others submit once and end in Success, or
// in Entry with the banner set. Remote failures are reported through
// Banner, not the returned error.
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Submitting {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.state != Review {
		err := c.invalidLocked("confirm")
		c.mu.Unlock()
		return err
	}
	if c.gateway != nil {
		err := c.moveLocked(PaymentMethodSelection)
		c.mu.Unlock()
		return err
	}

	c.banner = ""
	if err := c.moveLocked(Submitting); err != nil {
		c.mu.Unlock()
		return err
	}
	gen := c.gen
	values := maps.Clone(c.values)
	env := c.envLocked()
	c.mu.Unlock()

	out, err := c.op.Submit(ctx, values, env)
	c.finish(ctx, gen, env.Token, out, err, Entry)
	return nil
}

// Pay creates a payment order and opens the checkout with method. The
// final state is reached when the checkout reports back, which may happen
// before Pay returns.
func (c *Controller) Pay(ctx context.Context, method PaymentMethod) error {
	if c.gateway == nil {
		return ErrNotGateway
	}
	if !method.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, method)
	}

	c.mu.Lock()
	if c.state == Submitting {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.state != PaymentMethodSelection {
		err := c.invalidLocked("pay")
		c.mu.Unlock()
		return err
	}
	if c.deps.Checkout == nil {
		c.mu.Unlock()
		return ErrNoCheckout
	}

	c.banner = ""
	c.method = method
	if err := c.moveLocked(Submitting); err != nil {
		c.mu.Unlock()
		return err
	}
	gen := c.gen
	values := maps.Clone(c.values)
	env := c.envLocked()
	c.mu.Unlock()

	order, err := c.gateway.CreateOrder(ctx, values, env)
	if err != nil {
		c.finish(ctx, gen, env.Token, Outcome{}, err, PaymentMethodSelection)
		return nil
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	c.order = order
	c.checkoutOpen = true
	c.mu.Unlock()

	c.log.Debug("opening checkout", zap.String("order_id", order.OrderID), zap.String("method", string(method)))

	err = c.deps.Checkout.Open(ctx, *order, method, func(res CheckoutResult) {
		c.checkoutDone(ctx, gen, *order, env, res)
	})
	if err != nil {
		c.mu.Lock()
		pending := c.gen == gen && c.checkoutOpen
		c.checkoutOpen = false
		c.mu.Unlock()
		if pending {
			c.finish(ctx, gen, env.Token, Outcome{}, err, PaymentMethodSelection)
		}
	}
	return nil
}

// checkoutDone handles the single result of an opened checkout.
func (c *Controller) checkoutDone(ctx context.Context, gen uint64, order models.PaymentOrder, env Env, res CheckoutResult) {
	c.mu.Lock()
	if c.gen != gen || !c.checkoutOpen {
		c.mu.Unlock()
		return
	}
	c.checkoutOpen = false
	if res.Cancelled {
		c.log.Info("checkout dismissed", zap.String("order_id", order.OrderID))
		_ = c.moveLocked(PaymentMethodSelection)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if res.Err != nil {
		c.finish(ctx, gen, env.Token, Outcome{}, res.Err, PaymentMethodSelection)
		return
	}

	out, err := c.gateway.Verify(ctx, order, models.PaymentVerification{
		OrderID:   order.OrderID,
		PaymentID: res.PaymentID,
		Signature: res.Signature,
	}, env)
	c.finish(ctx, gen, env.Token, out, err, PaymentMethodSelection)
}

// finish settles a submission of generation gen. On failure the banner is
// set and the controller retreats; on success the profile is refreshed
// once before Success is entered.
func (c *Controller) finish(ctx context.Context, gen uint64, token string, out Outcome, err error, retreat State) {
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen {
			c.log.Debug("dropping result of an abandoned submission", zap.Error(err))
			return
		}
		c.banner = bannerFor(err, c.desc.Fallback)
		c.log.Info("submission failed", zap.Int("status", api.StatusOf(err)), zap.Error(err))
		_ = c.moveLocked(Failure)
		_ = c.moveLocked(retreat)
		return
	}

	if c.desc.Authenticated && c.deps.Session != nil {
		c.deps.Session.FetchProfile(ctx, token)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		c.log.Debug("dropping result of an abandoned submission")
		return
	}
	c.outcome = &out
	_ = c.moveLocked(Success)
	if c.desc.Authenticated {
		c.scheduleRedirectLocked(gen)
	}
}

// Reset starts the operation over. A pending redirect is cancelled, an
// open checkout is closed and any in-flight result is dropped.
func (c *Controller) Reset() {
	c.mu.Lock()
	open := c.checkoutOpen
	c.resetLocked()
	c.mu.Unlock()

	c.closeCheckout(open)
}

// Leave records that the customer navigated away. The pending redirect is
// cancelled, an open checkout is closed and in-flight results are dropped.
// The state is left as it was; Reset makes the controller usable again.
func (c *Controller) Leave() {
	c.mu.Lock()
	open := c.checkoutOpen
	c.checkoutOpen = false
	c.gen++
	c.stopRedirectLocked()
	c.mu.Unlock()

	c.closeCheckout(open)
}

func (c *Controller) closeCheckout(open bool) {
	if open && c.deps.Checkout != nil {
		c.deps.Checkout.Cancel()
	}
}

func (c *Controller) resetLocked() {
	c.gen++
	c.stopRedirectLocked()
	c.state = Entry
	c.step = 1
	c.values = Values{}
	maps.Copy(c.values, c.desc.Defaults)
	c.errs = FieldErrors{}
	c.banner = ""
	c.outcome = nil
	c.order = nil
	c.method = ""
	c.checkoutOpen = false
	c.history = []State{Entry}
}

func (c *Controller) scheduleRedirectLocked(gen uint64) {
	if c.deps.Navigator == nil {
		return
	}
	route := c.desc.SuccessRoute
	c.redirect = time.AfterFunc(c.deps.RedirectDelay, func() {
		c.mu.Lock()
		fire := c.gen == gen && c.state == Success
		if fire {
			c.redirect = nil
		}
		c.mu.Unlock()

		if fire {
			c.log.Debug("redirecting", zap.String("route", route))
			c.deps.Navigator.Navigate(route)
		}
	})
}

func (c *Controller) stopRedirectLocked() {
	if c.redirect != nil {
		c.redirect.Stop()
		c.redirect = nil
	}
}

func (c *Controller) moveLocked(to State) error {
	if !CanTransition(c.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, to)
	}
	c.log.Debug("transition", zap.Stringer("from", c.state), zap.Stringer("to", to))
	c.state = to
	c.history = append(c.history, to)
	return nil
}

func (c *Controller) invalidLocked(action string) error {
	return fmt.Errorf("%w: cannot %s in %s", ErrInvalidTransition, action, c.state)
}

func (c *Controller) envLocked() Env {
	if c.deps.Session == nil {
		return Env{}
	}
	balance, ok := c.deps.Session.Balance()
	return Env{
		Token:      c.deps.Session.Token(),
		Balance:    balance,
		HasBalance: ok,
	}
}

// bannerFor picks the message shown for a failed submission.
func bannerFor(err error, fallback string) string {
	var r *Rejection
	if errors.As(err, &r) && r.Reason != "" {
		return r.Reason
	}
	return api.MessageOf(err, fallback)
}

// Descriptor returns the operation's static shape.
func (c *Controller) Descriptor() Descriptor {
	return c.desc
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Step returns the 1-based Entry step.
func (c *Controller) Step() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Steps returns the number of Entry steps.
func (c *Controller) Steps() int {
	return len(c.desc.Steps)
}

// Fields returns the field names of the current step.
func (c *Controller) Fields() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.desc.Steps[c.step-1]...)
}

func (c *Controller) Value(field string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[field]
}

func (c *Controller) Values() Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.values)
}

// Errors returns the field errors of the last validation.
func (c *Controller) Errors() FieldErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.errs)
}

// Banner returns the message of the last failed submission, or "".
func (c *Controller) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// Outcome returns the result of a successful submission.
func (c *Controller) Outcome() (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == nil {
		return Outcome{}, false
	}
	return *c.outcome, true
}

// Order returns the payment order of the current gateway attempt.
func (c *Controller) Order() (models.PaymentOrder, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.order == nil {
		return models.PaymentOrder{}, false
	}
	return *c.order, true
}

// Method returns the payment method chosen for the current attempt.
func (c *Controller) Method() PaymentMethod {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.method
}

// History returns every state visited since the last reset, in order.
func (c *Controller) History() []State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]State(nil), c.history...)
}

// RedirectPending reports whether a redirect is scheduled.
func (c *Controller) RedirectPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redirect != nil
}
