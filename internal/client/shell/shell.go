// Package shell is the interactive command loop of the banking client.
package shell

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/client/api"
	"github.com/atinyakov/GophBank/internal/flow"
	"github.com/atinyakov/GophBank/internal/history"
	"github.com/atinyakov/GophBank/internal/logger"
	"github.com/atinyakov/GophBank/internal/session"
)

const prompt = "gophbank> "

const helpText = `Available commands:
  login [email|phone]           sign in
  register                      open a new account
  logout                        sign out
  dashboard | me | profile      show the account summary
  whoami                        show the signed in identity
  deposit [amount]              deposit money
  pay [amount] [method]         add money through the payment gateway (upi, card, netbanking, wallet)
  withdraw [amount]             withdraw money
  transfer [account] [amount] [name]
                                transfer money to another account
  history [next|prev|filter <all|credit|debit>|search <text>]
                                list transactions
  help                          show this help
  exit                          leave the shell`

// errQuit ends the loop when the input is exhausted mid-dialog.
var errQuit = errors.New("quit")

// Options are the collaborators of a Shell.
type Options struct {
	Session *session.Manager
	API     *api.Client
	// Checkout defaults to a prompt for the gateway's payment id and
	// signature.
	Checkout      flow.Checkout
	RedirectDelay time.Duration
	Log           *zap.Logger
}

// Shell runs commands read from its input.
type Shell struct {
	p        *Prompter
	session  *session.Manager
	api      *api.Client
	checkout flow.Checkout
	delay    time.Duration
	log      *zap.Logger

	// routes receives redirects scheduled by flows.
	routes chan string
	// active is the finished flow whose redirect may still be pending.
	active *flow.Controller
	pager  *history.Pager
}

// New returns a Shell reading from in and writing to out.
func New(in io.Reader, out io.Writer, opts Options) *Shell {
	p := NewPrompter(in, out)
	s := &Shell{
		p:        p,
		session:  opts.Session,
		api:      opts.API,
		checkout: opts.Checkout,
		delay:    opts.RedirectDelay,
		log:      logger.OrNop(opts.Log).Named("shell"),
		routes:   make(chan string, 1),
	}
	if s.checkout == nil {
		s.checkout = terminalCheckout{p: p}
	}
	s.pager = history.NewPager(opts.API, opts.Session, api.DefaultPageSize)
	return s
}

// Navigate implements flow.Navigator. The route is shown before the next
// prompt.
func (s *Shell) Navigate(route string) {
	select {
	case s.routes <- route:
	default:
	}
}

// Run reads commands until exit or end of input. A cancelled ctx stops the
// loop once the pending read returns.
func (s *Shell) Run(ctx context.Context) error {
	if s.session.IsAuthenticated() {
		s.session.FetchProfile(ctx, "")
		s.showDashboard()
	} else {
		s.p.Println("Welcome to GophBank. Type 'login' or 'register' to begin, 'help' for commands.")
	}

	for {
		s.showPendingRoute()
		line, err := s.p.Line(prompt)
		if errors.Is(err, io.EOF) {
			s.leaveActive()
			s.p.Println()
			return nil
		}
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		// Typing a command is navigating away from a finished flow.
		s.leaveActive()
		s.showPendingRoute()

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			s.p.Println("Bye")
			return nil
		}
		if err := s.dispatch(ctx, args[0], args[1:]); err != nil {
			if errors.Is(err, errQuit) {
				s.p.Println()
				return nil
			}
			return err
		}
	}
}

func (s *Shell) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		s.p.Println(helpText)
		return nil
	case "login":
		return s.login(ctx, args)
	case "register":
		return s.register(ctx)
	}

	if !s.session.IsAuthenticated() {
		switch cmd {
		case "logout", "dashboard", "me", "profile", "whoami", "deposit", "pay", "withdraw", "transfer", "history":
			s.p.Println("Please log in first.")
			return nil
		}
	}

	switch cmd {
	case "logout":
		return s.logout(ctx)
	case "dashboard", "me", "profile":
		s.session.FetchProfile(ctx, "")
		s.showDashboard()
	case "whoami":
		s.whoami()
	case "deposit":
		return s.runFlow(ctx, flow.NewDeposit(s.api), presets(args, flow.FieldAmount))
	case "pay":
		return s.pay(ctx, args)
	case "withdraw":
		return s.runFlow(ctx, flow.NewWithdraw(s.api), presets(args, flow.FieldAmount))
	case "transfer":
		preset := presets(args, flow.FieldRecipient, flow.FieldAmount)
		if len(args) >= 2 {
			// The name is optional, so a command line with both account
			// and amount is complete.
			preset[flow.FieldRecipientName] = strings.Join(args[2:], " ")
		}
		return s.runFlow(ctx, flow.NewTransfer(s.api), preset)
	case "history":
		return s.history(ctx, args)
	default:
		s.p.Println("Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

// presets maps positional arguments onto fields.
func presets(args []string, fields ...string) flow.Values {
	v := flow.Values{}
	for i, f := range fields {
		if i < len(args) {
			v[f] = args[i]
		}
	}
	return v
}

func (s *Shell) leaveActive() {
	if s.active != nil {
		s.active.Leave()
		s.active = nil
	}
}

func (s *Shell) showPendingRoute() {
	select {
	case route := <-s.routes:
		s.show(route)
	default:
	}
}

func (s *Shell) show(route string) {
	switch route {
	case flow.RouteDashboard:
		s.showDashboard()
	case flow.RouteLogin:
		s.p.Println("Type 'login' to sign in with your new account.")
	}
}

func (s *Shell) login(ctx context.Context, args []string) error {
	if s.session.IsAuthenticated() {
		s.p.Println("Already logged in. Type 'logout' first to switch accounts.")
		return nil
	}

	identifier := ""
	if len(args) > 0 {
		identifier = args[0]
	}
	var err error
	if identifier == "" {
		if identifier, err = s.p.Line("Email or phone: "); err != nil {
			return errQuit
		}
	}
	password, err := s.p.Password("Password: ")
	if err != nil {
		return errQuit
	}

	res := s.session.Login(ctx, identifier, password)
	if !res.Success {
		s.p.Println(res.Error)
		return nil
	}
	s.showDashboard()
	return nil
}

func (s *Shell) logout(ctx context.Context) error {
	s.pager = history.NewPager(s.api, s.session, api.DefaultPageSize)
	if err := s.session.Logout(ctx); err != nil {
		s.log.Error("logout", zap.Error(err))
		s.p.Println("Logged out, but the stored session could not be cleared.")
		return nil
	}
	s.p.Println("Logged out.")
	return nil
}

func (s *Shell) register(ctx context.Context) error {
	if s.session.IsAuthenticated() {
		s.p.Println("Already logged in. Type 'logout' first to open a new account.")
		return nil
	}
	return s.runFlow(ctx, flow.NewRegistration(s.session), nil)
}

func (s *Shell) pay(ctx context.Context, args []string) error {
	c := s.newController(flow.NewGatewayDeposit(s.api))
	if len(args) > 1 {
		return s.drive(ctx, c, presets(args, flow.FieldAmount), flow.PaymentMethod(args[1]))
	}
	return s.drive(ctx, c, presets(args, flow.FieldAmount), "")
}

func (s *Shell) whoami() {
	claims, err := s.session.Claims()
	if err != nil {
		s.p.Println("Token details are not available.")
		return
	}
	status := "valid until " + claims.ExpiresAt.Local().Format(time.DateTime)
	if claims.ExpiresAt.IsZero() {
		status = "no expiry"
	} else if claims.Expired() {
		status = "expired at " + claims.ExpiresAt.Local().Format(time.DateTime)
	}
	s.p.Printf("Signed in as %s (%s)\n", claims.Subject, status)
}

func (s *Shell) history(ctx context.Context, args []string) error {
	var err error
	switch {
	case len(args) == 0:
		err = s.pager.Load(ctx, 0)
	case args[0] == "next":
		err = s.pager.Next(ctx)
	case args[0] == "prev":
		err = s.pager.Prev(ctx)
	case args[0] == "filter" && len(args) > 1:
		f, ferr := history.ParseFilter(args[1])
		if ferr != nil {
			s.p.Println("Filter must be all, credit or debit.")
			return nil
		}
		s.pager.SetFilter(f)
	case args[0] == "search":
		s.pager.SetSearch(strings.Join(args[1:], " "))
	default:
		s.p.Println("Usage: history [next|prev|filter <all|credit|debit>|search <text>]")
		return nil
	}

	switch {
	case errors.Is(err, history.ErrNoPage):
		s.p.Println("No more pages.")
		return nil
	case err != nil:
		s.log.Warn("load history", zap.Error(err))
		s.p.Println(api.MessageOf(err, "Could not load transactions"))
		return nil
	}
	s.showHistory()
	return nil
}
