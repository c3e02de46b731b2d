package banktest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router returns the HTTP handler of the fake bank.
//
// Routes:
//
//	POST /api/auth/login              public
//	POST /api/accounts/open           public
//	GET  /api/me                      bearer
//	POST /api/transactions/deposit    bearer
//	POST /api/transactions/withdraw   bearer
//	POST /api/transactions/transfer   bearer
//	GET  /api/transactions            bearer
//	POST /api/payments/create-order   bearer
//	POST /api/payments/verify         bearer
func (b *Bank) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(b.requestLogging)
	r.Use(b.track)
	r.Use(middleware.AllowContentType("application/json"))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", b.login)
		r.Post("/accounts/open", b.openAccount)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuth)
			r.Get("/me", b.me)
			r.Post("/transactions/deposit", b.deposit)
			r.Post("/transactions/withdraw", b.withdraw)
			r.Post("/transactions/transfer", b.transfer)
			r.Get("/transactions", b.transactions)
			r.Post("/payments/create-order", b.createOrder)
			r.Post("/payments/verify", b.verifyPayment)
		})
	})

	return r
}
