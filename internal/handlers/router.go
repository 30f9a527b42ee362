package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/smmwallet/backend/internal/middleware"
)

// API groups the handlers served under /api/v1.
type API struct {
	Wallet  *WalletHandler
	Orders  *OrderHandler
	Pricing *PricingHandler
	Codes   *CodeHandler
	Notices *NoticeHandler
}

// Mount registers the user, public and operator routes on r.
func (a *API) Mount(r chi.Router, auth *middleware.Auth, adminSecret string) {
	// Public endpoints
	r.Post("/users", a.Wallet.UpsertUser)
	r.Get("/pricing/{scope}", a.Pricing.Bulk)
	r.Get("/pricing/{scope}/version", a.Pricing.Version)

	// User endpoints
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/me/balance", a.Wallet.Balance)
		r.Get("/me/transactions", a.Wallet.Transactions)
		r.Get("/me/orders", a.Orders.ListMine)
		r.Post("/orders", a.Orders.Create)
		r.Get("/orders/{id}", a.Orders.Get)
		r.Get("/orders/{id}/code", a.Orders.Code)
		r.Get("/notices", a.Notices.List)
	})

	// Operator endpoints
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminSecret(adminSecret))

		r.Get("/orders", a.Orders.List)
		r.Post("/orders/{id}/approve", a.Orders.Approve)
		r.Post("/orders/{id}/reject", a.Orders.Reject)
		r.Post("/orders/{id}/complete", a.Orders.Complete)
		r.Post("/orders/{id}/refund", a.Orders.Refund)
		r.Post("/orders/{id}/reprice", a.Orders.Reprice)
		r.Get("/orders/{id}/repricings", a.Orders.Repricings)

		r.Get("/pricing/scopes/{scope}", a.Pricing.Overrides)
		r.Put("/pricing/{key}", a.Pricing.SetOverride)
		r.Delete("/pricing/{key}", a.Pricing.ClearOverride)

		r.Get("/codes/stock", a.Codes.Stock)
		r.Post("/codes/{pool}", a.Codes.Restock)

		r.Post("/users/{uid}/topup", a.Wallet.TopUp)
		r.Post("/users/{uid}/deduct", a.Wallet.Deduct)
		r.Post("/users/{uid}/ban", a.Wallet.Ban)

		r.Get("/notices", a.Notices.ListOwner)
	})
}
