package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/GlebRadaev/rewards/docs"
	balancehandlers "github.com/GlebRadaev/rewards/internal/handlers/balance"
	cataloghandlers "github.com/GlebRadaev/rewards/internal/handlers/catalog"
	ordershandlers "github.com/GlebRadaev/rewards/internal/handlers/orders"
	"github.com/GlebRadaev/rewards/internal/service"
	"github.com/GlebRadaev/rewards/pkg/auth"
)

//go:generate mockgen -source=handlers.go -destination=mock_handlers.go -package=handlers

type OrderHandler interface {
	AddOrder(w http.ResponseWriter, r *http.Request)
	GetOrders(w http.ResponseWriter, r *http.Request)
	GetOrder(w http.ResponseWriter, r *http.Request)
	GetOrderByNumber(w http.ResponseWriter, r *http.Request)
	GetQueue(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Fulfill(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
}

type BalanceHandler interface {
	GetBalance(w http.ResponseWriter, r *http.Request)
	GetTransactions(w http.ResponseWriter, r *http.Request)
	AwardPoints(w http.ResponseWriter, r *http.Request)
}

type CatalogHandler interface {
	GetItems(w http.ResponseWriter, r *http.Request)
	GetItem(w http.ResponseWriter, r *http.Request)
	CreateItem(w http.ResponseWriter, r *http.Request)
	Restock(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	OrderHandler   OrderHandler
	BalanceHandler BalanceHandler
	CatalogHandler CatalogHandler
}

func New(s *service.Services) *Handlers {
	return &Handlers{
		OrderHandler:   ordershandlers.New(s.OrderService),
		BalanceHandler: balancehandlers.New(s.LedgerService),
		CatalogHandler: cataloghandlers.New(s.CatalogService),
	}
}

func (h *Handlers) InitRoutes(r chi.Router, tokens auth.TokenValidator) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))

	r.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokens))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.OrderHandler.AddOrder)
			r.Get("/", h.OrderHandler.GetOrders)
			r.Get("/number/{number}", h.OrderHandler.GetOrderByNumber)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.OrderHandler.GetOrder)
				r.Post("/cancel", h.OrderHandler.Cancel)
				r.With(auth.RequireStaff).Post("/approve", h.OrderHandler.Approve)
				r.With(auth.RequireStaff).Post("/fulfill", h.OrderHandler.Fulfill)
			})
		})
		r.With(auth.RequireStaff).Get("/admin/orders", h.OrderHandler.GetQueue)

		r.Route("/accounts/{userId}", func(r chi.Router) {
			r.Get("/balance", h.BalanceHandler.GetBalance)
			r.Get("/transactions", h.BalanceHandler.GetTransactions)
			r.With(auth.RequireStaff).Post("/transactions", h.BalanceHandler.AwardPoints)
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.CatalogHandler.GetItems)
			r.Get("/{id}", h.CatalogHandler.GetItem)
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireStaff)
				r.Post("/", h.CatalogHandler.CreateItem)
				r.Post("/{id}/restock", h.CatalogHandler.Restock)
			})
		})
	})

	return r
}
