package service

import (
	"github.com/GlebRadaev/rewards/internal/clock"
	"github.com/GlebRadaev/rewards/internal/handlers/balance"
	"github.com/GlebRadaev/rewards/internal/handlers/catalog"
	"github.com/GlebRadaev/rewards/internal/handlers/orders"
	"github.com/GlebRadaev/rewards/internal/repo"
	catalogservice "github.com/GlebRadaev/rewards/internal/service/catalogservice"
	ledgerservice "github.com/GlebRadaev/rewards/internal/service/ledgerservice"
	orderservice "github.com/GlebRadaev/rewards/internal/service/orderservice"
)

type Services struct {
	OrderService   orders.Service
	LedgerService  balance.Service
	CatalogService catalog.Service
	// Engine is the concrete order service, the expiry worker needs more than the HTTP surface.
	Engine *orderservice.Service
}

func New(repo *repo.Repositories, clk clock.Clock) *Services {
	ledgerService := ledgerservice.New(repo.LedgerRepo, repo.TxManager, clk)
	catalogService := catalogservice.New(repo.CatalogRepo, clk)
	orderService := orderservice.New(repo.OrderRepo, repo.StockRepo, repo.LedgerRepo, repo.TxManager, clk)

	return &Services{
		OrderService:   orderService,
		LedgerService:  ledgerService,
		CatalogService: catalogService,
		Engine:         orderService,
	}
}
