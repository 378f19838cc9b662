package repo

import (
	"github.com/GlebRadaev/rewards/internal/pg"
	catalogrepo "github.com/GlebRadaev/rewards/internal/repo/catalog-repo"
	ledgerrepo "github.com/GlebRadaev/rewards/internal/repo/ledger-repo"
	orderrepo "github.com/GlebRadaev/rewards/internal/repo/order-repo"
	"github.com/GlebRadaev/rewards/internal/service/catalogservice"
	"github.com/GlebRadaev/rewards/internal/service/ledgerservice"
	"github.com/GlebRadaev/rewards/internal/service/orderservice"
)

type Repositories struct {
	LedgerRepo  ledgerservice.Repo
	CatalogRepo catalogservice.Repo
	StockRepo   orderservice.CatalogRepo
	OrderRepo   orderservice.OrderRepo
	TxManager   pg.TXManager
}

func New(conn pg.Database, txManager pg.TXManager) *Repositories {
	ledgerRepo := ledgerrepo.New(conn)
	catalogRepo := catalogrepo.New(conn)
	orderRepo := orderrepo.New(conn)

	return &Repositories{
		LedgerRepo:  ledgerRepo,
		CatalogRepo: catalogRepo,
		StockRepo:   catalogRepo,
		OrderRepo:   orderRepo,
		TxManager:   txManager,
	}
}
