package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/rewards/internal/clock"
	"github.com/GlebRadaev/rewards/internal/pg"
	"github.com/GlebRadaev/rewards/internal/repo"
	"github.com/GlebRadaev/rewards/internal/service/catalogservice"
	"github.com/GlebRadaev/rewards/internal/service/ledgerservice"
	"github.com/GlebRadaev/rewards/internal/service/orderservice"
)

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)

	stock := orderservice.NewMockCatalogRepo(ctrl)
	repos := &repo.Repositories{
		LedgerRepo:  ledgerservice.NewMockRepo(ctrl),
		CatalogRepo: catalogservice.NewMockRepo(ctrl),
		StockRepo:   stock,
		OrderRepo:   orderservice.NewMockOrderRepo(ctrl),
		TxManager:   pg.NewMockTXManager(ctrl),
	}

	services := New(repos, clock.NewFixed(time.Now()))

	assert.NotNil(t, services.OrderService)
	assert.NotNil(t, services.LedgerService)
	assert.NotNil(t, services.CatalogService)
	assert.Same(t, services.Engine, services.OrderService)
}
