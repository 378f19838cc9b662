package repo

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/rewards/internal/pg"
	catalogrepo "github.com/GlebRadaev/rewards/internal/repo/catalog-repo"
	ledgerrepo "github.com/GlebRadaev/rewards/internal/repo/ledger-repo"
	orderrepo "github.com/GlebRadaev/rewards/internal/repo/order-repo"
)

func NewMock(t *testing.T) (*Repositories, pgxmock.PgxPoolIface, pg.TXManager) {
	ctrl := gomock.NewController(t)
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	t.Cleanup(mockDB.Close)
	mockTxManager := pg.NewMockTXManager(ctrl)

	return New(mockDB, mockTxManager), mockDB, mockTxManager
}

func TestNew(t *testing.T) {
	repo, mock, txManager := NewMock(t)

	assert.NotNil(t, repo.LedgerRepo)
	assert.NotNil(t, repo.CatalogRepo)
	assert.NotNil(t, repo.StockRepo)
	assert.NotNil(t, repo.OrderRepo)
	assert.Same(t, txManager, repo.TxManager)

	assert.IsType(t, &ledgerrepo.Repository{}, repo.LedgerRepo)
	assert.IsType(t, &catalogrepo.Repository{}, repo.CatalogRepo)
	assert.IsType(t, &orderrepo.Repository{}, repo.OrderRepo)
	assert.Same(t, repo.CatalogRepo, repo.StockRepo)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unmet expectations: %v", err)
	}
}
