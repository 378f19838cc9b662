package repo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/GlebRadaev/rewards/internal/clock"
	"github.com/GlebRadaev/rewards/internal/domain"
	"github.com/GlebRadaev/rewards/internal/pg"
	"github.com/GlebRadaev/rewards/internal/repo"
	"github.com/GlebRadaev/rewards/internal/service"
	"github.com/GlebRadaev/rewards/internal/testutil"
)

// PostgresSuite runs the engine against a real database, see testutil.DatabaseEnv.
type PostgresSuite struct {
	suite.Suite
	ctx     context.Context
	repos   *repo.Repositories
	srv     *service.Services
	student uuid.UUID
	item    *domain.CatalogItem
}

func TestPostgres(t *testing.T) {
	suite.Run(t, &PostgresSuite{})
}

func (s *PostgresSuite) SetupTest() {
	pool := testutil.NewPool(s.T())
	s.ctx = context.Background()
	s.repos = repo.New(pg.New(pool), pg.NewTXManager(pool))
	s.srv = service.New(s.repos, clock.NewSystem())
	s.student = uuid.New()

	item, err := s.srv.CatalogService.CreateItem(s.ctx, domain.CatalogItem{
		Name:             "Bible bookmark",
		PricePoints:      40,
		PriceCash:        decimal.RequireFromString("2.50"),
		StockQuantity:    3,
		RequiresApproval: true,
	})
	s.Require().NoError(err)
	s.item = item

	_, err = s.srv.LedgerService.AwardPoints(s.ctx, s.student, 100, domain.KindAttendance, nil, "")
	s.Require().NoError(err)
}

func (s *PostgresSuite) stock(id uuid.UUID) int {
	item, err := s.srv.CatalogService.GetItem(s.ctx, id)
	s.Require().NoError(err)
	return item.StockQuantity
}

func (s *PostgresSuite) balance() *domain.Balance {
	b, err := s.srv.LedgerService.GetBalance(s.ctx, s.student)
	s.Require().NoError(err)
	return b
}

func (s *PostgresSuite) request(quantity int, key string) domain.OrderRequest {
	return domain.OrderRequest{
		UserID:         s.student,
		ItemID:         s.item.ID,
		Quantity:       quantity,
		PaymentMethod:  domain.PaymentPoints,
		IdempotencyKey: key,
	}
}

func (s *PostgresSuite) TestLifecycle() {
	order, replayed, err := s.srv.OrderService.CreateOrder(s.ctx, s.request(2, ""))
	s.Require().NoError(err)
	s.False(replayed)
	s.Equal(domain.OrderStatusPending, order.Status)
	s.Equal(1, s.stock(s.item.ID))
	s.Equal(int64(20), s.balance().Available)
	s.Equal(int64(80), s.balance().Reserved)

	byNumber, err := s.srv.OrderService.GetOrderByNumber(s.ctx, order.Number)
	s.Require().NoError(err)
	s.Equal(order.ID, byNumber.ID)

	notes := "ready at the front desk"
	_, err = s.srv.OrderService.ApproveOrder(s.ctx, order.ID, &notes)
	s.Require().NoError(err)
	fulfilled, err := s.srv.OrderService.FulfillOrder(s.ctx, order.ID, nil)
	s.Require().NoError(err)
	s.Equal(notes, fulfilled.AdminNotes)

	b := s.balance()
	s.Equal(int64(20), b.Available)
	s.Equal(int64(0), b.Reserved)
	s.Equal(int64(80), b.Used)
	s.Equal(int64(100), b.TotalEarned)
	s.Equal(int64(80), b.TotalDeducted)

	_, err = s.srv.OrderService.CancelOrder(s.ctx, order.ID, nil)
	s.ErrorIs(err, domain.ErrInvalidStateTransition)
	s.Equal(b, s.balance())
}

func (s *PostgresSuite) TestCancelRestoresStockAndPoints() {
	order, _, err := s.srv.OrderService.CreateOrder(s.ctx, s.request(3, ""))
	s.Require().NoError(err)
	s.Equal(0, s.stock(s.item.ID))

	_, err = s.srv.OrderService.CancelOrder(s.ctx, order.ID, nil)
	s.Require().NoError(err)
	s.Equal(3, s.stock(s.item.ID))
	s.Equal(int64(100), s.balance().Available)

	page, err := s.srv.LedgerService.ListTransactions(s.ctx, s.student, 2, "")
	s.Require().NoError(err)
	s.Len(page.Transactions, 2)
	s.Equal(domain.KindOrderRelease, page.Transactions[0].Kind)
	s.NotEmpty(page.NextCursor)

	next, err := s.srv.LedgerService.ListTransactions(s.ctx, s.student, 2, page.NextCursor)
	s.Require().NoError(err)
	s.Len(next.Transactions, 1)
	s.Equal(domain.KindAttendance, next.Transactions[0].Kind)
	s.Empty(next.NextCursor)
}

func (s *PostgresSuite) TestLastUnitRace() {
	poster, err := s.srv.CatalogService.CreateItem(s.ctx, domain.CatalogItem{Name: "Signed poster", PriceCash: decimal.NewFromInt(5), StockQuantity: 1})
	s.Require().NoError(err)

	const buyers = 6
	errs := make([]error, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = s.srv.OrderService.CreateOrder(s.ctx, domain.OrderRequest{
				UserID:        uuid.New(),
				ItemID:        poster.ID,
				Quantity:      1,
				PaymentMethod: domain.PaymentCash,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, domain.ErrInsufficientStock)
	}
	s.Equal(1, succeeded)
	s.Equal(0, s.stock(poster.ID))
}

func (s *PostgresSuite) TestConcurrentOrdersNeverOverdraw() {
	const attempts = 5
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// 40 points each, only two fit in 100.
			_, _, _ = s.srv.OrderService.CreateOrder(s.ctx, s.request(1, ""))
		}()
	}
	wg.Wait()

	b := s.balance()
	s.GreaterOrEqual(b.Available, int64(0))
	s.Equal(int64(80), b.Reserved)
	s.Equal(1, s.stock(s.item.ID))
}

func (s *PostgresSuite) TestIdempotentRetry() {
	first, replayed, err := s.srv.OrderService.CreateOrder(s.ctx, s.request(1, "tap-1"))
	s.Require().NoError(err)
	s.False(replayed)

	again, replayed, err := s.srv.OrderService.CreateOrder(s.ctx, s.request(1, "tap-1"))
	s.Require().NoError(err)
	s.True(replayed)
	s.Equal(first.ID, again.ID)
	s.Equal(2, s.stock(s.item.ID))
	s.Equal(int64(40), s.balance().Reserved)

	_, _, err = s.srv.OrderService.CreateOrder(s.ctx, s.request(2, "tap-1"))
	s.ErrorIs(err, domain.ErrIdempotencyConflict)
}

func (s *PostgresSuite) TestConcurrentSameKeyRetry() {
	poster, err := s.srv.CatalogService.CreateItem(s.ctx, domain.CatalogItem{Name: "Signed poster", PricePoints: 30, StockQuantity: 1})
	s.Require().NoError(err)

	const taps = 6
	type result struct {
		order    *domain.Order
		replayed bool
		err      error
	}
	results := make([]result, taps)
	var wg sync.WaitGroup
	for i := 0; i < taps; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, replayed, err := s.srv.OrderService.CreateOrder(s.ctx, domain.OrderRequest{
				UserID:         s.student,
				ItemID:         poster.ID,
				Quantity:       1,
				PaymentMethod:  domain.PaymentPoints,
				IdempotencyKey: "poster-tap",
			})
			results[i] = result{order, replayed, err}
		}(i)
	}
	wg.Wait()

	created := 0
	var orderID uuid.UUID
	for _, r := range results {
		s.Require().NoError(r.err)
		if !r.replayed {
			created++
		}
		if orderID == uuid.Nil {
			orderID = r.order.ID
		}
		s.Equal(orderID, r.order.ID)
	}
	s.Equal(1, created)
	s.Equal(0, s.stock(poster.ID))
	s.Equal(int64(30), s.balance().Reserved)
}

func (s *PostgresSuite) TestStalePending() {
	order, _, err := s.srv.OrderService.CreateOrder(s.ctx, s.request(1, ""))
	s.Require().NoError(err)

	stale, err := s.srv.Engine.ListStalePending(s.ctx, time.Hour, 10)
	s.Require().NoError(err)
	s.Empty(stale)

	stale, err = s.srv.Engine.ListStalePending(s.ctx, -time.Minute, 10)
	s.Require().NoError(err)
	s.Require().Len(stale, 1)
	s.Equal(order.ID, stale[0].ID)
}
