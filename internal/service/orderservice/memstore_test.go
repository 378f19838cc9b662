package orderservice

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GlebRadaev/rewards/internal/domain"
	"github.com/GlebRadaev/rewards/internal/pg"
	orderrepo "github.com/GlebRadaev/rewards/internal/repo/order-repo"
)

// memStore keeps catalog, orders and ledger in memory. Transactions are serialized by one
// mutex and rolled back from a snapshot.
type memStore struct {
	mu     sync.Mutex
	items  map[uuid.UUID]domain.CatalogItem
	orders map[uuid.UUID]domain.Order
	ledger []domain.Transaction
}

type memTxKey struct{}

var (
	_ OrderRepo    = (*memStore)(nil)
	_ CatalogRepo  = (*memStore)(nil)
	_ LedgerRepo   = (*memStore)(nil)
	_ pg.TXManager = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		items:  map[uuid.UUID]domain.CatalogItem{},
		orders: map[uuid.UUID]domain.Order{},
	}
}

func (s *memStore) Begin(ctx context.Context, fn pg.TransactionalFn) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make(map[uuid.UUID]domain.CatalogItem, len(s.items))
	for k, v := range s.items {
		items[k] = v
	}
	orders := make(map[uuid.UUID]domain.Order, len(s.orders))
	for k, v := range s.orders {
		orders[k] = v
	}
	ledgerLen := len(s.ledger)

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.items, s.orders, s.ledger = items, orders, s.ledger[:ledgerLen]
		return err
	}
	return nil
}

func (s *memStore) guard(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) addItem(item domain.CatalogItem) {
	s.items[item.ID] = item
}

func (s *memStore) stock(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].StockQuantity
}

func (s *memStore) ledgerLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledger)
}

func (s *memStore) GetItem(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error) {
	defer s.guard(ctx)()
	item, ok := s.items[id]
	if !ok || !item.IsActive {
		return nil, domain.ErrItemNotFound
	}
	return &item, nil
}

func (s *memStore) ReserveStock(ctx context.Context, id uuid.UUID, quantity int, now time.Time) (int, error) {
	defer s.guard(ctx)()
	item, ok := s.items[id]
	if !ok || !item.IsActive || item.StockQuantity < quantity {
		return 0, domain.ErrInsufficientStock
	}
	item.StockQuantity -= quantity
	item.UpdatedAt = now
	s.items[id] = item
	return item.StockQuantity, nil
}

func (s *memStore) ReleaseStock(ctx context.Context, id uuid.UUID, quantity int, now time.Time) error {
	defer s.guard(ctx)()
	item, ok := s.items[id]
	if !ok {
		return domain.ErrItemNotFound
	}
	item.StockQuantity += quantity
	item.UpdatedAt = now
	s.items[id] = item
	return nil
}

func (s *memStore) Append(ctx context.Context, tx *domain.Transaction) error {
	defer s.guard(ctx)()
	s.ledger = append(s.ledger, *tx)
	return nil
}

func (s *memStore) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	defer s.guard(ctx)()
	b := &domain.Balance{UserID: userID}
	for _, t := range s.ledger {
		if t.UserID != userID {
			continue
		}
		b.Available += t.Amount
		if t.Kind == domain.KindOrderReserve {
			switch s.orders[*t.ReferenceID].Status {
			case domain.OrderStatusPending, domain.OrderStatusApproved:
				b.Reserved -= t.Amount
			case domain.OrderStatusFulfilled:
				b.Used -= t.Amount
				b.TotalDeducted -= t.Amount
			}
			continue
		}
		if t.Amount > 0 && t.Kind != domain.KindOrderRelease && t.Kind != domain.KindOrderRefund {
			b.TotalEarned += t.Amount
		}
		if t.Amount < 0 {
			b.TotalDeducted -= t.Amount
		}
	}
	return b, nil
}

func (s *memStore) LockAccount(context.Context, uuid.UUID) error {
	return nil
}

func (s *memStore) Create(ctx context.Context, order *domain.Order) error {
	defer s.guard(ctx)()
	if order.IdempotencyKey != nil {
		for _, o := range s.orders {
			if o.UserID == order.UserID && o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
				return orderrepo.ErrDuplicateIdempotencyKey
			}
		}
	}
	s.orders[order.ID] = *order
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	defer s.guard(ctx)()
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &o, nil
}

func (s *memStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.GetByID(ctx, id)
}

func (s *memStore) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	defer s.guard(ctx)()
	for _, o := range s.orders {
		if o.Number == number {
			return &o, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (s *memStore) FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*domain.Order, error) {
	defer s.guard(ctx)()
	for _, o := range s.orders {
		if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return &o, nil
		}
	}
	return nil, nil
}

// LockIdempotencyKey is a no-op: transactions already hold the store mutex.
func (s *memStore) LockIdempotencyKey(context.Context, uuid.UUID, string) error {
	return nil
}

func (s *memStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, adminNotes *string, now time.Time) (*domain.Order, error) {
	defer s.guard(ctx)()
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return nil, &domain.TransitionError{From: from, To: to}
	}
	o.Status = to
	o.UpdatedAt = now
	if adminNotes != nil {
		o.AdminNotes = *adminNotes
	}
	s.orders[id] = o
	return &o, nil
}

func (s *memStore) filter(ctx context.Context, keep func(domain.Order) bool) []domain.Order {
	defer s.guard(ctx)()
	var out []domain.Order
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memStore) FindOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	out := s.filter(ctx, func(o domain.Order) bool { return o.UserID == userID })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *memStore) FindByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	out := s.filter(ctx, func(o domain.Order) bool { return o.Status == status })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Order, error) {
	out := s.filter(ctx, func(o domain.Order) bool {
		return o.Status == domain.OrderStatusPending && o.CreatedAt.Before(olderThan)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
