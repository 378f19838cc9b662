package orderservice

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/rewards/internal/clock"
	"github.com/GlebRadaev/rewards/internal/domain"
	"github.com/GlebRadaev/rewards/internal/pg"
	orderrepo "github.com/GlebRadaev/rewards/internal/repo/order-repo"
	"github.com/GlebRadaev/rewards/pkg/validate"
)

//go:generate mockgen -source=orderservice.go -destination=mock_orderservice.go -package=orderservice

type OrderRepo interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByNumber(ctx context.Context, number string) (*domain.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*domain.Order, error)
	LockIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, adminNotes *string, now time.Time) (*domain.Order, error)
	FindOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	FindByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error)
	FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Order, error)
}

type CatalogRepo interface {
	GetItem(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error)
	ReserveStock(ctx context.Context, id uuid.UUID, quantity int, now time.Time) (int, error)
	ReleaseStock(ctx context.Context, id uuid.UUID, quantity int, now time.Time) error
}

type LedgerRepo interface {
	Append(ctx context.Context, tx *domain.Transaction) error
	GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Balance, error)
	LockAccount(ctx context.Context, userID uuid.UUID) error
}

// DefaultQueueSize bounds the admin queue when no limit is given.
const DefaultQueueSize = 100

type Service struct {
	orders    OrderRepo
	catalog   CatalogRepo
	ledger    LedgerRepo
	txManager pg.TXManager
	clock     clock.Clock
	numbers   func() string
}

func New(orders OrderRepo, catalog CatalogRepo, ledger LedgerRepo, txManager pg.TXManager, clk clock.Clock) *Service {
	return &Service{
		orders:    orders,
		catalog:   catalog,
		ledger:    ledger,
		txManager: txManager,
		clock:     clk,
		numbers:   validate.GeneratePickupNumber,
	}
}

// CreateOrder places an order and holds its stock and points in one transaction.
// The boolean result is true when an earlier order with the same idempotency key was returned.
func (s *Service) CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	var (
		order    *domain.Order
		replayed bool
	)
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		if req.IdempotencyKey != "" {
			if err := s.orders.LockIdempotencyKey(ctx, req.UserID, req.IdempotencyKey); err != nil {
				return err
			}
			existing, err := s.orders.FindByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				if !req.Matches(existing) {
					return domain.ErrIdempotencyConflict
				}
				order, replayed = existing, true
				return nil
			}
		}

		created, err := s.placeOrder(ctx, req)
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if req.IdempotencyKey != "" && lostToRetry(err) {
		return s.replay(ctx, req, err)
	}
	if err != nil {
		zap.L().Info("order rejected", zap.Error(err), zap.String("user_id", req.UserID.String()))
		return nil, false, err
	}

	if !replayed {
		zap.L().Info("order created",
			zap.String("order_id", order.ID.String()),
			zap.String("number", order.Number),
			zap.String("status", string(order.Status)),
		)
	}
	return order, replayed, nil
}

func (s *Service) placeOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error) {
	item, err := s.catalog.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	order := &domain.Order{
		ID:            uuid.New(),
		Number:        s.numbers(),
		UserID:        req.UserID,
		ItemID:        item.ID,
		Quantity:      req.Quantity,
		PaymentMethod: req.PaymentMethod,
		Amount:        item.UnitPrice(req.PaymentMethod).Mul(decimal.NewFromInt(int64(req.Quantity))),
		Status:        domain.InitialOrderStatus(item.RequiresApproval),
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		order.IdempotencyKey = &key
	}

	points := order.PointsAmount()
	if req.PaymentMethod == domain.PaymentPoints {
		if err := s.ledger.LockAccount(ctx, req.UserID); err != nil {
			return nil, err
		}
		balance, err := s.ledger.GetBalance(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		if points > balance.Available {
			return nil, domain.ErrInsufficientBalance
		}
	}

	if _, err := s.catalog.ReserveStock(ctx, item.ID, req.Quantity, now); err != nil {
		return nil, err
	}

	if req.PaymentMethod == domain.PaymentPoints {
		err := s.ledger.Append(ctx, &domain.Transaction{
			ID:          uuid.New(),
			UserID:      req.UserID,
			Amount:      -points,
			Kind:        domain.KindOrderReserve,
			ReferenceID: &order.ID,
			Notes:       "order " + order.Number,
			CreatedAt:   now,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// lostToRetry reports errors a keyed request gets when a concurrent request with the same key
// committed first and took the stock or points.
func lostToRetry(err error) bool {
	return errors.Is(err, orderrepo.ErrDuplicateIdempotencyKey) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrInsufficientBalance)
}

// replay resolves a lost race between two requests carrying the same idempotency key.
// Without a stored order the cause is returned as is.
func (s *Service) replay(ctx context.Context, req domain.OrderRequest, cause error) (*domain.Order, bool, error) {
	existing, err := s.orders.FindByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		if errors.Is(cause, orderrepo.ErrDuplicateIdempotencyKey) {
			return nil, false, domain.NewStorageError("replay order", cause)
		}
		zap.L().Info("order rejected", zap.Error(cause), zap.String("user_id", req.UserID.String()))
		return nil, false, cause
	}
	if !req.Matches(existing) {
		return nil, false, domain.ErrIdempotencyConflict
	}
	return existing, true, nil
}

func (s *Service) ApproveOrder(ctx context.Context, id uuid.UUID, adminNotes *string) (*domain.Order, error) {
	return s.transition(ctx, id, domain.OrderStatusApproved, adminNotes, nil)
}

// FulfillOrder closes an approved order. The reservation stays in the ledger and is reported as
// used from now on.
func (s *Service) FulfillOrder(ctx context.Context, id uuid.UUID, adminNotes *string) (*domain.Order, error) {
	return s.transition(ctx, id, domain.OrderStatusFulfilled, adminNotes, nil)
}

// CancelOrder returns the stock and, for points orders, the reserved points.
func (s *Service) CancelOrder(ctx context.Context, id uuid.UUID, adminNotes *string) (*domain.Order, error) {
	return s.transition(ctx, id, domain.OrderStatusCancelled, adminNotes, s.release)
}

func (s *Service) release(ctx context.Context, order *domain.Order, now time.Time) error {
	if err := s.catalog.ReleaseStock(ctx, order.ItemID, order.Quantity, now); err != nil {
		return err
	}
	if order.PaymentMethod != domain.PaymentPoints {
		return nil
	}
	return s.ledger.Append(ctx, &domain.Transaction{
		ID:          uuid.New(),
		UserID:      order.UserID,
		Amount:      order.PointsAmount(),
		Kind:        domain.KindOrderRelease,
		ReferenceID: &order.ID,
		Notes:       "order " + order.Number + " cancelled",
		CreatedAt:   now,
	})
}

type sideEffect func(ctx context.Context, order *domain.Order, now time.Time) error

func (s *Service) transition(ctx context.Context, id uuid.UUID, to domain.OrderStatus, adminNotes *string, effect sideEffect) (*domain.Order, error) {
	var updated *domain.Order
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := order.Status.Transition(to); err != nil {
			return err
		}

		now := s.clock.Now()
		if effect != nil {
			if err := effect(ctx, order, now); err != nil {
				return err
			}
		}

		updated, err = s.orders.UpdateStatus(ctx, id, order.Status, to, adminNotes, now)
		return err
	})
	if err != nil {
		zap.L().Info("order transition rejected", zap.Error(err),
			zap.String("order_id", id.String()), zap.String("to", string(to)))
		return nil, err
	}

	zap.L().Info("order status changed", zap.String("order_id", id.String()), zap.String("status", string(to)))
	return updated, nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *Service) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	if !validate.IsPickupNumber(number) {
		return nil, domain.Validationf("invalid order number %q", number)
	}
	return s.orders.FindByNumber(ctx, number)
}

// ListOrders returns the user's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	orders, err := s.orders.FindOrdersByUserID(ctx, userID)
	if err != nil {
		zap.L().Error("failed to get orders", zap.Error(err))
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// ListOrdersByStatus is the staff queue, oldest orders first.
func (s *Service) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	if !status.Valid() {
		return nil, domain.Validationf("unknown order status %q", status)
	}
	if limit <= 0 {
		limit = DefaultQueueSize
	}
	orders, err := s.orders.FindByStatus(ctx, status, limit)
	if err != nil {
		zap.L().Error("failed to get order queue", zap.Error(err))
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// ListStalePending returns pending orders older than ttl.
func (s *Service) ListStalePending(ctx context.Context, ttl time.Duration, limit int) ([]domain.Order, error) {
	return s.orders.FindStalePending(ctx, s.clock.Now().Add(-ttl), limit)
}
