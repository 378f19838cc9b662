package expiry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GlebRadaev/rewards/internal/config"
	"github.com/GlebRadaev/rewards/internal/domain"
)

//go:generate mockgen -source=expiry.go -destination=mock_expiry.go -package=expiry

type OrderService interface {
	ListStalePending(ctx context.Context, ttl time.Duration, limit int) ([]domain.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID, adminNotes *string) (*domain.Order, error)
}

// Service cancels orders that stayed pending longer than the configured TTL.
type Service struct {
	orders         OrderService
	ttl            time.Duration
	limit          int
	updateInterval time.Duration
	workers        int
	workerPool     WorkerPoolI
	inFlight       sync.Map
}

func New(cfg *config.Config, orders OrderService) *Service {
	interval := cfg.ExpiryInterval
	if interval <= 0 {
		interval = config.DefaultExpiryInterval
	}
	return &Service{
		orders:         orders,
		ttl:            cfg.PendingOrderTTL,
		limit:          cfg.ExpiryBatch,
		updateInterval: interval,
		workers:        cfg.ExpiryWorkers,
	}
}

func (s *Service) Enabled() bool {
	return s.ttl > 0
}

// Start runs the expiry loop until ctx is done. It returns immediately when expiry is disabled,
// and the worker pool is only started otherwise.
func (s *Service) Start(ctx context.Context) {
	if !s.Enabled() {
		zap.L().Info("Pending order expiry disabled")
		return
	}
	zap.L().Info("Pending order expiry started", zap.Duration("ttl", s.ttl), zap.Duration("interval", s.updateInterval))
	s.workerPool = NewWorkerPool(s.workers)
	go s.run(ctx)
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.updateInterval)
	defer ticker.Stop()
	defer s.workerPool.Close()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Context canceled, stopping expiry")
			return
		case <-ticker.C:
			s.processOrders(ctx)
		}
	}
}

func (s *Service) processOrders(ctx context.Context) {
	orders, err := s.orders.ListStalePending(ctx, s.ttl, s.limit)
	if err != nil {
		zap.L().Error("Failed to fetch stale pending orders", zap.Error(err))
		return
	}

	var g errgroup.Group
	for _, order := range orders {
		id := order.ID

		if _, loaded := s.inFlight.LoadOrStore(id, struct{}{}); loaded {
			continue
		}

		g.Go(func() error {
			err := s.workerPool.AddTask(ctx, func() error {
				defer s.inFlight.Delete(id)
				return s.expireOrder(ctx, id)
			})
			if err != nil {
				s.inFlight.Delete(id)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zap.L().Error("Error scheduling expiry", zap.Error(err))
	}
}

func (s *Service) expireOrder(ctx context.Context, id uuid.UUID) error {
	notes := fmt.Sprintf("expired: pending for more than %s", s.ttl)
	_, err := s.orders.CancelOrder(ctx, id, &notes)
	switch {
	case err == nil:
		zap.L().Info("Expired pending order", zap.String("orderID", id.String()))
		return nil
	case errors.Is(err, domain.ErrInvalidStateTransition):
		// Approved or cancelled since it was listed.
		zap.L().Debug("Order left pending before expiry", zap.String("orderID", id.String()))
		return nil
	default:
		return fmt.Errorf("failed to expire order %s: %w", id, err)
	}
}
