package expiry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/GlebRadaev/rewards/internal/config"
	"github.com/GlebRadaev/rewards/internal/domain"
)

func NewMock(t *testing.T, ttl time.Duration) (*Service, *MockOrderService) {
	ctrl := gomock.NewController(t)
	orders := NewMockOrderService(ctrl)
	cfg := &config.Config{
		PendingOrderTTL: ttl,
		ExpiryInterval:  10 * time.Millisecond,
		ExpiryBatch:     10,
		ExpiryWorkers:   2,
	}
	return New(cfg, orders), orders
}

func withPool(service *Service) {
	service.workerPool = NewWorkerPool(2)
}

func pending(n int) []domain.Order {
	orders := make([]domain.Order, n)
	for i := range orders {
		orders[i] = domain.Order{ID: uuid.New(), Status: domain.OrderStatusPending}
	}
	return orders
}

func TestService_Disabled(t *testing.T) {
	service, _ := NewMock(t, 0)

	assert.False(t, service.Enabled())
	// No calls are expected on the mock.
	service.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	assert.Nil(t, service.workerPool)
}

func TestService_NonPositiveInterval(t *testing.T) {
	orders := NewMockOrderService(gomock.NewController(t))
	service := New(&config.Config{PendingOrderTTL: time.Hour, ExpiryBatch: 10, ExpiryWorkers: 1}, orders)
	assert.Equal(t, config.DefaultExpiryInterval, service.updateInterval)

	ctx, cancel := context.WithCancel(context.Background())
	assert.NotPanics(t, func() { service.Start(ctx) })
	cancel()
	time.Sleep(30 * time.Millisecond)
}

func TestService_Start(t *testing.T) {
	service, orders := NewMock(t, time.Hour)
	assert.True(t, service.Enabled())

	stale := pending(1)
	called := make(chan struct{}, 1)
	orders.EXPECT().ListStalePending(gomock.Any(), time.Hour, 10).Return(stale, nil).MinTimes(1)
	orders.EXPECT().CancelOrder(gomock.Any(), stale[0].ID, gomock.Any()).
		DoAndReturn(func(context.Context, uuid.UUID, *string) (*domain.Order, error) {
			select {
			case called <- struct{}{}:
			default:
			}
			return nil, domain.ErrInvalidStateTransition
		}).MinTimes(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.Start(ctx)

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("stale order was never cancelled")
	}
	cancel()
	time.Sleep(30 * time.Millisecond)
}

func TestService_processOrders(t *testing.T) {
	tests := []struct {
		name        string
		orders      []domain.Order
		listErr     error
		cancelErr   error
		inFlight    int
		wantCancels int
	}{
		{
			name:        "cancels every stale order",
			orders:      pending(3),
			wantCancels: 3,
		},
		{
			name:        "skips orders already being expired",
			orders:      pending(3),
			inFlight:    1,
			wantCancels: 2,
		},
		{
			name:        "order moved on meanwhile",
			orders:      pending(2),
			cancelErr:   &domain.TransitionError{From: domain.OrderStatusApproved, To: domain.OrderStatusCancelled},
			wantCancels: 2,
		},
		{
			name:        "storage failure is logged and dropped",
			orders:      pending(1),
			cancelErr:   domain.NewStorageError("lock order", errors.New("conn reset")),
			wantCancels: 1,
		},
		{
			name:    "listing fails",
			listErr: domain.NewStorageError("list stale orders", errors.New("conn reset")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, orders := NewMock(t, 48*time.Hour)
			withPool(service)

			orders.EXPECT().ListStalePending(gomock.Any(), 48*time.Hour, 10).Return(tt.orders, tt.listErr)
			for i := 0; i < tt.inFlight; i++ {
				service.inFlight.Store(tt.orders[i].ID, struct{}{})
			}
			for _, o := range tt.orders[tt.inFlight:] {
				orders.EXPECT().CancelOrder(gomock.Any(), o.ID, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ uuid.UUID, notes *string) (*domain.Order, error) {
						assert.Contains(t, *notes, "48h0m0s")
						return &domain.Order{ID: o.ID, Status: domain.OrderStatusCancelled}, tt.cancelErr
					})
			}

			service.processOrders(context.Background())
			service.workerPool.Close()

			for _, o := range tt.orders[tt.inFlight:] {
				_, busy := service.inFlight.Load(o.ID)
				assert.False(t, busy)
			}
		})
	}
}

func TestService_processOrdersCancelledContext(t *testing.T) {
	service, orders := NewMock(t, time.Hour)
	withPool(service)
	stale := pending(5)

	ctx, cancel := context.WithCancel(context.Background())
	orders.EXPECT().ListStalePending(gomock.Any(), time.Hour, 10).Return(stale, nil)
	orders.EXPECT().CancelOrder(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, context.Canceled).AnyTimes()
	cancel()

	service.processOrders(ctx)
	service.workerPool.Close()

	for _, o := range stale {
		_, busy := service.inFlight.Load(o.ID)
		assert.False(t, busy)
	}
}
