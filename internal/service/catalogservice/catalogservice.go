package catalogservice

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GlebRadaev/rewards/internal/clock"
	"github.com/GlebRadaev/rewards/internal/domain"
)

//go:generate mockgen -source=catalogservice.go -destination=mock_catalogservice.go -package=catalogservice

type Repo interface {
	GetItem(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error)
	ListItems(ctx context.Context) ([]domain.CatalogItem, error)
	CreateItem(ctx context.Context, item *domain.CatalogItem) error
	Restock(ctx context.Context, id uuid.UUID, quantity int, now time.Time) (int, error)
}

type Service struct {
	repo  Repo
	clock clock.Clock
}

func New(repo Repo, clk clock.Clock) *Service {
	return &Service{
		repo:  repo,
		clock: clk,
	}
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *Service) ListItems(ctx context.Context) ([]domain.CatalogItem, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		zap.L().Error("failed to list items", zap.Error(err))
		return nil, err
	}
	if items == nil {
		items = []domain.CatalogItem{}
	}
	return items, nil
}

// CreateItem stores a new active item. ID and timestamps are assigned here.
func (s *Service) CreateItem(ctx context.Context, item domain.CatalogItem) (*domain.CatalogItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	switch {
	case item.Name == "":
		return nil, domain.Validationf("name is required")
	case item.PricePoints < 0:
		return nil, domain.Validationf("price in points must not be negative")
	case item.PricePoints > domain.MaxPricePoints:
		return nil, domain.Validationf("price in points must be at most %d", domain.MaxPricePoints)
	case item.PriceCash.IsNegative():
		return nil, domain.Validationf("cash price must not be negative")
	case item.PriceCash.GreaterThan(domain.MaxPriceCash):
		return nil, domain.Validationf("cash price must be at most %s", domain.MaxPriceCash)
	case item.StockQuantity < 0:
		return nil, domain.Validationf("stock must not be negative")
	}

	now := s.clock.Now()
	item.ID = uuid.New()
	item.IsActive = true
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := s.repo.CreateItem(ctx, &item); err != nil {
		zap.L().Error("failed to create item", zap.Error(err))
		return nil, err
	}
	zap.L().Info("catalog item created", zap.String("item_id", item.ID.String()), zap.String("name", item.Name))
	return &item, nil
}

func (s *Service) Restock(ctx context.Context, id uuid.UUID, quantity int) (*domain.CatalogItem, error) {
	if quantity < 1 {
		return nil, domain.Validationf("restock quantity must be at least 1, got %d", quantity)
	}
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	stock, err := s.repo.Restock(ctx, id, quantity, now)
	if err != nil {
		zap.L().Error("failed to restock item", zap.Error(err))
		return nil, err
	}
	item.StockQuantity = stock
	item.UpdatedAt = now
	return item, nil
}
