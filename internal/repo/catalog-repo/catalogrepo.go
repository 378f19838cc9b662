package catalogrepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/rewards/internal/domain"
	"github.com/GlebRadaev/rewards/internal/pg"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

const itemColumns = `id, name, description, price_points, price_cash, stock_quantity, is_active, requires_approval, created_at, updated_at`

func scanItem(row pgx.Row, item *domain.CatalogItem) error {
	return row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.PricePoints,
		&item.PriceCash,
		&item.StockQuantity,
		&item.IsActive,
		&item.RequiresApproval,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
}

// GetItem returns an active item. Inactive items are reported as missing.
func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error) {
	query := `SELECT ` + itemColumns + ` FROM catalog_items WHERE id = $1 AND is_active`

	var item domain.CatalogItem
	err := scanItem(r.db.QueryRow(ctx, query, id), &item)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		zap.L().Error("can't get catalog item", zap.Error(err))
		return nil, domain.NewStorageError("get item", err)
	}
	return &item, nil
}

func (r *Repository) ListItems(ctx context.Context) ([]domain.CatalogItem, error) {
	query := `SELECT ` + itemColumns + ` FROM catalog_items WHERE is_active ORDER BY name, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		zap.L().Error("can't list catalog items", zap.Error(err))
		return nil, domain.NewStorageError("list items", err)
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		var item domain.CatalogItem
		if err := scanItem(rows, &item); err != nil {
			zap.L().Error("can't scan catalog item row", zap.Error(err))
			return nil, domain.NewStorageError("scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		zap.L().Error("can't iterate catalog items", zap.Error(err))
		return nil, domain.NewStorageError("list items", err)
	}
	return items, nil
}

func (r *Repository) CreateItem(ctx context.Context, item *domain.CatalogItem) error {
	query := `
        INSERT INTO catalog_items (` + itemColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := r.db.Exec(ctx, query,
		item.ID,
		item.Name,
		item.Description,
		item.PricePoints,
		item.PriceCash,
		item.StockQuantity,
		item.IsActive,
		item.RequiresApproval,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		zap.L().Error("can't create catalog item", zap.Error(err))
		return domain.NewStorageError("create item", err)
	}
	return nil
}

// ReserveStock takes quantity units in one conditional update and returns the stock left.
func (r *Repository) ReserveStock(ctx context.Context, id uuid.UUID, quantity int, now time.Time) (int, error) {
	query := `
        UPDATE catalog_items
        SET stock_quantity = stock_quantity - $2, updated_at = $3
        WHERE id = $1 AND is_active AND stock_quantity >= $2
        RETURNING stock_quantity
    `
	var left int
	err := r.db.QueryRow(ctx, query, id, quantity, now).Scan(&left)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrInsufficientStock
	}
	if err != nil {
		zap.L().Error("can't reserve stock", zap.Error(err))
		return 0, domain.NewStorageError("reserve stock", err)
	}
	return left, nil
}

// ReleaseStock returns quantity units to the item, active or not.
func (r *Repository) ReleaseStock(ctx context.Context, id uuid.UUID, quantity int, now time.Time) error {
	_, err := r.increment(ctx, "release stock", id, quantity, now)
	return err
}

func (r *Repository) Restock(ctx context.Context, id uuid.UUID, quantity int, now time.Time) (int, error) {
	return r.increment(ctx, "restock", id, quantity, now)
}

func (r *Repository) increment(ctx context.Context, op string, id uuid.UUID, quantity int, now time.Time) (int, error) {
	query := `
        UPDATE catalog_items
        SET stock_quantity = stock_quantity + $2, updated_at = $3
        WHERE id = $1
        RETURNING stock_quantity
    `
	var stock int
	err := r.db.QueryRow(ctx, query, id, quantity, now).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrItemNotFound
	}
	if err != nil {
		zap.L().Error("can't "+op, zap.Error(err))
		return 0, domain.NewStorageError(op, err)
	}
	return stock, nil
}
