package orderrepo

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

const idempotencyConstraint = "orders_user_idempotency_key"

// ErrDuplicateIdempotencyKey is returned by Create when a concurrent request with the same
// (user, key) pair already stored its order.
var ErrDuplicateIdempotencyKey = errors.New("order with this idempotency key already exists")

const orderColumns = `id, number, user_id, item_id, quantity, payment_method, amount, status, idempotency_key, notes, admin_notes, created_at, updated_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scanOrder(row pgx.Row, order *domain.Order) error {
	return row.Scan(
		&order.ID,
		&order.Number,
		&order.UserID,
		&order.ItemID,
		&order.Quantity,
		&order.PaymentMethod,
		&order.Amount,
		&order.Status,
		&order.IdempotencyKey,
		&order.Notes,
		&order.AdminNotes,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
}

func (r *Repository) Create(ctx context.Context, order *domain.Order) error {
	query := `
        INSERT INTO orders (` + orderColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `
	_, err := r.db.Exec(ctx, query,
		order.ID,
		order.Number,
		order.UserID,
		order.ItemID,
		order.Quantity,
		order.PaymentMethod,
		order.Amount,
		order.Status,
		order.IdempotencyKey,
		order.Notes,
		order.AdminNotes,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if pg.IsUniqueViolation(err, idempotencyConstraint) {
		return ErrDuplicateIdempotencyKey
	}
	if err != nil {
		zap.L().Error("can't create order", zap.Error(err))
		return domain.NewStorageError("create order", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.getOne(ctx, "get order", query, id)
}

// GetForUpdate locks the order row until the surrounding transaction ends.
func (r *Repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, "lock order", query, id)
}

func (r *Repository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE number = $1`
	return r.getOne(ctx, "find order by number", query, number)
}

// FindByIdempotencyKey returns nil without an error when the user has no order with the key.
func (r *Repository) FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND idempotency_key = $2`
	order, err := r.getOne(ctx, "find order by idempotency key", query, userID, key)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return nil, nil
	}
	return order, err
}

// LockIdempotencyKey serializes requests of one user sharing a key until the surrounding transaction ends.
func (r *Repository) LockIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) error {
	query := `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	_, err := r.db.Exec(ctx, query, idempotencyLockKey(userID, key))
	if err != nil {
		zap.L().Error("can't lock idempotency key", zap.Error(err))
		return domain.NewStorageError("lock idempotency key", err)
	}
	return nil
}

func idempotencyLockKey(userID uuid.UUID, key string) string {
	return "order:" + userID.String() + ":" + key
}

func (r *Repository) getOne(ctx context.Context, op, query string, args ...any) (*domain.Order, error) {
	var order domain.Order
	err := scanOrder(r.db.QueryRow(ctx, query, args...), &order)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		zap.L().Error("can't "+op, zap.Error(err))
		return nil, domain.NewStorageError(op, err)
	}
	return &order, nil
}

// UpdateStatus moves the order from one status to another. The update only applies while the
// row still holds the expected status; otherwise a *domain.TransitionError is returned.
// A nil adminNotes keeps the stored notes.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, adminNotes *string, now time.Time) (*domain.Order, error) {
	query := `
        UPDATE orders
        SET status = $3, admin_notes = COALESCE($4, admin_notes), updated_at = $5
        WHERE id = $1 AND status = $2
        RETURNING ` + orderColumns
	var order domain.Order
	err := scanOrder(r.db.QueryRow(ctx, query, id, from, to, adminNotes, now), &order)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.TransitionError{From: from, To: to}
	}
	if err != nil {
		zap.L().Error("can't update order status", zap.Error(err), zap.String("status", string(to)))
		return nil, domain.NewStorageError("update order status", err)
	}
	return &order, nil
}

func (r *Repository) FindOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
    `
	return r.list(ctx, "list user orders", query, userID)
}

// FindByStatus returns the oldest orders in the given status first.
func (r *Repository) FindByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE status = $1
        ORDER BY created_at ASC, id ASC
        LIMIT $2
    `
	return r.list(ctx, "list orders by status", query, status, limit)
}

// FindStalePending returns pending orders created before olderThan.
func (r *Repository) FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Order, error) {
	query := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE status = 'pending' AND created_at < $1
        ORDER BY created_at ASC
        LIMIT $2
    `
	return r.list(ctx, "find stale orders", query, olderThan, limit)
}

func (r *Repository) list(ctx context.Context, op, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		zap.L().Error("can't "+op, zap.Error(err))
		return nil, domain.NewStorageError(op, err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := scanOrder(rows, &order); err != nil {
			zap.L().Error("can't scan order row", zap.Error(err))
			return nil, domain.NewStorageError("scan order", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		zap.L().Error("can't iterate orders", zap.Error(err))
		return nil, domain.NewStorageError(op, err)
	}
	return orders, nil
}
