package ledgerrepo

import (
	"context"

	"github.com/google/uuid"
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

func (r *Repository) Append(ctx context.Context, tx *domain.Transaction) error {
	query := `
        INSERT INTO ledger_transactions (id, user_id, amount, kind, reference_id, notes, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.db.Exec(ctx, query, tx.ID, tx.UserID, tx.Amount, tx.Kind, tx.ReferenceID, tx.Notes, tx.CreatedAt)
	if err != nil {
		zap.L().Error("can't append ledger transaction", zap.Error(err), zap.String("kind", string(tx.Kind)))
		return domain.NewStorageError("append transaction", err)
	}
	return nil
}

// GetBalance aggregates the whole log of the account. Reservations are classified by the
// status of the order they reference, so fulfilment needs no extra ledger row.
func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	query := `
        SELECT
            COALESCE(SUM(t.amount), 0)::bigint,
            COALESCE(SUM(-t.amount) FILTER (WHERE t.kind = 'order_reserve' AND o.status IN ('pending', 'approved')), 0)::bigint,
            COALESCE(SUM(-t.amount) FILTER (WHERE t.kind = 'order_reserve' AND o.status = 'fulfilled'), 0)::bigint,
            COALESCE(SUM(t.amount) FILTER (WHERE t.amount > 0 AND t.kind NOT IN ('order_release', 'order_refund')), 0)::bigint,
            COALESCE(SUM(-t.amount) FILTER (WHERE t.amount < 0 AND (t.kind <> 'order_reserve' OR o.status = 'fulfilled')), 0)::bigint
        FROM ledger_transactions t
        LEFT JOIN orders o ON o.id = t.reference_id AND t.kind = 'order_reserve'
        WHERE t.user_id = $1
    `
	balance := domain.Balance{UserID: userID}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&balance.Available,
		&balance.Reserved,
		&balance.Used,
		&balance.TotalEarned,
		&balance.TotalDeducted,
	)
	if err != nil {
		zap.L().Error("can't get balance", zap.Error(err))
		return nil, domain.NewStorageError("get balance", err)
	}
	return &balance, nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit int, after *domain.TransactionCursor) ([]domain.Transaction, error) {
	query := `
        SELECT id, user_id, amount, kind, reference_id, notes, created_at
        FROM ledger_transactions
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2
    `
	args := []any{userID, limit}
	if after != nil {
		query = `
        SELECT id, user_id, amount, kind, reference_id, notes, created_at
        FROM ledger_transactions
        WHERE user_id = $1 AND (created_at, id) < ($3::timestamptz, $4::uuid)
        ORDER BY created_at DESC, id DESC
        LIMIT $2
    `
		args = append(args, after.CreatedAt, after.ID)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		zap.L().Error("can't list transactions", zap.Error(err))
		return nil, domain.NewStorageError("list transactions", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Kind, &t.ReferenceID, &t.Notes, &t.CreatedAt)
		if err != nil {
			zap.L().Error("can't scan transaction row", zap.Error(err))
			return nil, domain.NewStorageError("scan transaction", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		zap.L().Error("can't iterate transactions", zap.Error(err))
		return nil, domain.NewStorageError("list transactions", err)
	}
	return transactions, nil
}

// LockAccount serializes balance checks of one account until the surrounding transaction ends.
func (r *Repository) LockAccount(ctx context.Context, userID uuid.UUID) error {
	query := `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	_, err := r.db.Exec(ctx, query, userID.String())
	if err != nil {
		zap.L().Error("can't lock account", zap.Error(err))
		return domain.NewStorageError("lock account", err)
	}
	return nil
}
