package ledgerservice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GlebRadaev/rewards/internal/clock"
	"github.com/GlebRadaev/rewards/internal/domain"
	"github.com/GlebRadaev/rewards/internal/pg"
)

//go:generate mockgen -source=ledgerservice.go -destination=mock_ledgerservice.go -package=ledgerservice

type Repo interface {
	Append(ctx context.Context, tx *domain.Transaction) error
	GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Balance, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int, after *domain.TransactionCursor) ([]domain.Transaction, error)
	LockAccount(ctx context.Context, userID uuid.UUID) error
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Service struct {
	repo      Repo
	txManager pg.TXManager
	clock     clock.Clock
}

func New(repo Repo, txManager pg.TXManager, clk clock.Clock) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		clock:     clk,
	}
}

func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		zap.L().Error("failed to get balance", zap.Error(err))
		return nil, err
	}
	return balance, nil
}

// ListTransactions returns one page of the account history, newest first. An empty cursor
// starts from the newest entry; NextCursor is empty on the last page.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, limit int, cursor string) (*domain.TransactionPage, error) {
	switch {
	case limit == 0:
		limit = DefaultPageSize
	case limit < 0 || limit > MaxPageSize:
		return nil, domain.Validationf("limit must be between 1 and %d, got %d", MaxPageSize, limit)
	}

	after, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	transactions, err := s.repo.ListTransactions(ctx, userID, limit+1, after)
	if err != nil {
		zap.L().Error("failed to list transactions", zap.Error(err))
		return nil, err
	}

	page := &domain.TransactionPage{Transactions: transactions}
	if len(transactions) > limit {
		page.Transactions = transactions[:limit]
		last := page.Transactions[limit-1]
		page.NextCursor = EncodeCursor(domain.TransactionCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	if page.Transactions == nil {
		page.Transactions = []domain.Transaction{}
	}
	return page, nil
}

// AwardPoints posts an earning transaction. Only teacher adjustments may be negative and they
// must not take the available balance below zero.
func (s *Service) AwardPoints(ctx context.Context, userID uuid.UUID, amount int64, kind domain.TransactionKind, referenceID *uuid.UUID, notes string) (*domain.Transaction, error) {
	if !kind.IsEarning() {
		return nil, domain.Validationf("kind %q can't be posted directly", kind)
	}
	if amount == 0 {
		return nil, domain.Validationf("amount must not be zero")
	}
	if amount < 0 && kind != domain.KindTeacherAdjustment {
		return nil, domain.Validationf("only %s may be negative", domain.KindTeacherAdjustment)
	}

	tx := &domain.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      amount,
		Kind:        kind,
		ReferenceID: referenceID,
		Notes:       notes,
		CreatedAt:   s.clock.Now(),
	}

	if amount > 0 {
		if err := s.repo.Append(ctx, tx); err != nil {
			zap.L().Error("failed to award points", zap.Error(err))
			return nil, err
		}
		return tx, nil
	}

	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		if err := s.repo.LockAccount(ctx, userID); err != nil {
			return err
		}
		balance, err := s.repo.GetBalance(ctx, userID)
		if err != nil {
			return err
		}
		if balance.Available+amount < 0 {
			return domain.ErrInsufficientBalance
		}
		return s.repo.Append(ctx, tx)
	})
	if err != nil {
		zap.L().Info("points adjustment rejected", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, err
	}
	return tx, nil
}

type cursorPayload struct {
	CreatedAt time.Time `json:"t"`
	ID        uuid.UUID `json:"id"`
}

// EncodeCursor renders a keyset position as an opaque URL-safe token.
func EncodeCursor(c domain.TransactionCursor) string {
	raw, _ := json.Marshal(cursorPayload{CreatedAt: c.CreatedAt, ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token means the first page.
func DecodeCursor(token string) (*domain.TransactionCursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, domain.Validationf("malformed cursor")
	}
	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ID == uuid.Nil {
		return nil, domain.Validationf("malformed cursor")
	}
	return &domain.TransactionCursor{CreatedAt: p.CreatedAt, ID: p.ID}, nil
}
