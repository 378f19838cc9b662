package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/GlebRadaev/rewards/internal/domain"
)

type BalanceResponseDTO struct {
	Available     int64 `json:"available" example:"20"`
	Reserved      int64 `json:"reserved" example:"80"`
	Used          int64 `json:"used" example:"0"`
	TotalEarned   int64 `json:"totalEarned" example:"100"`
	TotalDeducted int64 `json:"totalDeducted" example:"0"`
}

func NewBalanceResponse(b *domain.Balance) BalanceResponseDTO {
	return BalanceResponseDTO{
		Available:     b.Available,
		Reserved:      b.Reserved,
		Used:          b.Used,
		TotalEarned:   b.TotalEarned,
		TotalDeducted: b.TotalDeducted,
	}
}

type TransactionDTO struct {
	ID          uuid.UUID  `json:"id"`
	Amount      int64      `json:"amount" example:"-80"`
	Kind        string     `json:"kind" example:"order_reserve"`
	ReferenceID *uuid.UUID `json:"referenceId,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" example:"2020-12-09T16:09:57+03:00"`
}

type TransactionsResponseDTO struct {
	Transactions []TransactionDTO `json:"transactions"`
	NextCursor   string           `json:"nextCursor,omitempty"`
}

func NewTransactionsResponse(page *domain.TransactionPage) TransactionsResponseDTO {
	response := TransactionsResponseDTO{
		Transactions: make([]TransactionDTO, 0, len(page.Transactions)),
		NextCursor:   page.NextCursor,
	}
	for _, t := range page.Transactions {
		response.Transactions = append(response.Transactions, NewTransactionDTO(&t))
	}
	return response
}

func NewTransactionDTO(t *domain.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          t.ID,
		Amount:      t.Amount,
		Kind:        string(t.Kind),
		ReferenceID: t.ReferenceID,
		Notes:       t.Notes,
		CreatedAt:   t.CreatedAt,
	}
}

type AwardPointsRequestDTO struct {
	Amount      int64      `json:"amount" example:"25"`
	Kind        string     `json:"kind" example:"attendance"`
	ReferenceID *uuid.UUID `json:"referenceId,omitempty"`
	Notes       string     `json:"notes,omitempty" example:"Sunday service"`
}
