package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/rewards/internal/domain"
)

type CreateOrderRequestDTO struct {
	ItemID        uuid.UUID `json:"itemId" example:"7b0c6f8e-3a59-4c39-9a37-5f1c3b4f2a10"`
	Quantity      int       `json:"quantity" example:"2"`
	PaymentMethod string    `json:"paymentMethod" example:"points"`
	Notes         string    `json:"notes,omitempty" example:"for my sister"`
}

type OrderActionRequestDTO struct {
	AdminNotes *string `json:"adminNotes,omitempty" example:"ready at the front desk"`
}

type OrderResponseDTO struct {
	ID            uuid.UUID       `json:"id"`
	Number        string          `json:"number" example:"123456789031"`
	UserID        uuid.UUID       `json:"userId"`
	ItemID        uuid.UUID       `json:"itemId"`
	Quantity      int             `json:"quantity" example:"2"`
	PaymentMethod string          `json:"paymentMethod" example:"points"`
	Amount        decimal.Decimal `json:"amount" swaggertype:"string" example:"80"`
	Status        string          `json:"status" example:"pending"`
	Notes         string          `json:"notes,omitempty"`
	AdminNotes    string          `json:"adminNotes,omitempty"`
	CreatedAt     string          `json:"createdAt" example:"2024-09-01T10:00:00Z"`
	UpdatedAt     string          `json:"updatedAt" example:"2024-09-01T10:00:00Z"`
}

func NewOrderResponse(o *domain.Order) OrderResponseDTO {
	return OrderResponseDTO{
		ID:            o.ID,
		Number:        o.Number,
		UserID:        o.UserID,
		ItemID:        o.ItemID,
		Quantity:      o.Quantity,
		PaymentMethod: string(o.PaymentMethod),
		Amount:        o.Amount,
		Status:        string(o.Status),
		Notes:         o.Notes,
		AdminNotes:    o.AdminNotes,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     o.UpdatedAt.Format(time.RFC3339),
	}
}

func NewOrdersResponse(orders []domain.Order) []OrderResponseDTO {
	response := make([]OrderResponseDTO, 0, len(orders))
	for i := range orders {
		response = append(response, NewOrderResponse(&orders[i]))
	}
	return response
}
