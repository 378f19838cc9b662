package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/rewards/internal/domain"
)

type CatalogItemDTO struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name" example:"Bible bookmark"`
	Description      string          `json:"description,omitempty"`
	PricePoints      int64           `json:"pricePoints" example:"40"`
	PriceCash        decimal.Decimal `json:"priceCash" swaggertype:"string" example:"2.50"`
	StockQuantity    int             `json:"stockQuantity" example:"3"`
	RequiresApproval bool            `json:"requiresApproval"`
}

func NewCatalogItemDTO(item *domain.CatalogItem) CatalogItemDTO {
	return CatalogItemDTO{
		ID:               item.ID,
		Name:             item.Name,
		Description:      item.Description,
		PricePoints:      item.PricePoints,
		PriceCash:        item.PriceCash,
		StockQuantity:    item.StockQuantity,
		RequiresApproval: item.RequiresApproval,
	}
}

type CreateItemRequestDTO struct {
	Name             string          `json:"name" example:"Bible bookmark"`
	Description      string          `json:"description,omitempty"`
	PricePoints      int64           `json:"pricePoints" example:"40"`
	PriceCash        decimal.Decimal `json:"priceCash" swaggertype:"string" example:"2.50"`
	StockQuantity    int             `json:"stockQuantity" example:"3"`
	RequiresApproval bool            `json:"requiresApproval"`
}

func (r CreateItemRequestDTO) ToDomain() domain.CatalogItem {
	return domain.CatalogItem{
		Name:             r.Name,
		Description:      r.Description,
		PricePoints:      r.PricePoints,
		PriceCash:        r.PriceCash,
		StockQuantity:    r.StockQuantity,
		RequiresApproval: r.RequiresApproval,
	}
}

type RestockRequestDTO struct {
	Quantity int `json:"quantity" example:"10"`
}
