package catalog

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/GlebRadaev/rewards/internal/domain"
	"github.com/GlebRadaev/rewards/internal/dto"
	"github.com/GlebRadaev/rewards/internal/handlers/apierror"
	"github.com/GlebRadaev/rewards/pkg/utils"
)

//go:generate mockgen -source=catalog.go -destination=mock_catalog.go -package=catalog

type Service interface {
	GetItem(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error)
	ListItems(ctx context.Context) ([]domain.CatalogItem, error)
	CreateItem(ctx context.Context, item domain.CatalogItem) (*domain.CatalogItem, error)
	Restock(ctx context.Context, id uuid.UUID, quantity int) (*domain.CatalogItem, error)
}

type CatalogHandler struct {
	catalogService Service
}

func New(catalogService Service) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// GetItems godoc
//
//	@Summary	List active catalog items
//	@Tags		Catalog
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{array}		dto.CatalogItemDTO
//	@Failure	500	{object}	utils.Response	"Internal server error"
//	@Router		/items [get]
func (h *CatalogHandler) GetItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalogService.ListItems(r.Context())
	if err != nil {
		apierror.Write(w, err)
		return
	}

	response := make([]dto.CatalogItemDTO, 0, len(items))
	for i := range items {
		response = append(response, dto.NewCatalogItemDTO(&items[i]))
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// GetItem godoc
//
//	@Summary	Get a catalog item
//	@Tags		Catalog
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		string	true	"Item id"
//	@Success	200	{object}	dto.CatalogItemDTO
//	@Failure	404	{object}	utils.Response	"Item not found"
//	@Router		/items/{id} [get]
func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	item, err := h.catalogService.GetItem(r.Context(), id)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewCatalogItemDTO(item))
}

// CreateItem godoc
//
//	@Summary	Add a catalog item
//	@Tags		Catalog
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		dto.CreateItemRequestDTO	true	"Item"
//	@Success	201		{object}	dto.CatalogItemDTO
//	@Failure	400		{object}	utils.Response	"Invalid item"
//	@Failure	403		{object}	utils.Response	"Staff role required"
//	@Router		/items [post]
func (h *CatalogHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest(w, "Invalid request body")
		return
	}

	item, err := h.catalogService.CreateItem(r.Context(), req.ToDomain())
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewCatalogItemDTO(item))
}

// Restock godoc
//
//	@Summary	Add units to an item
//	@Tags		Catalog
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"Item id"
//	@Param		request	body		dto.RestockRequestDTO	true	"Units"
//	@Success	200		{object}	dto.CatalogItemDTO
//	@Failure	400		{object}	utils.Response	"Invalid quantity"
//	@Failure	404		{object}	utils.Response	"Item not found"
//	@Router		/items/{id}/restock [post]
func (h *CatalogHandler) Restock(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var req dto.RestockRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest(w, "Invalid request body")
		return
	}

	item, err := h.catalogService.Restock(r.Context(), id, req.Quantity)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewCatalogItemDTO(item))
}

func itemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierror.BadRequest(w, "Invalid item id")
		return uuid.Nil, false
	}
	return id, true
}
