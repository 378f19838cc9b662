package orders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/GlebRadaev/rewards/internal/domain"
	"github.com/GlebRadaev/rewards/internal/dto"
	"github.com/GlebRadaev/rewards/internal/handlers/apierror"
	"github.com/GlebRadaev/rewards/pkg/auth"
	"github.com/GlebRadaev/rewards/pkg/utils"
	"github.com/GlebRadaev/rewards/pkg/validate"
)

//go:generate mockgen -source=orders.go -destination=mock_orders.go -package=orders

type Service interface {
	CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, bool, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	ListOrdersByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error)
	ApproveOrder(ctx context.Context, id uuid.UUID, adminNotes *string) (*domain.Order, error)
	FulfillOrder(ctx context.Context, id uuid.UUID, adminNotes *string) (*domain.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID, adminNotes *string) (*domain.Order, error)
}

const (
	IdempotencyHeader    = "Idempotency-Key"
	maxIdempotencyKeyLen = 255
)

type OrderHandler struct {
	orderService Service
}

func New(orderService Service) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// AddOrder godoc
//
//	@Summary		Place an order
//	@Description	Reserve stock and, for points orders, the points of the caller.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			request			body		dto.CreateOrderRequestDTO	true	"Order"
//	@Param			Idempotency-Key	header		string						false	"Client retry key"
//	@Security		BearerAuth
//	@Success		201				{object}	dto.OrderResponseDTO	"Order created"
//	@Success		200				{object}	dto.OrderResponseDTO	"Order already created with this key"
//	@Failure		400				{object}	utils.Response			"Invalid request"
//	@Failure		402				{object}	utils.Response			"Insufficient balance"
//	@Failure		404				{object}	utils.Response			"Item not found"
//	@Failure		409				{object}	utils.Response			"Insufficient stock or idempotency conflict"
//	@Failure		500				{object}	utils.Response			"Internal server error"
//	@Router			/orders [post]
func (h *OrderHandler) AddOrder(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest(w, "Invalid request body")
		return
	}

	key := r.Header.Get(IdempotencyHeader)
	if len(key) > maxIdempotencyKeyLen {
		apierror.BadRequest(w, "Idempotency key is too long")
		return
	}

	order, replayed, err := h.orderService.CreateOrder(r.Context(), domain.OrderRequest{
		UserID:         auth.UserID(r.Context()),
		ItemID:         req.ItemID,
		Quantity:       req.Quantity,
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		Notes:          req.Notes,
		IdempotencyKey: key,
	})
	if err != nil {
		apierror.Write(w, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	utils.RespondWithJSON(w, status, dto.NewOrderResponse(order))
}

// GetOrders godoc
//
//	@Summary		List own orders
//	@Tags			Orders
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		dto.OrderResponseDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/orders [get]
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListOrders(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewOrdersResponse(orders))
}

// GetOrder godoc
//
//	@Summary		Get an order
//	@Tags			Orders
//	@Produce		json
//	@Param			id	path	string	true	"Order id"
//	@Security		BearerAuth
//	@Success		200	{object}	dto.OrderResponseDTO
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Router			/orders/{id} [get]
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	order, err := h.orderService.GetOrder(r.Context(), id)
	h.respondOwned(w, r, order, err)
}

// GetOrderByNumber godoc
//
//	@Summary		Find an order by its pickup number
//	@Tags			Orders
//	@Produce		json
//	@Param			number	path	string	true	"Pickup number"
//	@Security		BearerAuth
//	@Success		200	{object}	dto.OrderResponseDTO
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		422	{object}	utils.Response	"Invalid pickup number"
//	@Router			/orders/number/{number} [get]
func (h *OrderHandler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if !validate.IsPickupNumber(number) {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, apierror.CodeInvalidNumber, "Invalid order number")
		return
	}
	order, err := h.orderService.GetOrderByNumber(r.Context(), number)
	h.respondOwned(w, r, order, err)
}

// respondOwned hides orders of other students behind a 404.
func (h *OrderHandler) respondOwned(w http.ResponseWriter, r *http.Request, order *domain.Order, err error) {
	if err != nil {
		apierror.Write(w, err)
		return
	}
	if !auth.CanAccess(r.Context(), order.UserID) {
		apierror.Write(w, domain.ErrOrderNotFound)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewOrderResponse(order))
}

// GetQueue godoc
//
//	@Summary		Staff order queue
//	@Description	Orders in the given status, oldest first.
//	@Tags			Admin
//	@Produce		json
//	@Param			status	query	string	true	"pending, approved, fulfilled or cancelled"
//	@Param			limit	query	int		false	"Page size"
//	@Security		BearerAuth
//	@Success		200	{array}		dto.OrderResponseDTO
//	@Failure		400	{object}	utils.Response	"Unknown status"
//	@Failure		403	{object}	utils.Response	"Staff role required"
//	@Router			/admin/orders [get]
func (h *OrderHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.OrderStatusPending
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			apierror.BadRequest(w, "Invalid limit")
			return
		}
		limit = n
	}

	orders, err := h.orderService.ListOrdersByStatus(r.Context(), status, limit)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewOrdersResponse(orders))
}

// Approve godoc
//
//	@Summary		Approve a pending order
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string						true	"Order id"
//	@Param			request	body	dto.OrderActionRequestDTO	false	"Notes"
//	@Security		BearerAuth
//	@Success		200	{object}	dto.OrderResponseDTO
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		409	{object}	utils.Response	"Invalid state transition"
//	@Router			/orders/{id}/approve [post]
func (h *OrderHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.orderService.ApproveOrder)
}

// Fulfill godoc
//
//	@Summary		Hand over an approved order
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string						true	"Order id"
//	@Param			request	body	dto.OrderActionRequestDTO	false	"Notes"
//	@Security		BearerAuth
//	@Success		200	{object}	dto.OrderResponseDTO
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		409	{object}	utils.Response	"Invalid state transition"
//	@Router			/orders/{id}/fulfill [post]
func (h *OrderHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.orderService.FulfillOrder)
}

// Cancel godoc
//
//	@Summary		Cancel an order
//	@Description	Students may cancel their own orders, staff any order.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string						true	"Order id"
//	@Param			request	body	dto.OrderActionRequestDTO	false	"Notes"
//	@Security		BearerAuth
//	@Success		200	{object}	dto.OrderResponseDTO
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		409	{object}	utils.Response	"Invalid state transition"
//	@Router			/orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !auth.IsStaff(r.Context()) {
		id, ok := orderID(w, r)
		if !ok {
			return
		}
		order, err := h.orderService.GetOrder(r.Context(), id)
		if err != nil {
			apierror.Write(w, err)
			return
		}
		if order.UserID != auth.UserID(r.Context()) {
			apierror.Write(w, domain.ErrOrderNotFound)
			return
		}
	}
	h.act(w, r, h.orderService.CancelOrder)
}

type action func(ctx context.Context, id uuid.UUID, adminNotes *string) (*domain.Order, error)

func (h *OrderHandler) act(w http.ResponseWriter, r *http.Request, do action) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req dto.OrderActionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		apierror.BadRequest(w, "Invalid request body")
		return
	}
	if req.AdminNotes != nil && !auth.IsStaff(r.Context()) {
		req.AdminNotes = nil
	}

	order, err := do(r.Context(), id, req.AdminNotes)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewOrderResponse(order))
}

func orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierror.BadRequest(w, "Invalid order id")
		return uuid.Nil, false
	}
	return id, true
}
