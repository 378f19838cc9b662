package balance

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/GlebRadaev/rewards/internal/domain"
	"github.com/GlebRadaev/rewards/internal/dto"
	"github.com/GlebRadaev/rewards/internal/handlers/apierror"
	"github.com/GlebRadaev/rewards/pkg/auth"
	"github.com/GlebRadaev/rewards/pkg/utils"
)

//go:generate mockgen -source=balance.go -destination=mock_balance.go -package=balance

type Service interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Balance, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int, cursor string) (*domain.TransactionPage, error)
	AwardPoints(ctx context.Context, userID uuid.UUID, amount int64, kind domain.TransactionKind, referenceID *uuid.UUID, notes string) (*domain.Transaction, error)
}

type BalanceHandler struct {
	ledgerService Service
}

func New(ledgerService Service) *BalanceHandler {
	return &BalanceHandler{
		ledgerService: ledgerService,
	}
}

// GetBalance godoc
//
//	@Summary		Get account balance
//	@Description	Available, reserved and used points derived from the ledger.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Produce		json
//	@Param			userId	path		string					true	"User id"
//	@Success		200		{object}	dto.BalanceResponseDTO	"Current balance"
//	@Failure		401		{object}	utils.Response			"User not authorized"
//	@Failure		403		{object}	utils.Response			"Not your account"
//	@Failure		500		{object}	utils.Response			"Internal server error"
//	@Router			/accounts/{userId}/balance [get]
func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}

	balance, err := h.ledgerService.GetBalance(r.Context(), userID)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewBalanceResponse(balance))
}

// GetTransactions godoc
//
//	@Summary		List ledger entries
//	@Description	Newest first. Pass nextCursor back as cursor to fetch the following page.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Produce		json
//	@Param			userId	path		string	true	"User id"
//	@Param			cursor	query		string	false	"Page cursor"
//	@Param			limit	query		int		false	"Page size, 1 to 100"
//	@Success		200		{object}	dto.TransactionsResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid cursor or limit"
//	@Failure		403		{object}	utils.Response	"Not your account"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/accounts/{userId}/transactions [get]
func (h *BalanceHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			apierror.BadRequest(w, "Invalid limit")
			return
		}
		limit = n
	}

	page, err := h.ledgerService.ListTransactions(r.Context(), userID, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewTransactionsResponse(page))
}

// AwardPoints godoc
//
//	@Summary		Award or adjust points
//	@Description	Only teacher_adjustment may carry a negative amount.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			userId	path		string						true	"User id"
//	@Param			request	body		dto.AwardPointsRequestDTO	true	"Ledger entry"
//	@Success		201		{object}	dto.TransactionDTO
//	@Failure		400		{object}	utils.Response	"Invalid request"
//	@Failure		402		{object}	utils.Response	"Adjustment exceeds the available balance"
//	@Failure		403		{object}	utils.Response	"Staff role required"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/accounts/{userId}/transactions [post]
func (h *BalanceHandler) AwardPoints(w http.ResponseWriter, r *http.Request) {
	userID, ok := accountID(w, r)
	if !ok {
		return
	}

	var req dto.AwardPointsRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest(w, "Invalid request body")
		return
	}

	tx, err := h.ledgerService.AwardPoints(r.Context(), userID, req.Amount, domain.TransactionKind(req.Kind), req.ReferenceID, req.Notes)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewTransactionDTO(tx))
}

// accountID reads the account from the path. Students only see their own account.
func accountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		apierror.BadRequest(w, "Invalid user id")
		return uuid.Nil, false
	}
	if !auth.CanAccess(r.Context(), id) {
		apierror.Forbidden(w)
		return uuid.Nil, false
	}
	return id, true
}
