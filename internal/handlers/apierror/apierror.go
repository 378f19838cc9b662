package apierror

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/GlebRadaev/rewards/internal/domain"
	"github.com/GlebRadaev/rewards/pkg/utils"
)

const (
	CodeValidation      = "validation_error"
	CodeNotFound        = "not_found"
	CodeStock           = "insufficient_stock"
	CodeBalance         = "insufficient_balance"
	CodeTransition      = "invalid_state_transition"
	CodeIdempotency     = "idempotency_conflict"
	CodeInvalidNumber   = "invalid_order_number"
	CodeForbidden       = "forbidden"
	CodeInternal        = "internal_error"
	internalErrorReason = "Internal server error"
)

// Write maps a service error onto the HTTP status and machine code. Storage failures are
// logged and reported without their text.
func Write(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		utils.RespondWithError(w, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		utils.RespondWithError(w, http.StatusConflict, CodeStock, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		utils.RespondWithError(w, http.StatusPaymentRequired, CodeBalance, err.Error())
	case errors.Is(err, domain.ErrInvalidStateTransition):
		utils.RespondWithError(w, http.StatusConflict, CodeTransition, err.Error())
	case errors.Is(err, domain.ErrIdempotencyConflict):
		utils.RespondWithError(w, http.StatusConflict, CodeIdempotency, err.Error())
	default:
		zap.L().Error("request failed", zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, CodeInternal, internalErrorReason)
	}
}

func BadRequest(w http.ResponseWriter, message string) {
	utils.RespondWithError(w, http.StatusBadRequest, CodeValidation, message)
}

func Forbidden(w http.ResponseWriter) {
	utils.RespondWithError(w, http.StatusForbidden, CodeForbidden, "Access denied")
}
