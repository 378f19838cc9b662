package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Response is the error body returned by every endpoint.
type Response struct {
	Error string `json:"error" example:"insufficient stock"`
	Code  string `json:"code" example:"insufficient_stock"`
}

func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("can't encode response", zap.Error(err))
	}
}

func RespondWithError(w http.ResponseWriter, status int, code, message string) {
	RespondWithJSON(w, status, Response{Error: message, Code: code})
}
