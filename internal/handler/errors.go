package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"starledger/internal/errs"
)

var statusByCode = map[errs.Code]int{
	errs.CodeInvalidQuantity:   http.StatusBadRequest,
	errs.CodeInvalidAction:     http.StatusBadRequest,
	errs.CodeOrderNotFound:     http.StatusNotFound,
	errs.CodeUserNotFound:      http.StatusNotFound,
	errs.CodeNoPendingOrder:    http.StatusNotFound,
	errs.CodeInvalidTransition: http.StatusConflict,
	errs.CodeAlreadyDecided:    http.StatusConflict,
	errs.CodeUnauthorized:      http.StatusForbidden,
	errs.CodeNegativeBalance:   http.StatusUnprocessableEntity,
	errs.CodeRateLimited:       http.StatusTooManyRequests,
	errs.CodeStoreUnavailable:  http.StatusServiceUnavailable,
}

type errorResponse struct {
	Code      errs.Code `json:"code"`
	Error     string    `json:"error"`
	Retryable bool      `json:"retryable"`
}

func writeError(w http.ResponseWriter, op string, err error) {
	code := errs.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed", "error", err)
	}

	msg := err.Error()
	if !ok {
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Code: code, Error: msg, Retryable: errs.Retryable(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}
