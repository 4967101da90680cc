package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mbsaloka/lume-cashier-app/internal/backendclient"
	"github.com/mbsaloka/lume-cashier-app/internal/cart"
	"github.com/mbsaloka/lume-cashier-app/internal/catalog"
	"github.com/mbsaloka/lume-cashier-app/internal/checkout"
	"github.com/mbsaloka/lume-cashier-app/internal/logger"
	"github.com/sony/gobreaker/v2"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.L().Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps checkout, catalog and backend errors to HTTP statuses
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var httpStatus int
	var code string

	var respErr *backendclient.ResponseError
	switch {
	case errors.Is(err, checkout.ErrIllegalTransition):
		httpStatus, code = http.StatusConflict, "illegal_transition"
	case errors.Is(err, checkout.ErrCartLocked):
		httpStatus, code = http.StatusConflict, "cart_locked"
	case errors.Is(err, checkout.ErrCommitInFlight):
		httpStatus, code = http.StatusConflict, "commit_in_flight"
	case errors.Is(err, checkout.ErrConfirmationOpen):
		httpStatus, code = http.StatusConflict, "confirmation_open"
	case errors.Is(err, checkout.ErrConfirmationRequired):
		httpStatus, code = http.StatusConflict, "confirmation_required"
	case errors.Is(err, checkout.ErrMethodChangeNotAllowed):
		httpStatus, code = http.StatusConflict, "method_locked"
	case errors.Is(err, checkout.ErrOutOfStock):
		httpStatus, code = http.StatusConflict, "out_of_stock"
	case errors.Is(err, checkout.ErrInvalidPaymentMethod):
		httpStatus, code = http.StatusBadRequest, "invalid_payment_method"
	case errors.Is(err, cart.ErrInvalidQuantity):
		httpStatus, code = http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, catalog.ErrProductNotFound):
		httpStatus, code = http.StatusNotFound, "product_not_found"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		httpStatus, code = http.StatusServiceUnavailable, "backend_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus, code = http.StatusGatewayTimeout, "timeout"
	case errors.As(err, &respErr):
		httpStatus, code = http.StatusBadGateway, "backend_error"
	case errors.Is(err, backendclient.ErrMalformedResponse):
		httpStatus, code = http.StatusBadGateway, "backend_error"
	default:
		httpStatus, code = http.StatusInternalServerError, "internal_error"
	}

	if httpStatus >= http.StatusInternalServerError {
		logger.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	respondError(w, httpStatus, code, err.Error())
}
