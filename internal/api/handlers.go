package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mbsaloka/lume-cashier-app/internal/backendclient"
	"github.com/mbsaloka/lume-cashier-app/internal/domain"
	"github.com/mbsaloka/lume-cashier-app/internal/logger"
	"github.com/mbsaloka/lume-cashier-app/internal/store"
	"github.com/shopspring/decimal"
)

type ProductStore interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, idempotencyKey string, req *domain.TransactionRequest) (*domain.TransactionRecord, bool, error)
	ListTransactions(ctx context.Context, limit int) ([]domain.TransactionRecord, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type Handler struct {
	products     ProductStore
	transactions TransactionStore
	timeout      time.Duration
}

func NewHandler(products ProductStore, transactions TransactionStore, timeout time.Duration) *Handler {
	return &Handler{
		products:     products,
		transactions: transactions,
		timeout:      timeout,
	}
}

// moneyScale matches the NUMERIC(14, 2) money columns
const moneyScale = 2

// fitsMoneyScale reports whether d is stored without rounding
func fitsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(moneyScale))
}

type ProductRequestDTO struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category"`
}

func (p ProductRequestDTO) validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return errors.New("name is required")
	case p.Price.IsNegative():
		return errors.New("price must not be negative")
	case !fitsMoneyScale(p.Price):
		return errors.New("price must have at most 2 decimal places")
	case p.Stock < 0:
		return errors.New("stock must not be negative")
	}
	return nil
}

// GET /api/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.products.ListProducts(ctx)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GET /api/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.products.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// POST /api/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product", err.Error())
		return
	}

	product := domain.Product{Name: req.Name, Price: req.Price, Stock: req.Stock, Category: req.Category}
	if err := h.products.CreateProduct(ctx, &product); err != nil {
		handleStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

// PUT /api/products/{id}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product", err.Error())
		return
	}

	product := domain.Product{
		ID:       chi.URLParam(r, "id"),
		Name:     req.Name,
		Price:    req.Price,
		Stock:    req.Stock,
		Category: req.Category,
	}
	if err := h.products.UpdateProduct(ctx, product); err != nil {
		handleStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// DELETE /api/products/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.products.DeleteProduct(ctx, chi.URLParam(r, "id")); err != nil {
		handleStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/transactions
//
// A request repeating an Idempotency-Key gets the stored record back with 200.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req domain.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := validateTransaction(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_transaction", err.Error())
		return
	}

	key := r.Header.Get(backendclient.IdempotencyKeyHeader)
	rec, created, err := h.transactions.CreateTransaction(ctx, key, &req)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}

	log := logger.WithContext(r.Context())
	if !created {
		log.Info().Str("transaction_id", rec.ID).Msg("idempotent transaction replay")
		respondJSON(w, http.StatusOK, rec)
		return
	}
	log.Info().
		Str("transaction_id", rec.ID).
		Str("method", rec.Method.String()).
		Str("total", rec.Total.String()).
		Msg("transaction recorded")
	respondJSON(w, http.StatusCreated, rec)
}

// GET /api/transactions?limit=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := h.transactions.ListTransactions(ctx, limit)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// GET /api/dashboard/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stats, err := h.transactions.Stats(ctx)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func validateTransaction(req *domain.TransactionRequest) error {
	if len(req.Items) == 0 {
		return errors.New("transaction has no items")
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			return errors.New("item productId is required")
		}
		if item.Quantity <= 0 {
			return errors.New("item quantity must be greater than 0")
		}
		if item.Price.IsNegative() {
			return errors.New("item price must not be negative")
		}
		if !fitsMoneyScale(item.Price) {
			return errors.New("item price must have at most 2 decimal places")
		}
	}
	if !req.Method.IsValid() {
		return errors.New("unknown payment method")
	}
	if !fitsMoneyScale(req.Total) {
		return errors.New("total must have at most 2 decimal places")
	}
	if !req.Total.Equal(domain.ItemsTotal(req.Items)) {
		return errors.New("total does not match items")
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.L().Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Message: message, Code: code})
}

func handleStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		logger.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("store operation failed")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
