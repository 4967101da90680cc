package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mbsaloka/lume-cashier-app/internal/checkout"
	"github.com/mbsaloka/lume-cashier-app/internal/domain"
)

// ProductLookup resolves a product id to the current catalog entry
type ProductLookup interface {
	Product(ctx context.Context, id string) (domain.Product, error)
}

type CheckoutHandler struct {
	machine  *checkout.Machine
	products ProductLookup
	timeout  time.Duration
}

func NewCheckoutHandler(machine *checkout.Machine, products ProductLookup, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		machine:  machine,
		products: products,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type SelectMethodRequestDTO struct {
	Method string `json:"method"`
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.machine.State())
}

// POST /api/v1/checkout/items
func (h *CheckoutHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, err := h.products.Product(ctx, req.ProductID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	state, err := h.machine.AddItem(product, req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, state)
}

// PUT /api/v1/checkout/items/{product_id}
func (h *CheckoutHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	h.respondTransition(w, r)(h.machine.UpdateQuantity(productID, req.Quantity))
}

// DELETE /api/v1/checkout/items/{product_id}
func (h *CheckoutHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.respondTransition(w, r)(h.machine.RemoveItem(chi.URLParam(r, "product_id")))
}

// DELETE /api/v1/checkout/items
func (h *CheckoutHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.respondTransition(w, r)(h.machine.ClearCart())
}

// POST /api/v1/checkout/review
func (h *CheckoutHandler) Review(w http.ResponseWriter, r *http.Request) {
	h.respondTransition(w, r)(h.machine.ProceedToReview())
}

// POST /api/v1/checkout/edit
func (h *CheckoutHandler) Edit(w http.ResponseWriter, r *http.Request) {
	h.respondTransition(w, r)(h.machine.Edit())
}

// POST /api/v1/checkout/method
func (h *CheckoutHandler) SelectMethod(w http.ResponseWriter, r *http.Request) {
	var req SelectMethodRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	h.respondTransition(w, r)(h.machine.SelectPaymentMethod(domain.PaymentMethod(req.Method)))
}

// POST /api/v1/checkout/payment
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	h.respondTransition(w, r)(h.machine.ProceedToPayment())
}

// POST /api/v1/checkout/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.respondTransition(w, r)(h.machine.Back())
}

// POST /api/v1/checkout/confirm
func (h *CheckoutHandler) RequestConfirmation(w http.ResponseWriter, r *http.Request) {
	h.respondTransition(w, r)(h.machine.RequestConfirmation())
}

// POST /api/v1/checkout/confirm/cancel
func (h *CheckoutHandler) CancelConfirmation(w http.ResponseWriter, r *http.Request) {
	h.respondTransition(w, r)(h.machine.CancelConfirmation())
}

// POST /api/v1/checkout/confirm/acknowledge
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.respondTransition(w, r)(h.machine.Confirm(r.Context()))
}

// POST /api/v1/checkout/retry
func (h *CheckoutHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.respondTransition(w, r)(h.machine.Retry())
}

// POST /api/v1/checkout/new
func (h *CheckoutHandler) StartNew(w http.ResponseWriter, r *http.Request) {
	h.respondTransition(w, r)(h.machine.StartNew())
}

func (h *CheckoutHandler) respondTransition(w http.ResponseWriter, r *http.Request) func(checkout.State, error) {
	return func(state checkout.State, err error) {
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, state)
	}
}
