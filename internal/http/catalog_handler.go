package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mbsaloka/lume-cashier-app/internal/catalog"
	"github.com/mbsaloka/lume-cashier-app/internal/domain"
)

type ProductCatalog interface {
	ProductLookup
	Products(ctx context.Context) ([]domain.Product, error)
	Refresh(ctx context.Context) error
}

type CatalogHandler struct {
	catalog ProductCatalog
	timeout time.Duration
}

func NewCatalogHandler(c ProductCatalog, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog: c,
		timeout: timeout,
	}
}

type CatalogResponseDTO struct {
	Products   []domain.Product `json:"products"`
	Categories []string         `json:"categories"`
}

// GET /api/v1/catalog?q=&category=
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.Products(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}

	q := catalog.Query{
		Text:     r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	}
	respondJSON(w, http.StatusOK, CatalogResponseDTO{
		Products:   catalog.Filter(products, q),
		Categories: catalog.Categories(products),
	})
}

// GET /api/v1/catalog/{product_id}
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.Product(ctx, chi.URLParam(r, "product_id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// POST /api/v1/catalog/refresh
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.catalog.Refresh(ctx); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
