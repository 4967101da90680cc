package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbsaloka/lume-cashier-app/internal/logger"
	"github.com/mbsaloka/lume-cashier-app/internal/metrics"
)

type RouterDeps struct {
	Checkout       *CheckoutHandler
	Catalog        *CatalogHandler
	Reports        *ReportHandler
	Metrics        *metrics.ServerMetrics
	MetricsHandler http.Handler
}

// NewRouter builds the cashier API
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.Middleware)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", d.Catalog.List)
			r.Post("/refresh", d.Catalog.Refresh)
			r.Get("/{product_id}", d.Catalog.Get)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", d.Checkout.GetState)
			r.Post("/items", d.Checkout.AddItem)
			r.Delete("/items", d.Checkout.ClearCart)
			r.Put("/items/{product_id}", d.Checkout.UpdateQuantity)
			r.Delete("/items/{product_id}", d.Checkout.RemoveItem)
			r.Post("/review", d.Checkout.Review)
			r.Post("/edit", d.Checkout.Edit)
			r.Post("/method", d.Checkout.SelectMethod)
			r.Post("/payment", d.Checkout.Pay)
			r.Post("/back", d.Checkout.Back)
			r.Post("/confirm", d.Checkout.RequestConfirmation)
			r.Post("/confirm/cancel", d.Checkout.CancelConfirmation)
			r.Post("/confirm/acknowledge", d.Checkout.Confirm)
			r.Post("/retry", d.Checkout.Retry)
			r.Post("/new", d.Checkout.StartNew)
		})

		r.Get("/transactions", d.Reports.Transactions)
		r.Get("/stats", d.Reports.Stats)
	})

	return r
}
