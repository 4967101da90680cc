package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbsaloka/lume-cashier-app/internal/logger"
	"github.com/mbsaloka/lume-cashier-app/internal/metrics"
)

type RouterDeps struct {
	Handler        *Handler
	Metrics        *metrics.ServerMetrics
	MetricsHandler http.Handler
	// Ready reports whether the store is reachable
	Ready func(ctx context.Context) error
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.Middleware)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				respondError(w, http.StatusServiceUnavailable, "not_ready", err.Error())
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}

	h := d.Handler
	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{id}", h.GetProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
		})
		r.Get("/dashboard/stats", h.Stats)
	})

	return r
}
