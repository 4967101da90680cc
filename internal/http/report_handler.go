package http

import (
	"context"
	"net/http"
	"time"

	"github.com/mbsaloka/lume-cashier-app/internal/domain"
)

// Reports is the read-only history and stats source
type Reports interface {
	ListTransactions(ctx context.Context) ([]domain.TransactionRecord, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

type ReportHandler struct {
	reports Reports
	timeout time.Duration
}

func NewReportHandler(reports Reports, timeout time.Duration) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		timeout: timeout,
	}
}

// GET /api/v1/transactions
func (h *ReportHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	records, err := h.reports.ListTransactions(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if records == nil {
		records = []domain.TransactionRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

// GET /api/v1/stats
func (h *ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stats, err := h.reports.Stats(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
