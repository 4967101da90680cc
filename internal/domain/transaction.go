package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionItem is a line captured at commit time, decoupled from the live catalog
type TransactionItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Subtotal returns price × quantity
func (i TransactionItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// TransactionRequest is the finalized sale sent to the backend
type TransactionRequest struct {
	Items  []TransactionItem `json:"items"`
	Total  decimal.Decimal   `json:"total"`
	Method PaymentMethod     `json:"method"`
}

// TransactionRecord is a committed sale. ID and CreatedAt are assigned by the backend.
type TransactionRecord struct {
	ID        string            `json:"id"`
	Items     []TransactionItem `json:"items"`
	Total     decimal.Decimal   `json:"total"`
	Method    PaymentMethod     `json:"method"`
	CreatedAt time.Time         `json:"createdAt"`
}

// ItemsTotal sums the snapshot lines
func ItemsTotal(items []TransactionItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemsCount sums the quantities of the snapshot lines
func ItemsCount(items []TransactionItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// Stats is the aggregate shown on the dashboard
type Stats struct {
	TotalSales        decimal.Decimal `json:"totalSales"`
	TotalTransactions int64           `json:"totalTransactions"`
	TotalItemsSold    int64           `json:"totalItemsSold"`
}
