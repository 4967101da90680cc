package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry as the backend reports it. The cashier never
// mutates it; stock is only read to refuse adding sold-out items.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category"`
}

func (p Product) InStock() bool {
	return p.Stock > 0
}
