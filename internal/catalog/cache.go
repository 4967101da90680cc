package catalog

import (
	"context"
	"errors"

	"github.com/mbsaloka/lume-cashier-app/internal/domain"
)

type ProductCache interface {
	Get(ctx context.Context) ([]domain.Product, error)
	Set(ctx context.Context, products []domain.Product) error
	Delete(ctx context.Context) error
}

var ErrCacheMiss = errors.New("cache miss")
