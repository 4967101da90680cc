package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/mbsaloka/lume-cashier-app/internal/domain"
	"github.com/mbsaloka/lume-cashier-app/internal/logger"
	"golang.org/x/sync/singleflight"
)

// AllCategories matches every product in Filter
const AllCategories = "All"

var ErrProductNotFound = errors.New("product not found")

// Source is where the authoritative product list lives
type Source interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// Query narrows a product list. Empty fields match everything.
type Query struct {
	Text     string
	Category string
}

// Catalog is the read-only product view used to populate selection and to
// check stock before an item is added to the cart.
type Catalog struct {
	source Source
	cache  ProductCache
	sfg    singleflight.Group
}

func New(source Source, cache ProductCache) *Catalog {
	return &Catalog{source: source, cache: cache}
}

// Products returns the product list, from cache when possible
func (c *Catalog) Products(ctx context.Context) ([]domain.Product, error) {
	v, err, _ := c.sfg.Do(cacheKey, func() (interface{}, error) {
		if c.cache != nil {
			products, err := c.cache.Get(ctx)
			if err == nil {
				return products, nil
			}
			if !errors.Is(err, ErrCacheMiss) {
				logger.WithContext(ctx).Warn().Err(err).Msg("catalog cache get failed")
			}
		}

		products, err := c.source.ListProducts(ctx)
		if err != nil {
			return nil, err
		}

		if c.cache != nil {
			go func() {
				setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := c.cache.Set(setCtx, products); err != nil {
					logger.L().Warn().Err(err).Msg("catalog cache set failed")
				}
			}()
		}
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

// Search lists products matching q
func (c *Catalog) Search(ctx context.Context, q Query) ([]domain.Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(products, q), nil
}

// Product looks up one product by id
func (c *Catalog) Product(ctx context.Context, id string) (domain.Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, ErrProductNotFound
}

// Refresh drops the cached list so the next read hits the backend
func (c *Catalog) Refresh(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Delete(ctx)
}

// Filter keeps products whose name contains q.Text (case-insensitive) and
// whose category equals q.Category, unless it is empty or AllCategories.
func Filter(products []domain.Product, q Query) []domain.Product {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if text != "" && !strings.Contains(strings.ToLower(p.Name), text) {
			continue
		}
		if q.Category != "" && q.Category != AllCategories && p.Category != q.Category {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Categories returns AllCategories followed by the distinct categories, sorted
func Categories(products []domain.Product) []string {
	seen := make(map[string]struct{})
	var categories []string
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return append([]string{AllCategories}, categories...)
}
