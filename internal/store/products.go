package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mbsaloka/lume-cashier-app/internal/domain"
)

func (r *Repository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT id, name, price, stock, category FROM products ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Category); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	query := `SELECT id, name, price, stock, category FROM products WHERE id = $1`

	var p domain.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("query product by id: %w", err)
	}
	return p, nil
}

// CreateProduct inserts p, assigning an id when it has none
func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	query := `INSERT INTO products (id, name, price, stock, category, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.Price, p.Stock, p.Category); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *Repository) UpdateProduct(ctx context.Context, p domain.Product) error {
	query := `UPDATE products SET name = $2, price = $3, stock = $4, category = $5, updated_at = NOW()
	          WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.Price, p.Stock, p.Category)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return expectOneRow(res, ErrProductNotFound)
}

func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return expectOneRow(res, ErrProductNotFound)
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
