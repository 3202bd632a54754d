package postgres

import (
	"context"
	"fmt"

	"github.com/Emeeerrr/Shop-FS/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetProduct loads an active product with its stock row. Inactive or
// unknown products surface as ErrProductNotFound.
func (r *ProductRepository) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	const query = `
SELECT p.id, p.sku, p.name, p.description, p.price_cents, p.currency, p.image_url, p.active,
       s.units_available
FROM products p
LEFT JOIN stocks s ON s.product_id = p.id
WHERE p.id = $1`

	var p domain.Product
	var units *int
	err := r.queryRow(ctx, query, id).Scan(
		&p.ID, &p.SKU, &p.Name, &p.Description, &p.PriceCents, &p.Currency, &p.ImageURL, &p.Active,
		&units,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Product{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	if !p.Active {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if units == nil {
		return domain.Product{}, domain.ErrNoStockRow
	}
	p.Stock = domain.Stock{ProductID: p.ID, UnitsAvailable: *units}
	return p, nil
}

// ListProducts returns the active catalog with stock counts, for the
// storefront listing.
func (r *ProductRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	const query = `
SELECT p.id, p.sku, p.name, p.description, p.price_cents, p.currency, p.image_url, p.active,
       COALESCE(s.units_available, 0)
FROM products p
LEFT JOIN stocks s ON s.product_id = p.id
WHERE p.active
ORDER BY p.sku`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		var units int
		if err := rows.Scan(
			&p.ID, &p.SKU, &p.Name, &p.Description, &p.PriceCents, &p.Currency, &p.ImageURL, &p.Active,
			&units,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Stock = domain.Stock{ProductID: p.ID, UnitsAvailable: units}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProductRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *ProductRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
