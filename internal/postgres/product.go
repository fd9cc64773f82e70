package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/shopfront/internal/domain"
)

const productColumns = `id, name, description, category_id, slug, base_price, images, is_active, created_at, updated_at`

func scanProduct(row scanner) (*domain.Product, error) {
	var (
		p     domain.Product
		price pgtype.Numeric
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CategoryID, &p.Slug,
		&price, &p.Images, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.BasePrice, err = decimalFromNumeric(price); err != nil {
		return nil, err
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return &p, nil
}

// InsertProduct stores a new product.
func (s *Store) InsertProduct(ctx context.Context, p *domain.Product) error {
	const op = "postgres.InsertProduct"

	price, err := numericFromDecimal(p.BasePrice)
	if err != nil {
		return domain.Internal(err, op, "invalid base price")
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Name, p.Description, p.CategoryID, p.Slug,
		price, images(p.Images), p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	return mapError(err, op)
}

// UpdateProduct overwrites the writable fields of an existing product.
func (s *Store) UpdateProduct(ctx context.Context, p *domain.Product) error {
	const op = "postgres.UpdateProduct"

	price, err := numericFromDecimal(p.BasePrice)
	if err != nil {
		return domain.Internal(err, op, "invalid base price")
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE products
		SET name = $2, description = $3, category_id = $4, slug = $5,
		    base_price = $6, images = $7, is_active = $8, updated_at = $9
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.CategoryID, p.Slug,
		price, images(p.Images), p.IsActive, p.UpdatedAt,
	)
	if err != nil {
		return mapError(err, op)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// GetProduct returns a product regardless of its active flag.
func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	row := s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, notFoundOr(err, "postgres.GetProduct", domain.ErrProductNotFound)
	}
	return p, nil
}

// productWhere matches active products by optional category ($1) and
// case-insensitive name or description substring ($2).
const productWhere = `
	WHERE is_active
	  AND ($1::uuid IS NULL OR category_id = $1)
	  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')`

// ListProducts returns one page of active products sorted by name and the
// total number of matches.
func (s *Store) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	const op = "postgres.ListProducts"

	search := escapeLike(strings.TrimSpace(filter.Search))

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+productWhere,
		filter.CategoryID, search).Scan(&total); err != nil {
		return nil, 0, mapError(err, op)
	}

	var limit any // NULL means no limit
	if filter.PageSize > 0 {
		limit = filter.PageSize
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products`+productWhere+`
		ORDER BY name, id
		LIMIT $3 OFFSET $4`,
		filter.CategoryID, search, limit, filter.Offset(),
	)
	if err != nil {
		return nil, 0, mapError(err, op)
	}

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, mapError(err, op)
	}
	return products, total, nil
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ProductSlugExists reports whether any product other than excludeID holds slug.
func (s *Store) ProductSlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1 AND id <> $2)`,
		slug, excludeID).Scan(&exists)
	if err != nil {
		return false, mapError(err, "postgres.ProductSlugExists")
	}
	return exists, nil
}

// DeactivateProduct soft-deletes the product and its active SKUs in one transaction.
func (s *Store) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.DeactivateProduct"

	return s.withTx(ctx, op, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE products SET is_active = FALSE, updated_at = NOW()
			WHERE id = $1 AND is_active`, id)
		if err != nil {
			return mapError(err, op)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrProductNotFound
		}

		if _, err := tx.Exec(ctx, `
			UPDATE skus SET is_active = FALSE, updated_at = NOW()
			WHERE product_id = $1 AND is_active`, id); err != nil {
			return mapError(err, op)
		}
		return nil
	})
}

// images keeps a nil slice from being written as NULL.
func images(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
