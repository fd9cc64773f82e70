package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/shopfront/internal/domain"
)

const skuColumns = `id, product_id, sku, name, price, inventory, attributes, is_active, created_at, updated_at`

func scanSKU(row scanner) (*domain.SKU, error) {
	var (
		sku   domain.SKU
		price pgtype.Numeric
		attrs []byte
	)
	err := row.Scan(&sku.ID, &sku.ProductID, &sku.Code, &sku.Name, &price,
		&sku.Inventory, &attrs, &sku.IsActive, &sku.CreatedAt, &sku.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if sku.Price, err = decimalFromNumeric(price); err != nil {
		return nil, err
	}
	if sku.Attributes, err = decodeAttributes(attrs); err != nil {
		return nil, err
	}
	return &sku, nil
}

// skuArgs encodes the columns shared by insert and update.
func skuArgs(op string, sku *domain.SKU) (pgtype.Numeric, []byte, error) {
	price, err := numericFromDecimal(sku.Price)
	if err != nil {
		return price, nil, domain.Internal(err, op, "invalid price")
	}
	attrs, err := encodeAttributes(sku.Attributes)
	if err != nil {
		return price, nil, domain.Internal(err, op, "invalid attributes")
	}
	return price, attrs, nil
}

// InsertSKU stores a new SKU.
func (s *Store) InsertSKU(ctx context.Context, sku *domain.SKU) error {
	const op = "postgres.InsertSKU"

	price, attrs, err := skuArgs(op, sku)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO skus (`+skuColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sku.ID, sku.ProductID, sku.Code, sku.Name, price,
		sku.Inventory, attrs, sku.IsActive, sku.CreatedAt, sku.UpdatedAt,
	)
	return mapError(err, op)
}

// UpdateSKU overwrites the writable fields of an existing SKU.
func (s *Store) UpdateSKU(ctx context.Context, sku *domain.SKU) error {
	const op = "postgres.UpdateSKU"

	price, attrs, err := skuArgs(op, sku)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE skus
		SET sku = $2, name = $3, price = $4, inventory = $5,
		    attributes = $6, is_active = $7, updated_at = $8
		WHERE id = $1`,
		sku.ID, sku.Code, sku.Name, price, sku.Inventory, attrs, sku.IsActive, sku.UpdatedAt,
	)
	if err != nil {
		return mapError(err, op)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSKUNotFound
	}
	return nil
}

// GetSKU returns a SKU regardless of its active flag.
func (s *Store) GetSKU(ctx context.Context, id uuid.UUID) (*domain.SKU, error) {
	row := s.db.QueryRow(ctx, `SELECT `+skuColumns+` FROM skus WHERE id = $1`, id)
	sku, err := scanSKU(row)
	if err != nil {
		return nil, notFoundOr(err, "postgres.GetSKU", domain.ErrSKUNotFound)
	}
	return sku, nil
}

// ListSKUs returns a product's active SKUs sorted by name, optionally only
// those with stock on hand.
func (s *Store) ListSKUs(ctx context.Context, productID uuid.UUID, inStockOnly bool) ([]domain.SKU, error) {
	const op = "postgres.ListSKUs"

	rows, err := s.db.Query(ctx, `
		SELECT `+skuColumns+`
		FROM skus
		WHERE product_id = $1 AND is_active
		  AND (NOT $2 OR inventory > 0)
		ORDER BY name`, productID, inStockOnly)
	if err != nil {
		return nil, mapError(err, op)
	}
	defer rows.Close()

	out := []domain.SKU{}
	for rows.Next() {
		sku, err := scanSKU(rows)
		if err != nil {
			return nil, mapError(err, op)
		}
		out = append(out, *sku)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, op)
	}
	return out, nil
}

// DeactivateSKU soft-deletes an active SKU.
func (s *Store) DeactivateSKU(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE skus SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active`, id)
	if err != nil {
		return mapError(err, "postgres.DeactivateSKU")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSKUNotFound
	}
	return nil
}
