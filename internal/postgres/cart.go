package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/shopfront/internal/domain"
)

const cartColumns = `id, session_id, items, total_amount, version, created_at, updated_at`

func scanCart(row scanner) (*domain.Cart, error) {
	var (
		c     domain.Cart
		items []byte
		total pgtype.Numeric
	)
	if err := row.Scan(&c.ID, &c.SessionID, &items, &total, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if c.Items, err = decodeItems(items); err != nil {
		return nil, err
	}
	if c.TotalAmount, err = decimalFromNumeric(total); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCartBySession returns the session's cart or domain.ErrCartNotFound.
func (s *Store) GetCartBySession(ctx context.Context, sessionID string) (*domain.Cart, error) {
	row := s.db.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE session_id = $1`, sessionID)
	c, err := scanCart(row)
	if err != nil {
		return nil, notFoundOr(err, "postgres.GetCartBySession", domain.ErrCartNotFound)
	}
	return c, nil
}

// InsertCart stores a new cart at version 1. The unique session index turns
// a concurrent insert for the same session into domain.ErrDuplicateSession.
func (s *Store) InsertCart(ctx context.Context, c *domain.Cart) error {
	const op = "postgres.InsertCart"

	items, total, err := cartArgs(op, c)
	if err != nil {
		return err
	}

	c.Version = 1
	_, err = s.db.Exec(ctx, `
		INSERT INTO carts (`+cartColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.SessionID, items, total, c.Version, c.CreatedAt, c.UpdatedAt,
	)
	return mapError(err, op)
}

// SaveCart writes items and total when the stored version still equals
// c.Version, then advances c.Version.
func (s *Store) SaveCart(ctx context.Context, c *domain.Cart) error {
	const op = "postgres.SaveCart"

	items, total, err := cartArgs(op, c)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE carts
		SET items = $3, total_amount = $4, version = version + 1, updated_at = $5
		WHERE session_id = $1 AND version = $2`,
		c.SessionID, c.Version, items, total, c.UpdatedAt,
	)
	if err != nil {
		return mapError(err, op)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM carts WHERE session_id = $1)`, c.SessionID,
		).Scan(&exists); err != nil {
			return mapError(err, op)
		}
		if !exists {
			return domain.ErrCartNotFound
		}
		return domain.ErrVersionConflict
	}

	c.Version++
	return nil
}

func cartArgs(op string, c *domain.Cart) ([]byte, pgtype.Numeric, error) {
	items, err := encodeItems(c.Items)
	if err != nil {
		return nil, pgtype.Numeric{}, domain.Internal(err, op, "encode cart items")
	}
	total, err := numericFromDecimal(c.TotalAmount)
	if err != nil {
		return nil, total, domain.Internal(err, op, "invalid cart total")
	}
	return items, total, nil
}

// CartReferencesSKU reports whether any cart holds a line for the SKU.
func (s *Store) CartReferencesSKU(ctx context.Context, skuID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM carts
			WHERE items @> jsonb_build_array(jsonb_build_object('skuId', $1::text))
		)`, skuID.String()).Scan(&exists)
	if err != nil {
		return false, mapError(err, "postgres.CartReferencesSKU")
	}
	return exists, nil
}

// DeleteIdleCarts removes carts last updated before the cutoff.
func (s *Store) DeleteIdleCarts(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM carts WHERE updated_at < $1`, before)
	if err != nil {
		return 0, mapError(err, "postgres.DeleteIdleCarts")
	}
	return tag.RowsAffected(), nil
}
