package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/shopfront/internal/domain"
)

// PostgreSQL error codes the store translates.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// uniqueMessages names the field behind each unique constraint.
var uniqueMessages = map[string]string{
	"categories_name_key": "Category name already exists",
	"categories_slug_key": "Category slug already exists",
	"products_slug_key":   "Product slug already exists",
	"skus_sku_key":        "SKU code already exists",
}

// mapError translates driver errors into domain errors.
// Unique violations become conflicts; anything else is a database error.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			if pgErr.ConstraintName == "carts_session_id_key" {
				return domain.ErrDuplicateSession
			}
			if msg, ok := uniqueMessages[pgErr.ConstraintName]; ok {
				return domain.Conflict(op, msg)
			}
			return domain.Conflict(op, "Resource already exists")
		case foreignKeyViolation:
			return domain.Invalid(op, "Referenced record does not exist")
		}
	}

	return domain.Database(err, op, "database error")
}

// notFoundOr returns notFound for pgx.ErrNoRows and maps anything else.
func notFoundOr(err error, op string, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return mapError(err, op)
}

// numericFromDecimal converts money to a NUMERIC parameter.
func numericFromDecimal(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return n, fmt.Errorf("convert %s to numeric: %w", d, err)
	}
	return n, nil
}

// decimalFromNumeric converts a scanned NUMERIC to money. NULL reads as zero.
func decimalFromNumeric(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Zero, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Zero, fmt.Errorf("numeric value is not finite")
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

// encodeAttributes stores attributes as ordered [key, value] pairs;
// a JSONB object would not keep key order.
func encodeAttributes(attrs domain.Attributes) ([]byte, error) {
	pairs := make([][2]string, len(attrs))
	for i, a := range attrs {
		pairs[i] = [2]string{a.Key, a.Value}
	}
	return json.Marshal(pairs)
}

func decodeAttributes(raw []byte) (domain.Attributes, error) {
	attrs := domain.Attributes{}
	if len(raw) == 0 {
		return attrs, nil
	}
	var pairs [][2]string
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	for _, p := range pairs {
		attrs = append(attrs, domain.Attribute{Key: p[0], Value: p[1]})
	}
	return attrs, nil
}

func encodeItems(items []domain.CartItem) ([]byte, error) {
	if items == nil {
		items = []domain.CartItem{}
	}
	return json.Marshal(items)
}

func decodeItems(raw []byte) ([]domain.CartItem, error) {
	items := []domain.CartItem{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	return items, nil
}

// escapeLike escapes LIKE wildcards so search text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
