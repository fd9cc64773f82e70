package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/dukerupert/shopfront/internal/domain"
)

const categoryColumns = `id, name, description, slug, is_active, created_at, updated_at`

func scanCategory(row scanner) (*domain.Category, error) {
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Slug, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertCategory stores a new category.
func (s *Store) InsertCategory(ctx context.Context, c *domain.Category) error {
	const op = "postgres.InsertCategory"

	_, err := s.db.Exec(ctx, `
		INSERT INTO categories (`+categoryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Description, c.Slug, c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	return mapError(err, op)
}

// UpdateCategory overwrites the writable fields of an existing category.
func (s *Store) UpdateCategory(ctx context.Context, c *domain.Category) error {
	const op = "postgres.UpdateCategory"

	tag, err := s.db.Exec(ctx, `
		UPDATE categories
		SET name = $2, description = $3, slug = $4, is_active = $5, updated_at = $6
		WHERE id = $1`,
		c.ID, c.Name, c.Description, c.Slug, c.IsActive, c.UpdatedAt,
	)
	if err != nil {
		return mapError(err, op)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

// GetCategory returns a category regardless of its active flag.
func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	row := s.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if err != nil {
		return nil, notFoundOr(err, "postgres.GetCategory", domain.ErrCategoryNotFound)
	}
	return c, nil
}

// ListCategories returns active categories sorted by name.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	const op = "postgres.ListCategories"

	rows, err := s.db.Query(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE is_active
		ORDER BY name`)
	if err != nil {
		return nil, mapError(err, op)
	}
	defer rows.Close()

	out := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, mapError(err, op)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, op)
	}
	return out, nil
}

// DeactivateCategory soft-deletes an active category.
func (s *Store) DeactivateCategory(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE categories SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active`, id)
	if err != nil {
		return mapError(err, "postgres.DeactivateCategory")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

// CountActiveProducts counts the active products in a category.
func (s *Store) CountActiveProducts(ctx context.Context, categoryID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM products
		WHERE category_id = $1 AND is_active`, categoryID).Scan(&n)
	if err != nil {
		return 0, mapError(err, "postgres.CountActiveProducts")
	}
	return n, nil
}
