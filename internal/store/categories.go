package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/models"
)

// ListCategories retrieves all categories, name ascending
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY name ASC")
	return categories, err
}

// GetCategoryByID retrieves a category by ID. Returns (nil, nil) when absent.
func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	err := s.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// CreateCategory inserts a new category; duplicate slug returns ErrDuplicate
func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (name, slug, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		category.Name, category.Slug, category.Description,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: slug %s", ErrDuplicate, category.Slug)
	}
	return err
}

// UpdateCategory writes back a loaded-and-patched category row
func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	query := `
		UPDATE categories
		SET name = $1, slug = $2, description = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		category.Name, category.Slug, category.Description, category.ID,
	).Scan(&category.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: slug %s", ErrDuplicate, category.Slug)
	}
	return err
}

// DeleteCategory removes a category. Returns false when no row matched.
func (s *Store) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountProductsInCategory counts products still referencing a category
func (s *Store) CountProductsInCategory(ctx context.Context, categoryID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM products WHERE category_id = $1", categoryID)
	return count, err
}
