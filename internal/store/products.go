package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"storefront/internal/models"

	"github.com/lib/pq"
)

// ProductFilter narrows product listings. Nil fields are not applied.
type ProductFilter struct {
	CategoryID      *int64
	MinPrice        *float64
	MaxPrice        *float64
	IncludeInactive bool
	Sort            string
	Limit           int
	Offset          int
}

// sortColumns whitelists user-supplied sort keys
var sortColumns = map[string]string{
	"createdAt":  "p.created_at ASC",
	"-createdAt": "p.created_at DESC",
	"price":      "p.price ASC",
	"-price":     "p.price DESC",
	"name":       "p.name ASC",
	"-name":      "p.name DESC",
}

type productRow struct {
	models.Product
	CategoryName sql.NullString `db:"category_name"`
	CategorySlug sql.NullString `db:"category_slug"`
}

func (r *productRow) toProduct() models.Product {
	p := r.Product
	if r.CategoryName.Valid {
		p.Category = &models.CategoryRef{
			ID:   p.CategoryID,
			Name: r.CategoryName.String,
			Slug: r.CategorySlug.String,
		}
	}
	return p
}

func buildProductWhere(filter ProductFilter) (string, []interface{}) {
	clauses := []string{}
	args := []interface{}{}

	if !filter.IncludeInactive {
		clauses = append(clauses, "p.is_active = TRUE")
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		clauses = append(clauses, fmt.Sprintf("p.price >= $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		clauses = append(clauses, fmt.Sprintf("p.price <= $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListProducts retrieves a filtered, sorted page of products joined with
// their category display fields
func (s *Store) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	where, args := buildProductWhere(filter)

	orderBy, ok := sortColumns[filter.Sort]
	if !ok {
		orderBy = sortColumns["-createdAt"]
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT p.*, c.name AS category_name, c.slug AS category_slug
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		where, orderBy, len(args)-1, len(args))

	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	products := make([]models.Product, 0, len(rows))
	for i := range rows {
		products = append(products, rows[i].toProduct())
	}
	return products, nil
}

// CountProducts counts products matching the filter
func (s *Store) CountProducts(ctx context.Context, filter ProductFilter) (int, error) {
	where, args := buildProductWhere(filter)
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM products p"+where, args...)
	return count, err
}

// GetProductByID retrieves a product joined with its category.
// Returns (nil, nil) when absent.
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, `
		SELECT p.*, c.name AS category_name, c.slug AS category_slug
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	product := row.toProduct()
	return &product, nil
}

// CreateProduct inserts a new product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.Images == nil {
		product.Images = pq.StringArray{}
	}
	if product.Tags == nil {
		product.Tags = pq.StringArray{}
	}
	query := `
		INSERT INTO products (name, description, price, stock, category_id, images, tags, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		product.Name, product.Description, product.Price, product.Stock,
		product.CategoryID, product.Images, product.Tags, product.IsActive,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
}

// UpdateProduct writes back a loaded-and-patched product row
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock = $4, category_id = $5,
		    images = $6, tags = $7, is_active = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at`

	return s.db.QueryRowxContext(ctx, query,
		product.Name, product.Description, product.Price, product.Stock,
		product.CategoryID, product.Images, product.Tags, product.IsActive,
		product.ID,
	).Scan(&product.UpdatedAt)
}

// AdjustStock applies a signed stock adjustment as a single conditional
// update; a decrement past zero matches no row and returns
// ErrInsufficientStock.
func (s *Store) AdjustStock(ctx context.Context, id int64, amount int) (*models.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE products
		SET stock = stock + $1, updated_at = NOW()
		WHERE id = $2 AND stock + $1 >= 0
		RETURNING *`, amount, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: product %d", ErrInsufficientStock, id)
	}
	if err != nil {
		return nil, err
	}
	product := row.toProduct()
	return &product, nil
}

// AddTag appends a tag to the product's tag list. No dedup is enforced.
func (s *Store) AddTag(ctx context.Context, id int64, tag string) (*models.Product, error) {
	return s.tagUpdate(ctx, id, "array_append(tags, $1)", tag)
}

// RemoveTag removes all occurrences of a tag from the product's tag list
func (s *Store) RemoveTag(ctx context.Context, id int64, tag string) (*models.Product, error) {
	return s.tagUpdate(ctx, id, "array_remove(tags, $1)", tag)
}

func (s *Store) tagUpdate(ctx context.Context, id int64, expr, tag string) (*models.Product, error) {
	var row productRow
	query := fmt.Sprintf(`
		UPDATE products
		SET tags = %s, updated_at = NOW()
		WHERE id = $2
		RETURNING *`, expr)
	err := s.db.GetContext(ctx, &row, query, tag, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	product := row.toProduct()
	return &product, nil
}

// DeleteProduct removes a product. Returns false when no row matched.
// Historical order items keep their own price snapshot so this does not
// touch past orders.
func (s *Store) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
