package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"storefront/internal/models"
	"storefront/internal/redisclient"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/gosimple/slug"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// CatalogService handles categories and products
type CatalogService struct {
	store  *store.Store
	cache  *redisclient.Client
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store *store.Store, cache *redisclient.Client) *CatalogService {
	return &CatalogService{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// ListCategories retrieves all categories, name ascending
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.ListCategories(ctx)
}

// GetCategory retrieves one category
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	category, err := s.store.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, notFoundf("Category not found.")
	}
	return category, nil
}

// CreateCategoryRequest represents a category creation payload
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// UpdateCategoryRequest represents a partial category update
type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
}

// NormalizeSlug derives a slug from the name when none is given and
// validates the lowercase-kebab pattern
func NormalizeSlug(requested, name string) (string, error) {
	s := strings.TrimSpace(requested)
	if s == "" {
		s = slug.Make(name)
	}
	if !slugPattern.MatchString(s) {
		return "", invalidf("Slug must match [a-z0-9-]+.")
	}
	return s, nil
}

// CreateCategory creates a category (admin only, gated at the route)
func (s *CatalogService) CreateCategory(ctx context.Context, req *CreateCategoryRequest) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateCategory")
	defer span.End()

	normalized, err := NormalizeSlug(req.Slug, req.Name)
	if err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:        strings.TrimSpace(req.Name),
		Slug:        normalized,
		Description: strings.TrimSpace(req.Description),
	}

	if err := s.store.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, invalidf("Category slug already in use.")
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// UpdateCategory applies a partial update to a category
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, req *UpdateCategoryRequest) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateCategory")
	defer span.End()

	category, err := s.store.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, notFoundf("Category not found.")
	}

	if req.Name != nil {
		category.Name = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		normalized, err := NormalizeSlug(*req.Slug, category.Name)
		if err != nil {
			return nil, err
		}
		category.Slug = normalized
	}
	if req.Description != nil {
		category.Description = strings.TrimSpace(*req.Description)
	}

	if err := s.store.UpdateCategory(ctx, category); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, invalidf("Category slug already in use.")
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

// DeleteCategory removes a category unless products still reference it
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteCategory")
	defer span.End()

	count, err := s.store.CountProductsInCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count referencing products: %w", err)
	}
	if count > 0 {
		return invalidf("Cannot delete category: %d product(s) still reference it. Remove or reassign products first.", count)
	}

	deleted, err := s.store.DeleteCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if !deleted {
		return notFoundf("Category not found.")
	}
	return nil
}

// ListProductsParams narrows and pages a product listing
type ListProductsParams struct {
	CategoryID      *int64
	MinPrice        *float64
	MaxPrice        *float64
	Page            int
	Limit           int
	Sort            string
	IncludeInactive bool
}

// ProductPage is a page slice plus pagination metadata
type ProductPage struct {
	Data       []models.Product  `json:"data"`
	Pagination models.Pagination `json:"pagination"`
}

// NormalizePage clamps page to >=1 and limit to [1,100], defaulting limit
// to 10 when unset
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit == 0 {
		limit = defaultPageLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// PageCount computes ceil(total/limit)
func PageCount(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// ListProducts retrieves a filtered page of products. Inactive products are
// visible only when IncludeInactive is set (admin listings).
func (s *CatalogService) ListProducts(ctx context.Context, params ListProductsParams) (*ProductPage, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	page, limit := NormalizePage(params.Page, params.Limit)

	filter := store.ProductFilter{
		CategoryID:      params.CategoryID,
		MinPrice:        params.MinPrice,
		MaxPrice:        params.MaxPrice,
		IncludeInactive: params.IncludeInactive,
		Sort:            params.Sort,
		Limit:           limit,
		Offset:          (page - 1) * limit,
	}

	products, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	total, err := s.store.CountProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	return &ProductPage{
		Data: products,
		Pagination: models.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: PageCount(total, limit),
		},
	}, nil
}

// GetProduct retrieves one product, read-through from the cache
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct")
	defer span.End()

	var cached models.Product
	ok, err := s.cache.GetJSON(ctx, redisclient.ProductKey(id), &cached)
	if err != nil {
		s.logger.Warn("Product cache read failed", zap.Int64("product_id", id), zap.Error(err))
	}
	if ok {
		return &cached, nil
	}

	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, notFoundf("Product not found.")
	}

	if err := s.cache.SetJSON(ctx, redisclient.ProductKey(id), product, redisclient.ProductTTL); err != nil {
		s.logger.Warn("Product cache write failed", zap.Int64("product_id", id), zap.Error(err))
	}
	return product, nil
}

// CreateProductRequest represents a product creation payload. Price and
// stock are pointers so zero values still satisfy the required binding.
type CreateProductRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       *float64 `json:"price" binding:"required,gte=0"`
	Stock       *int     `json:"stock" binding:"required,gte=0"`
	CategoryID  int64    `json:"categoryId" binding:"required"`
	Images      []string `json:"images"`
	Tags        []string `json:"tags"`
	IsActive    *bool    `json:"isActive"`
}

// UpdateProductRequest represents a partial product update; only fields
// present in the request are copied
type UpdateProductRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price" binding:"omitempty,gte=0"`
	Stock       *int      `json:"stock" binding:"omitempty,gte=0"`
	CategoryID  *int64    `json:"categoryId"`
	Images      *[]string `json:"images"`
	IsActive    *bool     `json:"isActive"`
}

// ApplyProductUpdate copies the whitelisted present fields onto the product
func ApplyProductUpdate(product *models.Product, req *UpdateProductRequest) {
	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.CategoryID != nil {
		product.CategoryID = *req.CategoryID
	}
	if req.Images != nil {
		product.Images = pq.StringArray(*req.Images)
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
}

// CreateProduct creates a product; the category must exist
func (s *CatalogService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if err := s.requireCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       *req.Price,
		Stock:       *req.Stock,
		CategoryID:  req.CategoryID,
		Images:      pq.StringArray(req.Images),
		Tags:        pq.StringArray(req.Tags),
		IsActive:    true,
	}
	if product.Images == nil {
		product.Images = pq.StringArray{}
	}
	if product.Tags == nil {
		product.Tags = pq.StringArray{}
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return s.GetProduct(ctx, product.ID)
}

// UpdateProduct applies a partial update and drops the cached copy
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, req *UpdateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, notFoundf("Product not found.")
	}

	if req.CategoryID != nil && *req.CategoryID != product.CategoryID {
		if err := s.requireCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
	}

	ApplyProductUpdate(product, req)

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.invalidateProduct(ctx, id)
	return s.store.GetProductByID(ctx, id)
}

// AdjustStock applies a signed stock adjustment. Decrements past zero are
// refused by the conditional update.
func (s *CatalogService) AdjustStock(ctx context.Context, id int64, amount int) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.AdjustStock")
	defer span.End()

	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, notFoundf("Product not found.")
	}

	updated, err := s.store.AdjustStock(ctx, id, amount)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			return nil, invalidf("Insufficient stock for %s", product.Name)
		}
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	direction := "increase"
	if amount < 0 {
		direction = "decrease"
	}
	util.StockAdjustmentsTotal.WithLabelValues(direction).Inc()

	s.invalidateProduct(ctx, id)
	updated.Category = product.Category
	return updated, nil
}

// AddTag appends a tag; RemoveTag drops all occurrences
func (s *CatalogService) AddTag(ctx context.Context, id int64, tag string) (*models.Product, error) {
	return s.tagEdit(ctx, id, tag, s.store.AddTag)
}

// RemoveTag removes all occurrences of a tag
func (s *CatalogService) RemoveTag(ctx context.Context, id int64, tag string) (*models.Product, error) {
	return s.tagEdit(ctx, id, tag, s.store.RemoveTag)
}

func (s *CatalogService) tagEdit(ctx context.Context, id int64, tag string,
	op func(context.Context, int64, string) (*models.Product, error)) (*models.Product, error) {

	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, invalidf("tag (string) required.")
	}

	product, err := op(ctx, id, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to edit tags: %w", err)
	}
	if product == nil {
		return nil, notFoundf("Product not found.")
	}

	s.invalidateProduct(ctx, id)
	return product, nil
}

// DeleteProduct removes a product unconditionally. Historical orders keep
// their price snapshots.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct")
	defer span.End()

	deleted, err := s.store.DeleteProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if !deleted {
		return notFoundf("Product not found.")
	}

	s.invalidateProduct(ctx, id)
	return nil
}

func (s *CatalogService) requireCategory(ctx context.Context, id int64) error {
	category, err := s.store.GetCategoryByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to look up category: %w", err)
	}
	if category == nil {
		return invalidf("Category not found.")
	}
	return nil
}

func (s *CatalogService) invalidateProduct(ctx context.Context, id int64) {
	if err := s.cache.Delete(ctx, redisclient.ProductKey(id)); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.Int64("product_id", id), zap.Error(err))
	}
}
