package service

import (
	"testing"

	"storefront/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{"defaults", 0, 0, 1, 10},
		{"negative page", -3, 20, 1, 20},
		{"limit clamped high", 2, 500, 2, 100},
		{"limit clamped low", 1, -1, 1, 1},
		{"passthrough", 3, 50, 3, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit := NormalizePage(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestPageCount(t *testing.T) {
	// 25 products at limit 10: pages 1 and 2 full, page 3 holds 5
	assert.Equal(t, 3, PageCount(25, 10))
	assert.Equal(t, 1, PageCount(10, 10))
	assert.Equal(t, 0, PageCount(0, 10))
	assert.Equal(t, 1, PageCount(1, 100))
}

func TestNormalizeSlug(t *testing.T) {
	s, err := NormalizeSlug("home-audio", "Home Audio")
	require.NoError(t, err)
	assert.Equal(t, "home-audio", s)

	// derived from name when absent
	s, err = NormalizeSlug("", "Home Audio")
	require.NoError(t, err)
	assert.Equal(t, "home-audio", s)

	_, err = NormalizeSlug("Home Audio", "whatever")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = NormalizeSlug("home_audio", "whatever")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestApplyProductUpdate(t *testing.T) {
	product := &models.Product{
		Name:        "Old Name",
		Description: "Old description",
		Price:       10,
		Stock:       4,
		CategoryID:  1,
		Images:      pq.StringArray{"a.jpg"},
		IsActive:    true,
	}

	name := "New Name"
	price := 12.5
	active := false
	ApplyProductUpdate(product, &UpdateProductRequest{
		Name:     &name,
		Price:    &price,
		IsActive: &active,
	})

	assert.Equal(t, "New Name", product.Name)
	assert.Equal(t, 12.5, product.Price)
	assert.False(t, product.IsActive)

	// absent fields stay untouched
	assert.Equal(t, "Old description", product.Description)
	assert.Equal(t, 4, product.Stock)
	assert.Equal(t, int64(1), product.CategoryID)
	assert.Equal(t, pq.StringArray{"a.jpg"}, product.Images)
}

func TestApplyProductUpdateZeroValues(t *testing.T) {
	// explicit zero values must be copied, not mistaken for absence
	product := &models.Product{Price: 10, Stock: 4}

	price := 0.0
	stock := 0
	ApplyProductUpdate(product, &UpdateProductRequest{Price: &price, Stock: &stock})

	assert.Equal(t, 0.0, product.Price)
	assert.Equal(t, 0, product.Stock)
}
