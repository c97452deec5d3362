package service

import (
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeTotal(t *testing.T) {
	items := []models.OrderItem{
		{ProductID: 1, Quantity: 2, Price: 100},
		{ProductID: 2, Quantity: 1, Price: 49.5},
	}

	assert.Equal(t, 249.5, ComputeTotal(items))
	assert.Equal(t, 0.0, ComputeTotal(nil))
}

func TestComputeTotalUsesSnapshotPrice(t *testing.T) {
	// the item carries its own snapshot; later product price changes
	// never enter the computation
	items := []models.OrderItem{{ProductID: 1, Quantity: 5, Price: 100}}
	assert.Equal(t, 500.0, ComputeTotal(items))
}

func TestRestockOnTransition(t *testing.T) {
	// entering cancelled restores stock
	assert.True(t, RestockOnTransition(models.OrderStatusPending, models.OrderStatusCancelled))
	assert.True(t, RestockOnTransition(models.OrderStatusConfirmed, models.OrderStatusCancelled))
	assert.True(t, RestockOnTransition(models.OrderStatusShipped, models.OrderStatusCancelled))
	assert.True(t, RestockOnTransition(models.OrderStatusDelivered, models.OrderStatusCancelled))

	// re-submitting cancelled is a no-op on stock
	assert.False(t, RestockOnTransition(models.OrderStatusCancelled, models.OrderStatusCancelled))

	// documented asymmetry: re-activating a cancelled order does not
	// re-decrement stock
	assert.False(t, RestockOnTransition(models.OrderStatusCancelled, models.OrderStatusConfirmed))
	assert.False(t, RestockOnTransition(models.OrderStatusCancelled, models.OrderStatusShipped))

	// ordinary forward transitions never touch stock
	assert.False(t, RestockOnTransition(models.OrderStatusPending, models.OrderStatusConfirmed))
	assert.False(t, RestockOnTransition(models.OrderStatusConfirmed, models.OrderStatusDelivered))
}

func TestDeletable(t *testing.T) {
	assert.True(t, Deletable(models.OrderStatusPending))
	assert.True(t, Deletable(models.OrderStatusCancelled))
	assert.False(t, Deletable(models.OrderStatusConfirmed))
	assert.False(t, Deletable(models.OrderStatusShipped))
	assert.False(t, Deletable(models.OrderStatusDelivered))
}

func TestRestockOnDelete(t *testing.T) {
	// deleting pending restores stock once; cancelled already had it
	// restored at cancellation time
	assert.True(t, RestockOnDelete(models.OrderStatusPending))
	assert.False(t, RestockOnDelete(models.OrderStatusCancelled))
}

func TestProductCacheKeys(t *testing.T) {
	// every product whose stock an order touches must have its cached copy
	// dropped, or reads keep serving the pre-order stock until the TTL
	items := []models.OrderItem{
		{ProductID: 7, Quantity: 5, Price: 100},
		{ProductID: 9, Quantity: 1, Price: 50},
	}

	assert.Equal(t, []string{"product:7", "product:9"}, ProductCacheKeys(items))
	assert.Empty(t, ProductCacheKeys(nil))
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []string{"pending", "confirmed", "shipped", "delivered", "cancelled"} {
		assert.True(t, models.ValidOrderStatus(s), s)
	}
	assert.False(t, models.ValidOrderStatus("refunded"))
	assert.False(t, models.ValidOrderStatus(""))
	assert.False(t, models.ValidOrderStatus("Pending"))
}
