package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// User represents a registered account. PasswordHash is never serialized.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// User roles
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Category groups products under a unique slug
type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Slug        string    `db:"slug" json:"slug"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// CategoryRef is the display subset joined onto products
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Product represents a catalog item
type Product struct {
	ID          int64          `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Price       float64        `db:"price" json:"price"`
	Stock       int            `db:"stock" json:"stock"`
	CategoryID  int64          `db:"category_id" json:"categoryId"`
	Images      pq.StringArray `db:"images" json:"images"`
	Tags        pq.StringArray `db:"tags" json:"tags"`
	IsActive    bool           `db:"is_active" json:"isActive"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`

	Category *CategoryRef `db:"-" json:"category,omitempty"`
}

// ShippingAddress is stored as a JSONB column on orders
type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

func (a ShippingAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *ShippingAddress) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		*a = ShippingAddress{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into ShippingAddress", src)
}

// UserRef is the display subset joined onto orders
type UserRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Order represents a customer order. Total and item prices are snapshots
// taken at creation time.
type Order struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"userId"`
	Total           float64         `db:"total" json:"total"`
	Status          string          `db:"status" json:"status"`
	ShippingAddress ShippingAddress `db:"shipping_address" json:"shippingAddress"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`

	User  *UserRef    `db:"-" json:"user,omitempty"`
	Items []OrderItem `db:"-" json:"items,omitempty"`
}

// OrderItem is a line item with its price snapshot
type OrderItem struct {
	ID          int64   `db:"id" json:"-"`
	OrderID     int64   `db:"order_id" json:"-"`
	ProductID   int64   `db:"product_id" json:"productId"`
	ProductName string  `db:"product_name" json:"productName,omitempty"`
	Quantity    int     `db:"quantity" json:"quantity"`
	Price       float64 `db:"price" json:"price"`
}

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// ValidOrderStatus reports whether s is one of the five order statuses
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CategorySales is one row of the per-category sales rollup
type CategorySales struct {
	CategoryName  string  `db:"category_name" json:"categoryName"`
	TotalQuantity int     `db:"total_quantity" json:"totalQuantity"`
	TotalRevenue  float64 `db:"total_revenue" json:"totalRevenue"`
	OrderCount    int     `db:"order_count" json:"orderCount"`
}

// SalesSummary is the global rollup over non-cancelled orders
type SalesSummary struct {
	TotalOrders   int     `db:"total_orders" json:"totalOrders"`
	TotalRevenue  float64 `db:"total_revenue" json:"totalRevenue"`
	AvgOrderValue float64 `db:"avg_order_value" json:"avgOrderValue"`
}

// SalesStats is the admin stats response
type SalesStats struct {
	ByCategory []CategorySales `json:"byCategory"`
	Summary    SalesSummary    `json:"summary"`
}

// Pagination describes a page slice of a filtered listing
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}
