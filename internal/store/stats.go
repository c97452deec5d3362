package store

import (
	"context"

	"storefront/internal/models"
)

// SalesByCategory rolls up line items of non-cancelled orders per category,
// revenue descending. Items whose product or category no longer resolves are
// grouped under the empty-name bucket. The row count per group counts line
// items, not distinct orders.
func (s *Store) SalesByCategory(ctx context.Context) ([]models.CategorySales, error) {
	rows := []models.CategorySales{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT COALESCE(c.name, '') AS category_name,
		       COALESCE(SUM(oi.quantity), 0) AS total_quantity,
		       COALESCE(SUM(oi.quantity * oi.price), 0) AS total_revenue,
		       COUNT(*) AS order_count
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		LEFT JOIN products p ON p.id = oi.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE o.status <> 'cancelled'
		GROUP BY c.name
		ORDER BY total_revenue DESC`)
	return rows, err
}

// SalesSummary aggregates non-cancelled orders; zeros when none qualify
func (s *Store) SalesSummary(ctx context.Context) (models.SalesSummary, error) {
	var summary models.SalesSummary
	err := s.db.GetContext(ctx, &summary, `
		SELECT COUNT(*) AS total_orders,
		       COALESCE(SUM(total), 0) AS total_revenue,
		       COALESCE(AVG(total), 0) AS avg_order_value
		FROM orders
		WHERE status <> 'cancelled'`)
	return summary, err
}
