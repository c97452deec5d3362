package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
)

type orderRow struct {
	models.Order
	UserName  string `db:"user_name"`
	UserEmail string `db:"user_email"`
}

func (r *orderRow) toOrder() models.Order {
	o := r.Order
	o.User = &models.UserRef{ID: o.UserID, Name: r.UserName, Email: r.UserEmail}
	return o
}

const orderSelect = `
	SELECT o.*, u.name AS user_name, u.email AS user_email
	FROM orders o
	JOIN users u ON u.id = o.user_id`

// CreateOrder persists an order and its items and decrements stock for every
// line item, all in one transaction. Each decrement is conditional on enough
// stock remaining; the first shortfall aborts the whole transaction with
// ErrInsufficientStock, leaving stock and the ledger untouched.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO orders (user_id, total, status, shipping_address)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		order.UserID, order.Total, order.Status, order.ShippingAddress,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1, updated_at = NOW()
			WHERE id = $2 AND stock >= $1`,
			items[i].Quantity, items[i].ProductID)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
		if n == 0 {
			return &InsufficientStockError{ProductID: items[i].ProductID}
		}

		items[i].OrderID = order.ID
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			items[i].OrderID, items[i].ProductID, items[i].Quantity, items[i].Price,
		).Scan(&items[i].ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order joined with its user display fields.
// Returns (nil, nil) when absent.
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, orderSelect+" WHERE o.id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	order := row.toOrder()
	return &order, nil
}

// ListOrders retrieves all orders, newest first
func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.selectOrders(ctx, orderSelect+" ORDER BY o.created_at DESC")
}

// ListOrdersByUser retrieves one user's orders, newest first
func (s *Store) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.selectOrders(ctx, orderSelect+" WHERE o.user_id = $1 ORDER BY o.created_at DESC", userID)
}

func (s *Store) selectOrders(ctx context.Context, query string, args ...interface{}) ([]models.Order, error) {
	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0, len(rows))
	for i := range rows {
		orders = append(orders, rows[i].toOrder())
	}
	return orders, nil
}

// GetOrderItems retrieves all items for an order, joined with the current
// product name for display. Deleted products leave an empty name; the item's
// own price snapshot is what matters.
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items, `
		SELECT oi.*, COALESCE(p.name, '') AS product_name
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	return items, err
}

// GetOrderItemsByOrderIDs retrieves items for a set of orders in one query
func (s *Store) GetOrderItemsByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]models.OrderItem, error) {
	grouped := make(map[int64][]models.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return grouped, nil
	}

	query, args, err := sqlx.In(`
		SELECT oi.*, COALESCE(p.name, '') AS product_name
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id IN (?)
		ORDER BY oi.id`, orderIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.OrderItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	for _, item := range items {
		grouped[item.OrderID] = append(grouped[item.OrderID], item)
	}
	return grouped, nil
}

// UpdateOrderStatus updates the status column only
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// UpdateOrderStatusRestock transitions an order's status and restores stock
// for every line item in the same transaction. Used when entering cancelled.
// Restores against deleted products match no row and are skipped.
func (s *Store) UpdateOrderStatusRestock(ctx context.Context, orderID int64, status string, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := restockItems(ctx, tx, items); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteOrder removes an order (items cascade). When restock is set the
// line-item quantities are returned to stock in the same transaction.
func (s *Store) DeleteOrder(ctx context.Context, orderID int64, restock bool, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if restock {
		if err := restockItems(ctx, tx, items); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", orderID); err != nil {
		return err
	}

	return tx.Commit()
}

func restockItems(ctx context.Context, tx *sqlx.Tx, items []models.OrderItem) error {
	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock + $1, updated_at = NOW()
			WHERE id = $2`,
			item.Quantity, item.ProductID)
		if err != nil {
			return fmt.Errorf("failed to restore stock for product %d: %w", item.ProductID, err)
		}
	}
	return nil
}
