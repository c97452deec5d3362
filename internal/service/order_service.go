package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/redisclient"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService handles the order lifecycle and its inventory side effects
type OrderService struct {
	store          *store.Store
	cache          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store *store.Store, cache *redisclient.Client, eventPublisher *broker.EventPublisher) *OrderService {
	return &OrderService{
		store:          store,
		cache:          cache,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to place an order
type CreateOrderRequest struct {
	Items           []OrderItemRequest     `json:"items" binding:"required,min=1,dive"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
}

// OrderItemRequest represents one requested line item
type OrderItemRequest struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// ComputeTotal sums price×quantity over snapshotted line items
func ComputeTotal(items []models.OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// RestockOnTransition reports whether a status transition restores stock:
// only entering cancelled from a non-cancelled status does. Leaving
// cancelled never re-decrements; re-activated orders keep their restored
// stock untouched.
func RestockOnTransition(from, to string) bool {
	return to == models.OrderStatusCancelled && from != models.OrderStatusCancelled
}

// Deletable reports whether an order may be deleted at all
func Deletable(status string) bool {
	return status == models.OrderStatusPending || status == models.OrderStatusCancelled
}

// RestockOnDelete reports whether deletion restores stock. Cancelled orders
// already had their stock restored on cancellation.
func RestockOnDelete(status string) bool {
	return status == models.OrderStatusPending
}

// CreateOrder places an order for the user. Prices are snapshotted per item
// and the stock decrement runs in the same transaction as the order insert,
// each decrement conditional on sufficient stock.
func (s *OrderService) CreateOrder(ctx context.Context, userID int64, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if len(req.Items) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_items").Inc()
		return nil, invalidf("Order must have at least one item.")
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	names := make(map[int64]string, len(req.Items))
	for _, item := range req.Items {
		product, err := s.store.GetProductByID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch product: %w", err)
		}
		if product == nil {
			util.OrdersFailedTotal.WithLabelValues("unknown_product").Inc()
			return nil, invalidf("Product not found: %d", item.ProductID)
		}
		if product.Stock < item.Quantity {
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, invalidf("Insufficient stock for %s", product.Name)
		}
		names[product.ID] = product.Name
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     product.Price,
		})
	}

	order := &models.Order{
		UserID:          userID,
		Total:           ComputeTotal(items),
		Status:          models.OrderStatusPending,
		ShippingAddress: req.ShippingAddress,
	}

	if err := s.store.CreateOrder(ctx, order, items); err != nil {
		var stockErr *store.InsufficientStockError
		if errors.As(err, &stockErr) {
			// a concurrent order won the stock between the pre-check
			// and the conditional decrement
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, invalidf("Insufficient stock for %s", names[stockErr.ProductID])
		}
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.invalidateProducts(ctx, items)

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.Float64("total", order.Total))

	s.publishCreated(ctx, order, items)

	return s.loadOrder(ctx, order.ID)
}

// ListOrders returns all orders for admins, own orders otherwise, newest
// first, with line items attached
func (s *OrderService) ListOrders(ctx context.Context, userID int64, isAdmin bool) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	var orders []models.Order
	var err error
	if isAdmin {
		orders, err = s.store.ListOrders(ctx)
	} else {
		orders, err = s.store.ListOrdersByUser(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	ids := make([]int64, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	itemsByOrder, err := s.store.GetOrderItemsByOrderIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	for i := range orders {
		orders[i].Items = itemsByOrder[orders[i].ID]
	}
	return orders, nil
}

// GetOrder retrieves one order. A missing order and another user's order
// produce the same not-found error so existence never leaks.
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID int64, isAdmin bool) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	if order == nil || (!isAdmin && order.UserID != userID) {
		return nil, notFoundf("Order not found.")
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	order.Items = items
	return order, nil
}

// UpdateStatus transitions an order. Entering cancelled restores stock for
// every line item in the same transaction; leaving cancelled does not
// re-decrement.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	if !models.ValidOrderStatus(status) {
		return nil, invalidf("Invalid status.")
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	if order == nil {
		return nil, notFoundf("Order not found.")
	}

	restock := RestockOnTransition(order.Status, status)
	if restock {
		items, err := s.store.GetOrderItems(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("failed to load order items: %w", err)
		}
		if err := s.store.UpdateOrderStatusRestock(ctx, orderID, status, items); err != nil {
			return nil, fmt.Errorf("failed to cancel order: %w", err)
		}
		s.invalidateProducts(ctx, items)
		util.OrdersCancelledTotal.Inc()
		for _, item := range items {
			util.StockRestoredTotal.Add(float64(item.Quantity))
		}
	} else {
		if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
			return nil, fmt.Errorf("failed to update order status: %w", err)
		}
	}

	s.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("from", order.Status),
		zap.String("to", status),
		zap.Bool("stock_restored", restock))

	s.publishStatusChanged(ctx, orderID, order.Status, status, restock)

	return s.loadOrder(ctx, orderID)
}

// DeleteOrder removes a pending or cancelled order. Pending orders get
// their stock restored first; cancelled orders already had it restored.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to fetch order: %w", err)
	}
	if order == nil {
		return notFoundf("Order not found.")
	}
	if !Deletable(order.Status) {
		return invalidf("Only pending or cancelled orders can be deleted.")
	}

	restock := RestockOnDelete(order.Status)
	var items []models.OrderItem
	if restock {
		items, err = s.store.GetOrderItems(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order items: %w", err)
		}
	}

	if err := s.store.DeleteOrder(ctx, orderID, restock, items); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	s.invalidateProducts(ctx, items)
	util.OrdersDeletedTotal.Inc()
	for _, item := range items {
		util.StockRestoredTotal.Add(float64(item.Quantity))
	}
	s.logger.Info("Order deleted",
		zap.Int64("order_id", orderID),
		zap.String("status", order.Status),
		zap.Bool("stock_restored", restock))

	s.publishDeleted(ctx, orderID, order.Status, restock)
	return nil
}

// ProductCacheKeys lists the cache keys of every product a set of line
// items touches
func ProductCacheKeys(items []models.OrderItem) []string {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, redisclient.ProductKey(item.ProductID))
	}
	return keys
}

// invalidateProducts drops cached copies of the line items' products after
// their stock changed, so reads don't serve stale stock until the TTL runs
// out
func (s *OrderService) invalidateProducts(ctx context.Context, items []models.OrderItem) {
	if len(items) == 0 {
		return
	}
	if err := s.cache.Delete(ctx, ProductCacheKeys(items)...); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.Error(err))
	}
}

func (s *OrderService) loadOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, notFoundf("Order not found.")
	}
	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (s *OrderService) publishCreated(ctx context.Context, order *models.Order, items []models.OrderItem) {
	if s.eventPublisher == nil {
		return
	}
	eventItems := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		eventItems = append(eventItems, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	event := &models.OrderCreatedEvent{
		BaseEvent: baseEvent(models.EventTypeOrderCreated),
		OrderID:   order.ID,
		UserID:    order.UserID,
		Total:     order.Total,
		Items:     eventItems,
	}
	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}
}

func (s *OrderService) publishStatusChanged(ctx context.Context, orderID int64, from, to string, restocked bool) {
	if s.eventPublisher == nil {
		return
	}
	event := &models.OrderStatusChangedEvent{
		BaseEvent:     baseEvent(models.EventTypeOrderStatusChanged),
		OrderID:       orderID,
		FromStatus:    from,
		ToStatus:      to,
		StockRestored: restocked,
	}
	if err := s.eventPublisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}
}

func (s *OrderService) publishDeleted(ctx context.Context, orderID int64, status string, restocked bool) {
	if s.eventPublisher == nil {
		return
	}
	event := &models.OrderDeletedEvent{
		BaseEvent:     baseEvent(models.EventTypeOrderDeleted),
		OrderID:       orderID,
		Status:        status,
		StockRestored: restocked,
	}
	if err := s.eventPublisher.PublishOrderDeleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderDeleted event", zap.Error(err))
	}
}

func baseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
