package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tastymeals/internal/logger"
	"tastymeals/internal/models"
)

// RepositoryInterface is the storage surface of the order service.
// PlaceOrder runs its snapshot inside one transaction.
type RepositoryInterface interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, diningTableID *uuid.UUID) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to models.OrderStatus) error
	DiningTableExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// NotificationPublisher pushes notification events onto the fanout
// exchange.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, msg interface{}) error
}

// ListFilter narrows order listings. UserID of uuid.Nil means all users
// (admin view).
type ListFilter struct {
	UserID   uuid.UUID
	Status   models.OrderStatus
	Ordering string
}

// Service implements order placement and the order lifecycle.
type Service struct {
	repo      RepositoryInterface
	publisher NotificationPublisher
	logger    *logger.Logger
}

// NewService creates an order service.
func NewService(repo RepositoryInterface, publisher NotificationPublisher, log *logger.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: log}
}

// Place snapshots the caller's cart into a new unpaid order and clears
// the cart, atomically. Unit prices freeze at their current discounted
// values.
func (s *Service) Place(ctx context.Context, userID uuid.UUID, diningTableID *uuid.UUID, requestID string) (*models.Order, error) {
	if diningTableID != nil {
		exists, err := s.repo.DiningTableExists(ctx, *diningTableID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("dining table: %w", models.ErrNotFound)
		}
	}

	order, err := s.repo.PlaceOrder(ctx, userID, diningTableID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_placed", "Order placed from cart", requestID, map[string]interface{}{
		"order_id":    order.ID.String(),
		"user_id":     userID.String(),
		"total_price": order.TotalPrice.String(),
		"items":       len(order.Items),
	})
	s.publish(ctx, models.NotificationMessage{
		Kind:         models.NotificationOrderPlaced,
		CustomerID:   userID,
		NotifyAdmins: true,
		Message:      fmt.Sprintf("Order %s placed, total %s", order.ID, order.TotalPrice.StringFixed(2)),
		OccurredAt:   time.Now().UTC(),
	}, requestID)

	return order, nil
}

// Get returns one order with its items. Customers see only their own;
// admins see all.
func (s *Service) Get(ctx context.Context, principal models.Principal, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && order.UserID != principal.UserID {
		// Hide other customers' orders entirely.
		return nil, models.ErrNotFound
	}
	items, err := s.repo.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// List returns orders visible to the principal, optionally filtered by
// status.
func (s *Service) List(ctx context.Context, principal models.Principal, status models.OrderStatus, ordering string) ([]models.Order, error) {
	filter := ListFilter{Status: status, Ordering: ordering}
	if !principal.IsAdmin() {
		filter.UserID = principal.UserID
	}
	return s.repo.ListOrders(ctx, filter)
}

// Cancel moves the caller's own unpaid order to cancelled. The row
// survives as history; nothing is deleted.
func (s *Service) Cancel(ctx context.Context, principal models.Principal, orderID uuid.UUID, requestID string) (*models.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != principal.UserID {
		return nil, models.ErrPermission
	}
	if order.Status != models.OrderUnpaid {
		return nil, fmt.Errorf("cannot cancel %s order: %w", order.Status, models.ErrInvalidTransition)
	}

	if err := s.repo.UpdateOrderStatus(ctx, orderID, models.OrderUnpaid, models.OrderCancelled); err != nil {
		return nil, err
	}
	order.Status = models.OrderCancelled

	s.logger.Info("order_cancelled", "Order cancelled by customer", requestID, map[string]interface{}{
		"order_id": orderID.String(),
	})
	return order, nil
}

// Complete moves a paid order to completed. Admin only; routing
// enforces the role, the service enforces the transition.
func (s *Service) Complete(ctx context.Context, orderID uuid.UUID, requestID string) (*models.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPaid {
		return nil, fmt.Errorf("cannot complete %s order: %w", order.Status, models.ErrInvalidTransition)
	}

	if err := s.repo.UpdateOrderStatus(ctx, orderID, models.OrderPaid, models.OrderCompleted); err != nil {
		return nil, err
	}
	order.Status = models.OrderCompleted

	s.logger.Info("order_completed", "Order marked completed", requestID, map[string]interface{}{
		"order_id": orderID.String(),
	})
	s.publish(ctx, models.NotificationMessage{
		Kind:       models.NotificationOrderCompleted,
		CustomerID: order.UserID,
		Message:    fmt.Sprintf("Order %s is ready", order.ID),
		OccurredAt: time.Now().UTC(),
	}, requestID)

	return order, nil
}

// publish fans out a notification event. Broker trouble must not fail
// the order operation itself.
func (s *Service) publish(ctx context.Context, msg models.NotificationMessage, requestID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishNotification(ctx, msg); err != nil {
		s.logger.Error("notification_publish_failed", "Failed to publish notification event", requestID, err, map[string]interface{}{
			"kind": msg.Kind,
		})
	}
}

// totalOf sums frozen line prices; used by the repository after
// snapshotting.
func totalOf(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
