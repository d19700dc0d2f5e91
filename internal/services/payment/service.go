package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tastymeals/internal/logger"
	"tastymeals/internal/models"
)

// RepositoryInterface is the storage surface of the payment service.
type RepositoryInterface interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	GetPaymentByCheckout(ctx context.Context, checkoutRequestID string) (*models.Payment, error)
	CreatePayment(ctx context.Context, p *models.Payment) error
	ReinitiatePayment(ctx context.Context, paymentID uuid.UUID, phoneNumber, checkoutRequestID string) error
	ConfirmPayment(ctx context.Context, checkoutRequestID, gatewayReceipt string) (*ConfirmationResult, error)
	FailPayment(ctx context.Context, checkoutRequestID string) (*ConfirmationResult, error)
}

// ConfirmationResult reports what a confirmation transaction actually
// did, so redelivered messages can be acked without side effects.
type ConfirmationResult struct {
	Payment          *models.Payment
	AlreadyProcessed bool
	PointsEarned     int64
}

// NotificationPublisher pushes notification events onto the fanout
// exchange.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, msg interface{}) error
}

// Service implements payment initiation and confirmation.
type Service struct {
	repo      RepositoryInterface
	gateway   Gateway
	publisher NotificationPublisher
	logger    *logger.Logger
}

// NewService creates a payment service.
func NewService(repo RepositoryInterface, gateway Gateway, publisher NotificationPublisher, log *logger.Logger) *Service {
	return &Service{repo: repo, gateway: gateway, publisher: publisher, logger: log}
}

// Initiate starts an STK push for the caller's unpaid order. A pending
// or confirmed payment blocks a second attempt; a failed one is
// re-initiated in place with a fresh checkout reference.
func (s *Service) Initiate(ctx context.Context, principal models.Principal, orderID uuid.UUID, phoneNumber, requestID string) (*models.Payment, error) {
	if phoneNumber == "" {
		return nil, fmt.Errorf("phone_number is required: %w", models.ErrValidation)
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != principal.UserID {
		return nil, models.ErrPermission
	}
	if order.Status != models.OrderUnpaid {
		return nil, fmt.Errorf("order is %s: %w", order.Status, models.ErrInvalidTransition)
	}

	existing, err := s.repo.GetPaymentByOrder(ctx, orderID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status != models.PaymentFailed {
		return nil, models.ErrPaymentExists
	}

	checkoutID, err := s.gateway.InitiateSTKPush(ctx, phoneNumber, order.TotalPrice, order.ID.String())
	if err != nil {
		s.logger.Error("payment_initiation_failed", "STK push failed", requestID, err, map[string]interface{}{
			"order_id": orderID.String(),
		})
		return nil, err
	}

	if existing != nil {
		// Retry after a failed attempt reuses the payment row.
		if err := s.repo.ReinitiatePayment(ctx, existing.ID, phoneNumber, checkoutID); err != nil {
			return nil, err
		}
		existing.PhoneNumber = phoneNumber
		existing.CheckoutRequestID = checkoutID
		existing.Status = models.PaymentPending
		existing.GatewayReceipt = ""
		return existing, nil
	}

	payment := &models.Payment{
		ID:                uuid.New(),
		OrderID:           order.ID,
		UserID:            order.UserID,
		Amount:            order.TotalPrice,
		PhoneNumber:       phoneNumber,
		CheckoutRequestID: checkoutID,
		Status:            models.PaymentPending,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("payment_initiated", "STK push sent", requestID, map[string]interface{}{
		"order_id":            orderID.String(),
		"checkout_request_id": checkoutID,
		"amount":              payment.Amount.String(),
	})
	return payment, nil
}

// Status returns the payment attached to the caller's order.
func (s *Service) Status(ctx context.Context, principal models.Principal, orderID uuid.UUID) (*models.Payment, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && order.UserID != principal.UserID {
		return nil, models.ErrNotFound
	}
	return s.repo.GetPaymentByOrder(ctx, orderID)
}

// ApplyConfirmation processes one queue message from the gateway
// callback. Safe to call more than once per checkout reference; only
// the first call has effects.
func (s *Service) ApplyConfirmation(ctx context.Context, msg models.PaymentConfirmationMessage, requestID string) error {
	if msg.Success {
		return s.applySuccess(ctx, msg, requestID)
	}
	return s.applyFailure(ctx, msg, requestID)
}

func (s *Service) applySuccess(ctx context.Context, msg models.PaymentConfirmationMessage, requestID string) error {
	result, err := s.repo.ConfirmPayment(ctx, msg.CheckoutRequestID, msg.GatewayReceipt)
	if err != nil {
		return fmt.Errorf("confirm payment %s: %w", msg.CheckoutRequestID, err)
	}
	if result.AlreadyProcessed {
		s.logger.Info("payment_already_confirmed", "Duplicate confirmation ignored", requestID, map[string]interface{}{
			"checkout_request_id": msg.CheckoutRequestID,
		})
		return nil
	}

	s.logger.Info("payment_confirmed", "Payment confirmed, order paid", requestID, map[string]interface{}{
		"checkout_request_id": msg.CheckoutRequestID,
		"order_id":            result.Payment.OrderID.String(),
		"points_earned":       result.PointsEarned,
	})
	s.publish(ctx, models.NotificationMessage{
		Kind:         models.NotificationPaymentReceived,
		CustomerID:   result.Payment.UserID,
		NotifyAdmins: true,
		Message: fmt.Sprintf("Payment of %s received for order %s (+%d points)",
			result.Payment.Amount.StringFixed(2), result.Payment.OrderID, result.PointsEarned),
		OccurredAt: time.Now().UTC(),
	}, requestID)
	return nil
}

func (s *Service) applyFailure(ctx context.Context, msg models.PaymentConfirmationMessage, requestID string) error {
	result, err := s.repo.FailPayment(ctx, msg.CheckoutRequestID)
	if err != nil {
		return fmt.Errorf("fail payment %s: %w", msg.CheckoutRequestID, err)
	}
	if result.AlreadyProcessed {
		return nil
	}

	s.logger.Info("payment_failed", "Payment marked failed, order stays unpaid", requestID, map[string]interface{}{
		"checkout_request_id": msg.CheckoutRequestID,
		"reason":              msg.FailureReason,
	})
	s.publish(ctx, models.NotificationMessage{
		Kind:       models.NotificationPaymentFailed,
		CustomerID: result.Payment.UserID,
		Message:    fmt.Sprintf("Payment for order %s failed: %s", result.Payment.OrderID, msg.FailureReason),
		OccurredAt: time.Now().UTC(),
	}, requestID)
	return nil
}

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
