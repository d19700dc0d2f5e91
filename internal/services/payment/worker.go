package payment

import (
	"context"
	"fmt"

	"tastymeals/internal/logger"
	"tastymeals/internal/messaging"
	"tastymeals/internal/models"
)

// Worker consumes gateway confirmations from the durable queue and
// applies them through the service. Messages that keep failing are
// dead-lettered by the consumer.
type Worker struct {
	service  *Service
	consumer *messaging.Consumer
	logger   *logger.Logger
}

// NewWorker creates a payment worker bound to the confirmations queue.
func NewWorker(service *Service, conn *messaging.Connection, log *logger.Logger) *Worker {
	consumer := messaging.NewConsumer(conn, log, messaging.PaymentConfirmationsQueue, "payment-worker", 1)
	return &Worker{service: service, consumer: consumer, logger: log}
}

// Run blocks consuming confirmations until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker_started", "Payment worker consuming confirmations", "", map[string]interface{}{
		"queue": messaging.PaymentConfirmationsQueue,
	})
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

func (w *Worker) handleMessage(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var msg models.PaymentConfirmationMessage
	if err := messaging.ParseMessage(body, &msg); err != nil {
		return fmt.Errorf("parse confirmation message: %w", err)
	}
	if msg.CheckoutRequestID == "" {
		return fmt.Errorf("confirmation message without checkout_request_id")
	}
	return w.service.ApplyConfirmation(ctx, msg, requestID)
}

// Close stops the underlying consumer.
func (w *Worker) Close() error {
	return w.consumer.Close()
}
