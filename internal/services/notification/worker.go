package notification

import (
	"context"
	"fmt"

	"tastymeals/internal/logger"
	"tastymeals/internal/messaging"
	"tastymeals/internal/models"
)

// Worker consumes event records from the notifications fanout and
// writes per-recipient inbox rows.
type Worker struct {
	service  *Service
	consumer *messaging.Consumer
	logger   *logger.Logger
}

// NewWorker creates a notification worker bound to the fanout queue.
func NewWorker(service *Service, conn *messaging.Connection, log *logger.Logger) *Worker {
	consumer := messaging.NewConsumer(conn, log, messaging.NotificationsQueue, "notification-worker", 1)
	return &Worker{service: service, consumer: consumer, logger: log}
}

// Run blocks consuming events until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker_started", "Notification worker consuming events", "", map[string]interface{}{
		"queue": messaging.NotificationsQueue,
	})
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

func (w *Worker) handleMessage(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var msg models.NotificationMessage
	if err := messaging.ParseMessage(body, &msg); err != nil {
		return fmt.Errorf("parse notification message: %w", err)
	}
	if msg.Kind == "" {
		return fmt.Errorf("notification message without kind")
	}

	// Record never propagates storage errors; a redelivery would just
	// duplicate the rows written so far.
	w.service.Record(ctx, msg, requestID)
	return nil
}

// Close stops the underlying consumer.
func (w *Worker) Close() error {
	return w.consumer.Close()
}
