package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"tastymeals/internal/logger"
)

// MessageHandler processes a single message body. A returned error causes
// redelivery until the attempt budget is exhausted.
type MessageHandler func(ctx context.Context, body []byte) error

// maxDeliveryAttempts bounds redelivery before a message is dead-lettered.
const maxDeliveryAttempts = 3

// Consumer handles message consumption from RabbitMQ.
type Consumer struct {
	conn        *Connection
	logger      *logger.Logger
	queueName   string
	consumerTag string
	prefetch    int
}

// NewConsumer creates a new message consumer.
func NewConsumer(conn *Connection, log *logger.Logger, queueName, consumerTag string, prefetch int) *Consumer {
	return &Consumer{
		conn:        conn,
		logger:      log,
		queueName:   queueName,
		consumerTag: consumerTag,
		prefetch:    prefetch,
	}
}

// StartConsuming consumes messages from the queue until ctx is cancelled.
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	if c.conn.IsClosed() {
		if err := c.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	if err := c.conn.Channel().Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.conn.Channel().Consume(
		c.queueName,
		c.consumerTag,
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("consumer_started",
		fmt.Sprintf("Started consuming from queue %s", c.queueName),
		"", map[string]interface{}{
			"queue":    c.queueName,
			"consumer": c.consumerTag,
			"prefetch": c.prefetch,
		})

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer_stopped", "Consumer stopped by context", "", nil)
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				c.logger.Error("consumer_channel_closed", "Message channel closed, attempting to reconnect", "", nil, nil)
				if err := c.conn.Reconnect(); err != nil {
					return fmt.Errorf("failed to reconnect after channel closed: %w", err)
				}
				return c.StartConsuming(ctx, handler)
			}
			c.processMessage(ctx, d, handler)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, delivery amqp091.Delivery, handler MessageHandler) {
	startTime := time.Now()

	processingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := handler(processingCtx, delivery.Body)
	duration := time.Since(startTime)

	if err != nil {
		c.handleFailure(ctx, delivery, err, duration)
		return
	}

	c.logger.Debug("message_processed",
		"Successfully processed message",
		"", map[string]interface{}{
			"queue":        c.queueName,
			"duration_ms":  duration.Milliseconds(),
			"delivery_tag": delivery.DeliveryTag,
		})

	if ackErr := delivery.Ack(false); ackErr != nil {
		c.logger.Error("message_ack_failed", "Failed to ack message", "", ackErr, nil)
	}
}

func (c *Consumer) handleFailure(ctx context.Context, delivery amqp091.Delivery, err error, duration time.Duration) {
	attempts := deliveryAttempts(delivery)
	c.logger.Error("message_processing_failed",
		"Failed to process message",
		"", err, map[string]interface{}{
			"queue":        c.queueName,
			"duration_ms":  duration.Milliseconds(),
			"delivery_tag": delivery.DeliveryTag,
			"attempts":     attempts,
		})

	if attempts >= maxDeliveryAttempts {
		// Routes through the queue's dead-letter exchange so the failure
		// becomes admin-visible instead of looping forever.
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			c.logger.Error("message_nack_failed", "Failed to nack message", "", nackErr, nil)
			return
		}
		c.logger.Error("message_dead_lettered",
			"Message exhausted its retry budget",
			"", err, map[string]interface{}{
				"queue":    c.queueName,
				"attempts": attempts,
			})
		return
	}

	// The broker does not count plain requeues, so a retry is a republish
	// with an incremented attempt header; the original is acked only once
	// its replacement is on the queue.
	if pubErr := c.republish(ctx, delivery, attempts+1); pubErr != nil {
		c.logger.Error("message_republish_failed", "Failed to republish message for retry", "", pubErr, nil)
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			c.logger.Error("message_nack_failed", "Failed to nack message", "", nackErr, nil)
		}
		return
	}
	if ackErr := delivery.Ack(false); ackErr != nil {
		c.logger.Error("message_ack_failed", "Failed to ack message", "", ackErr, nil)
	}
}

// attemptsHeader carries the consumer-maintained delivery attempt count.
const attemptsHeader = "x-attempts"

func (c *Consumer) republish(ctx context.Context, delivery amqp091.Delivery, attempts int) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return c.conn.Channel().PublishWithContext(
		ctx,
		"", // default exchange
		c.queueName,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  delivery.ContentType,
			Body:         delivery.Body,
			DeliveryMode: delivery.DeliveryMode,
			Headers:      nextAttemptHeaders(delivery, attempts),
			Timestamp:    time.Now(),
		},
	)
}

// nextAttemptHeaders copies the delivery's headers with the attempt
// counter set, leaving the source table untouched.
func nextAttemptHeaders(delivery amqp091.Delivery, attempts int) amqp091.Table {
	headers := amqp091.Table{}
	for k, v := range delivery.Headers {
		headers[k] = v
	}
	headers[attemptsHeader] = int32(attempts)
	return headers
}

// deliveryAttempts reads the attempt counter stamped by republish. A
// first delivery, or one requeued by the broker without our header,
// counts as attempt one.
func deliveryAttempts(delivery amqp091.Delivery) int {
	switch n := delivery.Headers[attemptsHeader].(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	}
	return 1
}

// ParseMessage parses a JSON message into the provided struct.
func ParseMessage(body []byte, v interface{}) error {
	return json.Unmarshal(body, v)
}

// Close stops consuming messages.
func (c *Consumer) Close() error {
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Channel().Cancel(c.consumerTag, false); err != nil {
			c.logger.Error("consumer_cancel_failed", "Failed to cancel consumer", "", err, nil)
		}
		return c.conn.Close()
	}
	return nil
}
