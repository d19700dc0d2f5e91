package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentConfirmationMessage is the queue message carrying a gateway
// callback result to the payment worker.
type PaymentConfirmationMessage struct {
	CheckoutRequestID string    `json:"checkout_request_id"`
	Success           bool      `json:"success"`
	GatewayReceipt    string    `json:"gateway_receipt,omitempty"`
	FailureReason     string    `json:"failure_reason,omitempty"`
	ReceivedAt        time.Time `json:"received_at"`
}

// Notification kinds published on the fanout exchange.
const (
	NotificationOrderPlaced     = "order_placed"
	NotificationPaymentReceived = "payment_received"
	NotificationPaymentFailed   = "payment_failed"
	NotificationOrderCompleted  = "order_completed"
	NotificationPointsRedeemed  = "points_redeemed"
)

// NotificationMessage is the fanout message consumed by the notification
// worker. CustomerID is the order's customer; NotifyAdmins additionally
// fans the record out to every cafe admin.
type NotificationMessage struct {
	Kind         string    `json:"kind"`
	CustomerID   uuid.UUID `json:"customer_id"`
	NotifyAdmins bool      `json:"notify_admins"`
	Message      string    `json:"message"`
	OccurredAt   time.Time `json:"occurred_at"`
}
