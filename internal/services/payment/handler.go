package payment

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tastymeals/internal/auth"
	"tastymeals/internal/httpapi"
	"tastymeals/internal/logger"
	"tastymeals/internal/models"
)

// ConfirmationPublisher hands gateway results to the durable queue.
type ConfirmationPublisher interface {
	PublishPaymentConfirmation(ctx context.Context, msg interface{}) error
}

// Handler exposes payment initiation, status, and the gateway callback.
type Handler struct {
	service        *Service
	publisher      ConfirmationPublisher
	callbackSecret string
	logger         *logger.Logger
}

// NewHandler creates a payment handler.
func NewHandler(service *Service, publisher ConfirmationPublisher, callbackSecret string, log *logger.Logger) *Handler {
	return &Handler{
		service:        service,
		publisher:      publisher,
		callbackSecret: callbackSecret,
		logger:         log,
	}
}

// CustomerRoutes mounts payment initiation under the customer order
// namespace.
func (h *Handler) CustomerRoutes(r chi.Router) {
	r.Post("/orders/{orderID}/payments", h.Initiate)
	r.Get("/orders/{orderID}/payments", h.Status)
}

type initiateRequest struct {
	PhoneNumber string `json:"phone_number"`
}

func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req initiateRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}

	payment, err := h.service.Initiate(r.Context(), principal, orderID, req.PhoneNumber, requestID)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusAccepted, payment)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	payment, err := h.service.Status(r.Context(), principal, orderID)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, payment)
}

// darajaCallback is the provider's STK push result envelope.
type darajaCallback struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

func (c *darajaCallback) receipt() string {
	for _, item := range c.Body.StkCallback.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			if s, ok := item.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

// Callback handles POST /api/payments/callback. It authenticates the
// shared secret, translates the gateway result into a queue message,
// and returns 200 immediately; all state changes happen in the worker.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	secret := r.Header.Get("X-Callback-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.callbackSecret)) != 1 {
		h.logger.Error("callback_rejected", "Callback with bad shared secret", requestID, nil, map[string]interface{}{
			"remote_addr": r.RemoteAddr,
		})
		httpapi.WriteError(w, http.StatusForbidden, "forbidden")
		return
	}

	// The provider adds fields over time; decode leniently.
	var cb darajaCallback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	stk := cb.Body.StkCallback
	if stk.CheckoutRequestID == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "missing CheckoutRequestID")
		return
	}

	msg := models.PaymentConfirmationMessage{
		CheckoutRequestID: stk.CheckoutRequestID,
		Success:           stk.ResultCode == 0,
		GatewayReceipt:    cb.receipt(),
		FailureReason:     stk.ResultDesc,
		ReceivedAt:        time.Now().UTC(),
	}
	if msg.Success {
		msg.FailureReason = ""
	}

	if err := h.publisher.PublishPaymentConfirmation(r.Context(), msg); err != nil {
		h.logger.Error("callback_publish_failed", "Failed to enqueue confirmation", requestID, err, map[string]interface{}{
			"checkout_request_id": stk.CheckoutRequestID,
		})
		httpapi.WriteError(w, http.StatusServiceUnavailable, "temporarily unavailable")
		return
	}

	h.logger.Info("callback_accepted", "Gateway callback enqueued", requestID, map[string]interface{}{
		"checkout_request_id": stk.CheckoutRequestID,
		"result_code":         stk.ResultCode,
	})
	httpapi.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ResultCode": 0,
		"ResultDesc": fmt.Sprintf("Accepted %s", stk.CheckoutRequestID),
	})
}
