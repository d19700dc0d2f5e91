package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tastymeals/internal/auth"
	"tastymeals/internal/httpapi"
	"tastymeals/internal/logger"
	"tastymeals/internal/models"
)

// Handler exposes order endpoints for both roles.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates an order handler.
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// CustomerRoutes mounts order placement and the customer's own order
// views. Routes are registered flat so the payment handler can attach
// its endpoints under the same /orders subtree.
func (h *Handler) CustomerRoutes(r chi.Router) {
	r.Post("/orders", h.Place)
	r.Get("/orders", h.List)
	r.Get("/orders/{orderID}", h.Get)
	r.Post("/orders/{orderID}/cancel", h.Cancel)
}

// AdminRoutes mounts the full order listing and completion.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{orderID}", h.Get)
		r.Post("/{orderID}/complete", h.Complete)
	})
}

type placeOrderRequest struct {
	DiningTableID *string `json:"dining_table_id"`
}

func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req placeOrderRequest
	if r.ContentLength > 0 {
		if err := httpapi.DecodeJSON(r, &req); err != nil {
			httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
			return
		}
	}
	var diningTableID *uuid.UUID
	if req.DiningTableID != nil {
		id, err := uuid.Parse(*req.DiningTableID)
		if err != nil {
			httpapi.WriteError(w, http.StatusBadRequest, "invalid dining table id")
			return
		}
		diningTableID = &id
	}

	order, err := h.service.Place(r.Context(), principal.UserID, diningTableID, requestID)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, order)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	status := models.OrderStatus(r.URL.Query().Get("status"))
	ordering := r.URL.Query().Get("ordering")
	orders, err := h.service.List(r.Context(), principal, status, ordering)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
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

	order, err := h.service.Get(r.Context(), principal, orderID)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, order)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
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

	order, err := h.service.Cancel(r.Context(), principal, orderID, requestID)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, order)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.service.Complete(r.Context(), orderID, requestID)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, order)
}
