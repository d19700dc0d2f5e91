package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tastymeals/internal/auth"
	"tastymeals/internal/httpapi"
	"tastymeals/internal/logger"
)

// Handler exposes the customer cart endpoints.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a cart handler.
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// Routes mounts the cart endpoints under the customer namespace.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.View)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{itemID}", h.UpdateQuantity)
		r.Delete("/items/{itemID}", h.RemoveItem)
	})
}

func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	cart, err := h.service.View(r.Context(), principal.UserID)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, cart)
}

type addItemRequest struct {
	FoodItemID string `json:"fooditem_id"`
	Quantity   int    `json:"quantity"`
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req addItemRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	foodItemID, err := uuid.Parse(req.FoodItemID)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid fooditem id")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item, err := h.service.AddItem(r.Context(), principal.UserID, foodItemID, req.Quantity)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, item)
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req updateQuantityRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}

	item, err := h.service.UpdateQuantity(r.Context(), principal.UserID, itemID, req.Quantity)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	if err := h.service.RemoveItem(r.Context(), principal.UserID, itemID); err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
