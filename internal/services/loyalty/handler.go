package loyalty

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tastymeals/internal/auth"
	"tastymeals/internal/httpapi"
	"tastymeals/internal/logger"
	"tastymeals/internal/models"
)

// Handler exposes the loyalty endpoints.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a loyalty handler.
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// CustomerRoutes mounts balance, history, the redemption catalog and
// redemption itself.
func (h *Handler) CustomerRoutes(r chi.Router) {
	r.Route("/loyalty", func(r chi.Router) {
		r.Get("/", h.Balance)
		r.Get("/transactions", h.Accruals)
		r.Get("/options", h.ListOptions)
		r.Post("/redeem", h.Redeem)
		r.Get("/redemptions", h.Redemptions)
	})
}

// AdminRoutes mounts option management and redemption fulfilment.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Route("/loyalty", func(r chi.Router) {
		r.Post("/options", h.CreateOption)
		r.Get("/options", h.ListOptions)
		r.Patch("/options/{optionID}", h.UpdateOption)
		r.Delete("/options/{optionID}", h.DeleteOption)
		r.Get("/redemptions", h.Redemptions)
		r.Post("/redemptions/{redemptionID}/deliver", h.MarkDelivered)
		r.Delete("/redemptions/{redemptionID}", h.DeleteRedemption)
	})
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	account, err := h.service.Balance(r.Context(), principal.UserID)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) Accruals(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	transactions, err := h.service.Accruals(r.Context(), principal.UserID)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, transactions)
}

type optionRequest struct {
	FoodItemID     *string `json:"fooditem_id"`
	PointsRequired *int64  `json:"points_required"`
	Description    *string `json:"description"`
}

func (h *Handler) CreateOption(w http.ResponseWriter, r *http.Request) {
	var req optionRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	if req.FoodItemID == nil || req.PointsRequired == nil {
		httpapi.WriteError(w, http.StatusBadRequest, "fooditem_id and points_required are required")
		return
	}
	foodItemID, err := uuid.Parse(*req.FoodItemID)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid fooditem id")
		return
	}
	description := ""
	if req.Description != nil {
		description = *req.Description
	}

	option, err := h.service.CreateOption(r.Context(), foodItemID, *req.PointsRequired, description)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, option)
}

func (h *Handler) ListOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.service.ListOptions(r.Context())
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, options)
}

func (h *Handler) UpdateOption(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "optionID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid option id")
		return
	}
	var req optionRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	option, err := h.service.UpdateOption(r.Context(), id, req.PointsRequired, req.Description)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, option)
}

func (h *Handler) DeleteOption(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "optionID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid option id")
		return
	}
	if err := h.service.DeleteOption(r.Context(), id); err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type redeemRequest struct {
	OptionID string `json:"option_id"`
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req redeemRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	optionID, err := uuid.Parse(req.OptionID)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid option id")
		return
	}

	result, err := h.service.Redeem(r.Context(), principal.UserID, optionID, requestID)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) Redemptions(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	status := models.RedemptionStatus(r.URL.Query().Get("status"))
	transactions, err := h.service.Redemptions(r.Context(), principal, status)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, transactions)
}

func (h *Handler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()
	id, err := uuid.Parse(chi.URLParam(r, "redemptionID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid redemption id")
		return
	}
	redemption, err := h.service.MarkDelivered(r.Context(), id, requestID)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, redemption)
}

func (h *Handler) DeleteRedemption(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "redemptionID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid redemption id")
		return
	}
	if err := h.service.DeleteRedemption(r.Context(), id); err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
