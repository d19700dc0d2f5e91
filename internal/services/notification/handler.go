package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tastymeals/internal/auth"
	"tastymeals/internal/httpapi"
	"tastymeals/internal/logger"
)

// Handler serves the notification inbox endpoints.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a notification handler.
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// Routes mounts the inbox endpoints. Both customers and admins read
// their own inbox through the same handlers.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/{notificationID}/read", h.MarkRead)
		r.Post("/read-all", h.MarkAllRead)
		r.Delete("/", h.DeleteAll)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	ordering := r.URL.Query().Get("ordering")

	notifications, err := h.service.List(r.Context(), principal.UserID, unreadOnly, ordering)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, notifications)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	notificationID, err := uuid.Parse(chi.URLParam(r, "notificationID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	n, err := h.service.MarkRead(r.Context(), principal.UserID, notificationID)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, n)
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	updated, err := h.service.MarkAllRead(r.Context(), principal.UserID)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (h *Handler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	deleted, err := h.service.DeleteAll(r.Context(), principal.UserID)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
