package reports

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tastymeals/internal/httpapi"
	"tastymeals/internal/logger"
)

// Handler serves the admin report endpoints.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a reports handler.
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// Routes mounts the report endpoints under the admin namespace.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/reports/daily", h.Daily)
}

func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpapi.WriteError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		day = parsed
	}

	report, err := h.service.Daily(r.Context(), day)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, report)
}
