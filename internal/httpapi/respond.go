package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tastymeals/internal/models"
)

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes an error response in JSON format.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]interface{}{
		"error":     message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// WriteDomainError maps a domain error to an HTTP status and writes it.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrPermission):
		WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrPaymentExists),
		errors.Is(err, models.ErrDuplicateReview),
		errors.Is(err, models.ErrDuplicateName),
		errors.Is(err, models.ErrDuplicateCartItem):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrEmptyCart),
		errors.Is(err, models.ErrInsufficientPoints),
		errors.Is(err, models.ErrReviewWindowExpired),
		errors.Is(err, models.ErrOrderNotPaid),
		errors.Is(err, models.ErrValidation):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrPaymentInitiation):
		// Retryable upstream failure.
		WriteError(w, http.StatusBadGateway, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

// DecodeJSON decodes a request body, rejecting unknown fields.
func DecodeJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
