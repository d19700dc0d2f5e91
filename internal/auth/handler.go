package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tastymeals/internal/httpapi"
	"tastymeals/internal/logger"
	"tastymeals/internal/models"
)

// UserStore is the account lookup needed for credential exchange.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Handler serves the token endpoints.
type Handler struct {
	users  UserStore
	tokens *TokenManager
	logger *logger.Logger
}

// NewHandler creates the auth handler.
func NewHandler(users UserStore, tokens *TokenManager, log *logger.Logger) *Handler {
	return &Handler{users: users, tokens: tokens, logger: log}
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Token handles POST /api/auth/token: credential exchange for an
// access/refresh pair.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	var req tokenRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	if req.Username == "" || req.Password == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), req.Username)
	if err == nil {
		err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password))
	}
	if err != nil {
		h.logger.Info("login_failed", "Credential exchange rejected", requestID, map[string]interface{}{
			"username": req.Username,
		})
		httpapi.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	pair, err := h.tokens.IssuePair(user)
	if err != nil {
		h.logger.Error("token_issue_failed", "Failed to issue token pair", requestID, err, nil)
		httpapi.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("login_succeeded", "Issued token pair", requestID, map[string]interface{}{
		"username": user.Username,
		"role":     user.Role,
	})
	httpapi.WriteJSON(w, http.StatusOK, pair)
}

// Refresh handles POST /api/auth/token/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil || req.Refresh == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	userID, err := h.tokens.VerifyRefresh(req.Refresh)
	if err != nil {
		httpapi.WriteError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}

	// Re-read the user so a role change takes effect on refresh.
	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		httpapi.WriteError(w, http.StatusUnauthorized, "account no longer exists")
		return
	}

	pair, err := h.tokens.IssuePair(user)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, pair)
}
