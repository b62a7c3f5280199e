package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/tabletop/backend/internal/crypto"
	"github.com/tabletop/backend/internal/db"
	"github.com/tabletop/backend/internal/logging"
	"github.com/tabletop/backend/internal/models"
	"github.com/tabletop/backend/internal/services"
)

// AuthHandler manages account registration and login.
type AuthHandler struct {
	queries     *db.Queries
	authService *services.AuthService
}

// NewAuthHandler creates an AuthHandler with the required dependencies.
func NewAuthHandler(queries *db.Queries, authService *services.AuthService) *AuthHandler {
	return &AuthHandler{queries: queries, authService: authService}
}

// Register creates a user account and returns a token for it.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.DisplayName == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email, displayName, and password are required")
		return
	}

	if _, err := h.queries.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to check existing account", err)
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to hash password", err)
		return
	}

	user, err := h.queries.CreateUser(r.Context(), db.CreateUserParams{
		ID:           uuid.New().String(),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
	})
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create account", err)
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.DisplayName)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to generate token", err)
		return
	}

	writeJSON(w, http.StatusCreated, models.AuthResponse{
		Token:       token,
		UserID:      user.ID,
		DisplayName: user.DisplayName,
	})
}

// Login verifies credentials and returns a fresh token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.queries.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logging.LogSecurityEvent(r.Context(), logging.SecurityEventBadCredentials, "login with unknown email")
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to look up account", err)
		return
	}

	if !crypto.VerifyPassword(req.Password, user.PasswordHash) {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventBadCredentials, "login with wrong password")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.DisplayName)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to generate token", err)
		return
	}

	writeJSON(w, http.StatusOK, models.AuthResponse{
		Token:       token,
		UserID:      user.ID,
		DisplayName: user.DisplayName,
	})
}
