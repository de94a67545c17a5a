package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/auth"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/middleware"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/service"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService  *service.AuthService
	tokenService *auth.Service
	auditService *service.AuditService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, tokenService *auth.Service, auditService *service.AuditService) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenService: tokenService,
		auditService: auditService,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Login authenticates a staff member
// @Summary Log in
// @Description Authenticate with email and password, returning a token pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} map[string]interface{} "Token pair and user"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	tokens, user, err := h.authService.Login(req.Email, req.Password, getIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrUserInactive) {
			respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		slog.Error("Login failed", "email", req.Email, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	h.auditService.Log(user.ID, "auth.login", "sessions", "")

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
		"user":          user,
	})
}

// Refresh exchanges a refresh token for a new token pair
// @Summary Refresh tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} map[string]interface{} "New token pair"
// @Failure 401 {object} map[string]string "Invalid refresh token"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	tokens, err := h.authService.Refresh(req.RefreshToken, getIP(r), r.UserAgent())
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
	})
}

// Logout invalidates the caller's current access token
// @Summary Log out
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Logged out"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	claims, err := h.tokenService.ValidateToken(token)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	if err := h.authService.Logout(claims.ID); err != nil {
		slog.Error("Logout failed", "user_id", claims.UserID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Logout failed")
		return
	}

	h.auditService.Log(claims.UserID, "auth.logout", "sessions", "")

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me returns the authenticated account
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}

// ChangePassword changes the caller's password and revokes all sessions
// @Summary Change password
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Passwords"
// @Success 200 {object} map[string]string "Password changed"
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.authService.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondWithServiceError(w, err)
		return
	}

	h.auditService.Log(userID, "auth.change_password", "users", "")

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Password changed, please log in again"})
}
