package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/auth"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/repository"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
)

// AuthMiddleware validates JWT tokens
type AuthMiddleware struct {
	authService *auth.Service
	sessionRepo *repository.SessionRepository
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authService *auth.Service, sessionRepo *repository.SessionRepository) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		sessionRepo: sessionRepo,
	}
}

// Authenticate validates the JWT token and adds user info to context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if claims.TokenType != "access" {
			respondWithError(w, http.StatusUnauthorized, "Refresh token cannot be used for access")
			return
		}

		// A missing session row means the token was revoked by logout
		if claims.ID != "" {
			session, err := m.sessionRepo.GetByJTI(claims.ID)
			if err != nil || session == nil {
				respondWithError(w, http.StatusUnauthorized, "Token has been invalidated")
				return
			}
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UserEmailKey, claims.Email)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID retrieves the user ID from the request context
func GetUserID(r *http.Request) (uint, bool) {
	userID, ok := r.Context().Value(UserIDKey).(uint)
	return userID, ok
}

// GetUserEmail retrieves the user email from the request context
func GetUserEmail(r *http.Request) (string, bool) {
	email, ok := r.Context().Value(UserEmailKey).(string)
	return email, ok
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
