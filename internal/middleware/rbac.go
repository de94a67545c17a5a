package middleware

import (
	"database/sql"
	"net/http"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/repository"
)

// RBACMiddleware restricts routes to specific staff roles
type RBACMiddleware struct {
	userRepo *repository.UserRepository
}

// NewRBACMiddleware creates a new RBAC middleware
func NewRBACMiddleware(db *sql.DB) *RBACMiddleware {
	return &RBACMiddleware{
		userRepo: repository.NewUserRepository(db),
	}
}

// RequireRole allows only users holding the given staff role
func (m *RBACMiddleware) RequireRole(role models.StaffRole) func(http.Handler) http.Handler {
	return m.RequireAnyRole(role)
}

// RequireAnyRole allows users holding any of the given staff roles.
// Additional roles count, so a TEACHERS user who also acts as
// CURRICULUM COORDINATOR passes a coordinator check.
func (m *RBACMiddleware) RequireAnyRole(roles ...models.StaffRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "User not authenticated")
				return
			}

			user, err := m.userRepo.GetByID(userID)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, "Failed to get user")
				return
			}
			if user == nil || !user.IsActive {
				respondWithError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			held := user.AppraisableRoles()
			hasRole := false
			for _, required := range roles {
				for _, have := range held {
					if have == required {
						hasRole = true
						break
					}
				}
				if hasRole {
					break
				}
			}

			if !hasRole {
				respondWithError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireDirector allows only the director
func (m *RBACMiddleware) RequireDirector(next http.Handler) http.Handler {
	return m.RequireRole(models.RoleDirector)(next)
}
