package middleware

import (
	"database/sql"
	"net/http"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/repository"
)

// AuditMiddleware records security-relevant actions in the audit log
type AuditMiddleware struct {
	auditRepo *repository.AuditRepository
}

// NewAuditMiddleware creates a new audit middleware
func NewAuditMiddleware(db *sql.DB) *AuditMiddleware {
	return &AuditMiddleware{
		auditRepo: repository.NewAuditRepository(db),
	}
}

// Log records an audit row after the wrapped handler ran
func (m *AuditMiddleware) Log(action, resource, details string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			var userID *uint
			if id, ok := GetUserID(r); ok {
				userID = &id
			}

			// Audit failures must not fail the request itself
			_ = m.auditRepo.Create(&models.AuditLog{
				UserID:    userID,
				Action:    action,
				Resource:  resource,
				Details:   details,
				IPAddress: clientIP(r),
				UserAgent: r.UserAgent(),
			})
		})
	}
}

// LogAction records a single audit row outside the middleware chain
func (m *AuditMiddleware) LogAction(userID *uint, action, resource, details, ipAddress, userAgent string) error {
	return m.auditRepo.Create(&models.AuditLog{
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Details:   details,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
}
