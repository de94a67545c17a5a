package handlers

import (
	"net/http"
	"strconv"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/repository"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/service"
)

// AuditHandler serves the audit trail. Director only.
type AuditHandler struct {
	auditService *service.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List returns audit log entries, newest first
// @Summary List audit logs
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param user_id query int false "Filter by user"
// @Param action query string false "Filter by action"
// @Param resource query string false "Filter by resource"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.AuditLog
// @Router /audit [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := repository.AuditFilters{
		Action:   q.Get("action"),
		Resource: q.Get("resource"),
	}
	if v := q.Get("user_id"); v != "" {
		id, err := parseUint(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid user_id")
			return
		}
		filters.UserID = &id
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	logs, err := h.auditService.List(filters, limit, offset)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list audit logs")
		return
	}

	respondWithJSON(w, http.StatusOK, logs)
}
