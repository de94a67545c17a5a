package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/middleware"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/service"
)

// AssignmentHandler handles appraiser assignment requests. Mutation is
// director only; the my-* lookups serve every authenticated user.
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
	auditService      *service.AuditService
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(assignmentService *service.AssignmentService, auditService *service.AuditService) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
		auditService:      auditService,
	}
}

// AssignRequest represents an assignment request. A nil role targets the
// appraisee's primary assignment key.
type AssignRequest struct {
	AppraiseeID uint              `json:"appraisee_id"`
	AppraiserID uint              `json:"appraiser_id"`
	Role        *models.StaffRole `json:"role,omitempty"`
}

// RemoveRequest represents an assignment removal request
type RemoveRequest struct {
	AppraiseeID uint              `json:"appraisee_id"`
	Role        *models.StaffRole `json:"role,omitempty"`
}

// Assign sets the appraiser for an (appraisee, role) key
// @Summary Assign an appraiser
// @Description Replaces any existing assignment for the same key
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AssignRequest true "Assignment"
// @Success 200 {object} service.AssignmentEntry
// @Failure 400 {object} map[string]string "Validation error"
// @Router /assignments [post]
func (h *AssignmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if req.AppraiseeID == 0 || req.AppraiserID == 0 {
		respondWithError(w, http.StatusBadRequest, "appraisee_id and appraiser_id are required")
		return
	}

	assignment, err := h.assignmentService.Assign(req.AppraiseeID, req.AppraiserID, req.Role)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	if actorID, ok := middleware.GetUserID(r); ok {
		h.auditService.Log(actorID, "assignment.assign", "assignments", assignment.RoleKey())
	}

	respondWithJSON(w, http.StatusOK, assignment)
}

// Remove deletes the assignment for an (appraisee, role) key
// @Summary Remove an assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RemoveRequest true "Assignment key"
// @Success 200 {object} map[string]string "Removed"
// @Router /assignments [delete]
func (h *AssignmentHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req RemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if req.AppraiseeID == 0 {
		respondWithError(w, http.StatusBadRequest, "appraisee_id is required")
		return
	}

	if err := h.assignmentService.Remove(req.AppraiseeID, req.Role); err != nil {
		respondWithServiceError(w, err)
		return
	}

	if actorID, ok := middleware.GetUserID(r); ok {
		h.auditService.Log(actorID, "assignment.remove", "assignments", "")
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Assignment removed"})
}

// List returns the full assignment mapping
// @Summary List assignments
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.AssignmentEntry
// @Router /assignments [get]
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.assignmentService.List()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list assignments")
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

// Eligible returns the users the hierarchy allows to appraise a role
// @Summary List eligible appraisers
// @Description An empty list is a valid answer for roles outside the hierarchy
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param role query string true "Appraised role"
// @Param appraisee_id query int false "Exclude this appraisee"
// @Success 200 {array} models.User
// @Router /assignments/eligible [get]
func (h *AssignmentHandler) Eligible(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		respondWithError(w, http.StatusBadRequest, "role query parameter is required")
		return
	}

	var appraiseeID uint
	if v := r.URL.Query().Get("appraisee_id"); v != "" {
		id, err := parseUint(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid appraisee_id")
			return
		}
		appraiseeID = id
	}

	users, err := h.assignmentService.EligibleAppraisers(models.StaffRole(role), appraiseeID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, users)
}

// MyAppraisees returns the assignments where the caller is the appraiser
// @Summary My appraisees
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.AssignmentEntry
// @Router /assignments/my-appraisees [get]
func (h *AssignmentHandler) MyAppraisees(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	entries, err := h.assignmentService.MyAppraisees(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list appraisees")
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

// MyAppraiser returns the caller's appraiser per role variant
// @Summary My appraiser
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.AssignmentEntry
// @Router /assignments/my-appraiser [get]
func (h *AssignmentHandler) MyAppraiser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	entries, err := h.assignmentService.MyAppraiser(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to look up appraiser")
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}
