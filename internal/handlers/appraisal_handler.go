package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/middleware"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/service"
)

// AppraisalHandler handles the appraisal lifecycle routes. Workflow
// responses use the {success, error} shape so clients can distinguish a
// rejected gate from a transport failure.
type AppraisalHandler struct {
	appraisalService *service.AppraisalService
}

// NewAppraisalHandler creates a new appraisal handler
func NewAppraisalHandler(appraisalService *service.AppraisalService) *AppraisalHandler {
	return &AppraisalHandler{appraisalService: appraisalService}
}

// TransitionRequest carries the requested status and, optionally, the
// latest document to persist with it
type TransitionRequest struct {
	Status models.AppraisalStatus `json:"status"`
	Data   *models.AppraisalData  `json:"appraisal_data,omitempty"`
}

// DeletionRequest carries the reason for a deletion request
type DeletionRequest struct {
	Reason string `json:"reason"`
}

// respondWorkflowError reports a failed workflow operation with the
// {success:false, error} shape and a matching status code
func respondWorkflowError(w http.ResponseWriter, err error) {
	msg := err.Error()
	code := http.StatusBadRequest
	switch {
	case strings.Contains(msg, ErrMsgPermissionDenied):
		code = http.StatusForbidden
	case strings.Contains(msg, ErrMsgNotFound):
		code = http.StatusNotFound
	}
	respondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

func callerID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
	}
	return userID, ok
}

// Save creates or updates an appraisal document
// @Summary Save an appraisal
// @Description Create-or-update keyed by id, falling back to (term, year, role). Recomputes the overall score.
// @Tags Appraisals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.SaveParams true "Appraisal document"
// @Success 200 {object} map[string]interface{} "Saved appraisal"
// @Failure 403 {object} map[string]string "Not the assigned appraiser"
// @Router /appraisals/save [post]
func (h *AppraisalHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var params service.SaveParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	appraisal, err := h.appraisalService.Save(userID, params)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"appraisal": appraisal,
	})
}

// Transition advances an appraisal to a later workflow status
// @Summary Transition an appraisal
// @Description Validates the status gate; nothing is written when it fails
// @Tags Appraisals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appraisal ID"
// @Param request body TransitionRequest true "Target status"
// @Success 200 {object} map[string]interface{} "success true"
// @Failure 400 {object} map[string]interface{} "success false with gate error"
// @Router /appraisals/{id}/transition [post]
func (h *AppraisalHandler) Transition(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAppraisalID)
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	appraisal, err := h.appraisalService.Transition(userID, id, req.Status, req.Data)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"appraisal": appraisal,
	})
}

// ObservationComplete marks one observation slot complete without touching
// the overall status
// @Summary Complete one observation
// @Tags Appraisals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appraisal ID"
// @Param slot path int true "Observation slot (1 or 2)"
// @Success 200 {object} map[string]interface{} "success true"
// @Router /appraisals/{id}/observations/{slot}/complete [post]
func (h *AppraisalHandler) ObservationComplete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAppraisalID)
		return
	}

	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid observation slot")
		return
	}

	appraisal, err := h.appraisalService.MarkObservationComplete(userID, id, slot)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"appraisal": appraisal,
	})
}

// ResetStatus sets an appraisal back to an earlier status. Director only;
// the role is verified against the store inside the service.
// @Summary Reset appraisal status
// @Tags Appraisals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appraisal ID"
// @Param request body TransitionRequest true "Target status"
// @Success 200 {object} map[string]interface{} "success true"
// @Router /appraisals/{id}/reset-status [post]
func (h *AppraisalHandler) ResetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAppraisalID)
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	appraisal, err := h.appraisalService.ResetStatus(userID, id, req.Status)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"appraisal": appraisal,
	})
}

// RequestDeletion flags an appraisal for deletion
// @Summary Request appraisal deletion
// @Tags Appraisals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appraisal ID"
// @Param request body DeletionRequest true "Reason"
// @Success 200 {object} map[string]interface{} "success true"
// @Router /appraisals/{id}/request-deletion [post]
func (h *AppraisalHandler) RequestDeletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAppraisalID)
		return
	}

	var req DeletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.appraisalService.RequestDeletion(userID, id, req.Reason); err != nil {
		respondWorkflowError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// ApproveDeletion deletes a deletion-requested appraisal. Director only.
// @Summary Approve appraisal deletion
// @Tags Appraisals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appraisal ID"
// @Success 200 {object} map[string]interface{} "success true"
// @Router /appraisals/{id}/approve-deletion [post]
func (h *AppraisalHandler) ApproveDeletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAppraisalID)
		return
	}

	if err := h.appraisalService.ApproveDeletion(userID, id); err != nil {
		respondWorkflowError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// RejectDeletion clears a deletion request. Director only.
// @Summary Reject appraisal deletion
// @Tags Appraisals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appraisal ID"
// @Success 200 {object} map[string]interface{} "success true"
// @Router /appraisals/{id}/reject-deletion [post]
func (h *AppraisalHandler) RejectDeletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAppraisalID)
		return
	}

	if err := h.appraisalService.RejectDeletion(userID, id); err != nil {
		respondWorkflowError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// DeletionRequests lists pending deletion requests. Director only.
// @Summary List deletion requests
// @Tags Appraisals
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.AppraisalWithNames
// @Router /appraisals/deletion-requests [get]
func (h *AppraisalHandler) DeletionRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	appraisals, err := h.appraisalService.DeletionRequests(userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, appraisals)
}

// My lists the caller's appraisals, both sides
// @Summary My appraisals
// @Tags Appraisals
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.AppraisalWithNames
// @Router /appraisals/my [get]
func (h *AppraisalHandler) My(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	appraisals, err := h.appraisalService.MyAppraisals(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list appraisals")
		return
	}

	respondWithJSON(w, http.StatusOK, appraisals)
}

// Get returns one appraisal
// @Summary Get appraisal
// @Tags Appraisals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appraisal ID"
// @Success 200 {object} models.AppraisalWithNames
// @Router /appraisals/{id} [get]
func (h *AppraisalHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAppraisalID)
		return
	}

	appraisal, err := h.appraisalService.Get(userID, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, appraisal)
}

// Score recomputes the score breakdown from the stored document
// @Summary Appraisal score
// @Tags Appraisals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appraisal ID"
// @Success 200 {object} scoring.Result
// @Router /appraisals/{id}/score [get]
func (h *AppraisalHandler) Score(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAppraisalID)
		return
	}

	result, err := h.appraisalService.Score(userID, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// Scoresheet downloads the appraisal as an xlsx workbook
// @Summary Download scoresheet
// @Tags Appraisals
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path int true "Appraisal ID"
// @Success 200 {file} binary "Workbook"
// @Router /appraisals/{id}/scoresheet.xlsx [get]
func (h *AppraisalHandler) Scoresheet(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAppraisalID)
		return
	}

	buf, filename, err := h.appraisalService.Export(userID, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// Seal returns the sealed-scoresheet verification data
// @Summary Seal verification
// @Tags Appraisals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appraisal ID"
// @Success 200 {object} service.SealInfo
// @Router /appraisals/{id}/seal [get]
func (h *AppraisalHandler) Seal(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAppraisalID)
		return
	}

	info, err := h.appraisalService.SealInfo(userID, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, info)
}
