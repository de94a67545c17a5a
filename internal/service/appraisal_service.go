package service

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/email"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/export"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/repository"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/scoring"
)

// AppraisalService owns the appraisal lifecycle: saving the document,
// advancing the workflow, and the deletion-request flow. Authorization is
// resource level: the assigned appraiser edits, the appraisee reads, the
// director resets and decides deletions. Director checks read the persisted
// role, never the token claims.
type AppraisalService struct {
	appraisalRepo  *repository.AppraisalRepository
	assignmentRepo *repository.AssignmentRepository
	userRepo       *repository.UserRepository
	auditService   *AuditService
	emailService   *email.Service
	sealService    *SealService
}

// NewAppraisalService creates a new appraisal service
func NewAppraisalService(
	appraisalRepo *repository.AppraisalRepository,
	assignmentRepo *repository.AssignmentRepository,
	userRepo *repository.UserRepository,
	auditService *AuditService,
	emailService *email.Service,
	sealService *SealService,
) *AppraisalService {
	return &AppraisalService{
		appraisalRepo:  appraisalRepo,
		assignmentRepo: assignmentRepo,
		userRepo:       userRepo,
		auditService:   auditService,
		emailService:   emailService,
		sealService:    sealService,
	}
}

// SaveParams are the fields accepted by a save. ID disambiguates first;
// without it the (term, year, role) tuple of the document decides whether an
// existing appraisal is updated or a new one created.
type SaveParams struct {
	ID          uint                 `json:"id,omitempty"`
	AppraiseeID uint                 `json:"appraisee_id"`
	Role        *models.StaffRole    `json:"role,omitempty"`
	Data        models.AppraisalData `json:"appraisal_data"`
}

// Save creates or updates the appraisal document and recomputes the cached
// overall score. The caller must be the assigned appraiser for the
// (appraisee, role) key. Status is never changed by a save.
func (s *AppraisalService) Save(callerID uint, params SaveParams) (*models.Appraisal, error) {
	params.Data.Normalize()
	if err := params.Data.Validate(); err != nil {
		return nil, err
	}

	appraisee, err := s.userRepo.GetByID(params.AppraiseeID)
	if err != nil {
		return nil, fmt.Errorf("appraisee not found")
	}

	assignment, err := s.assignmentRepo.GetForKey(params.AppraiseeID, params.Role)
	if err != nil {
		return nil, err
	}
	if assignment == nil || assignment.AppraiserID != callerID {
		return nil, fmt.Errorf("permission denied: you are not the assigned appraiser")
	}

	category := s.categoryFor(appraisee, params.Role)
	score := scoring.OverallScore(&params.Data, category)

	var appraisal *models.Appraisal
	if params.ID > 0 {
		appraisal, err = s.appraisalRepo.GetByID(params.ID)
		if err != nil {
			return nil, err
		}
		if appraisal == nil {
			return nil, fmt.Errorf("appraisal not found")
		}
		if appraisal.AppraiseeID != params.AppraiseeID || !sameRole(appraisal.Role, params.Role) {
			return nil, fmt.Errorf("appraisal does not match the given appraisee and role")
		}
	} else {
		appraisal, err = s.appraisalRepo.GetByKey(callerID, params.AppraiseeID, params.Role, params.Data.Term, params.Data.Year)
		if err != nil {
			return nil, err
		}
	}

	if appraisal == nil {
		appraisal = &models.Appraisal{
			AppraiserID:  callerID,
			AppraiseeID:  params.AppraiseeID,
			Role:         params.Role,
			Term:         params.Data.Term,
			Year:         params.Data.Year,
			Status:       models.StatusDraft,
			Data:         params.Data,
			OverallScore: score,
		}
		if err := s.appraisalRepo.Create(appraisal); err != nil {
			return nil, err
		}
		return appraisal, nil
	}

	if appraisal.AppraiserID != callerID {
		return nil, fmt.Errorf("permission denied: you are not the appraiser of this appraisal")
	}
	if appraisal.Status.IsCompleted() {
		return nil, fmt.Errorf("a completed appraisal can no longer be edited")
	}

	appraisal.Data = params.Data
	appraisal.Term = params.Data.Term
	appraisal.Year = params.Data.Year
	appraisal.OverallScore = score
	if err := s.appraisalRepo.Update(appraisal); err != nil {
		return nil, err
	}

	return appraisal, nil
}

// Get retrieves one appraisal. Readable by its appraiser, its appraisee,
// and directors.
func (s *AppraisalService) Get(callerID, id uint) (*models.AppraisalWithNames, error) {
	appraisal, err := s.appraisalRepo.GetByIDWithNames(id)
	if err != nil {
		return nil, err
	}
	if appraisal == nil {
		return nil, fmt.Errorf("appraisal not found")
	}

	if err := s.authorizeRead(callerID, &appraisal.Appraisal); err != nil {
		return nil, err
	}

	return appraisal, nil
}

// MyAppraisals lists the appraisals where the caller is appraiser or
// appraisee, newest first
func (s *AppraisalService) MyAppraisals(callerID uint) ([]models.AppraisalWithNames, error) {
	return s.appraisalRepo.GetForUser(callerID)
}

// Transition advances the appraisal to a later workflow status after the
// status gate passes. The (status, document, score) tuple is persisted in
// one write; a failed gate leaves the record untouched. Completing an
// appraisal timestamps it and seals the scoresheet.
func (s *AppraisalService) Transition(callerID, id uint, target models.AppraisalStatus, data *models.AppraisalData) (*models.Appraisal, error) {
	appraisal, appraisee, err := s.loadForEdit(callerID, id)
	if err != nil {
		return nil, err
	}

	if !target.IsValid() {
		return nil, fmt.Errorf("unknown appraisal status: %s", target)
	}
	if target.Index() <= appraisal.Status.Index() {
		return nil, fmt.Errorf("cannot transition from %s back to %s", appraisal.Status, target)
	}

	if data != nil {
		data.Normalize()
		if err := data.Validate(); err != nil {
			return nil, err
		}
		if data.Term != appraisal.Term || data.Year != appraisal.Year {
			return nil, fmt.Errorf("appraisal term and year cannot change on transition")
		}
		appraisal.Data = *data
	}

	category := s.categoryFor(appraisee, appraisal.Role)
	if err := ValidateTransition(target, category, &appraisal.Data); err != nil {
		return nil, err
	}

	appraisal.Status = target
	appraisal.OverallScore = scoring.OverallScore(&appraisal.Data, category)
	if target == models.StatusCompleted {
		now := time.Now()
		appraisal.CompletedAt = &now
	}

	if err := s.appraisalRepo.Update(appraisal); err != nil {
		return nil, err
	}

	s.auditService.Log(callerID, "appraisal.transition", fmt.Sprintf("appraisal:%d", id), string(target))

	if target == models.StatusCompleted {
		s.seal(callerID, appraisal.ID, category)
	}

	s.notifyTransition(appraisal, appraisee, target)

	return appraisal, nil
}

// MarkObservationComplete validates a single observation slot and flips its
// local status, leaving the overall workflow status unchanged
func (s *AppraisalService) MarkObservationComplete(callerID, id uint, slot int) (*models.Appraisal, error) {
	appraisal, appraisee, err := s.loadForEdit(callerID, id)
	if err != nil {
		return nil, err
	}

	category := s.categoryFor(appraisee, appraisal.Role)
	if err := ValidateObservationSlot(slot, category, &appraisal.Data); err != nil {
		return nil, err
	}

	switch slot {
	case 1:
		appraisal.Data.Observation1.Status = models.ObservationCompleted
	case 2:
		appraisal.Data.Observation2.Status = models.ObservationCompleted
	default:
		return nil, fmt.Errorf("observation slot must be 1 or 2, got %d", slot)
	}

	appraisal.OverallScore = scoring.OverallScore(&appraisal.Data, category)
	if err := s.appraisalRepo.Update(appraisal); err != nil {
		return nil, err
	}

	s.auditService.Log(callerID, "appraisal.observation_complete", fmt.Sprintf("appraisal:%d", id), fmt.Sprintf("slot:%d", slot))

	return appraisal, nil
}

// ResetStatus is the sole sanctioned backward transition. Only a director
// may call it; the role is read from the store, not the token.
func (s *AppraisalService) ResetStatus(callerID, id uint, target models.AppraisalStatus) (*models.Appraisal, error) {
	if err := s.requireDirector(callerID); err != nil {
		return nil, err
	}

	appraisal, err := s.appraisalRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if appraisal == nil {
		return nil, fmt.Errorf("appraisal not found")
	}

	if !target.IsValid() {
		return nil, fmt.Errorf("unknown appraisal status: %s", target)
	}

	appraisal.Status = target
	if !target.IsCompleted() {
		appraisal.CompletedAt = nil
	}
	if err := s.appraisalRepo.Update(appraisal); err != nil {
		return nil, err
	}

	s.auditService.Log(callerID, "appraisal.reset_status", fmt.Sprintf("appraisal:%d", id), string(target))

	return appraisal, nil
}

// RequestDeletion flags the appraisal for deletion. Only the appraiser may
// request it, and a reason is required; the actual delete waits for a
// director's decision.
func (s *AppraisalService) RequestDeletion(callerID, id uint, reason string) error {
	appraisal, _, err := s.loadForEdit(callerID, id)
	if err != nil {
		return err
	}
	if reason == "" {
		return fmt.Errorf("a reason is required to request deletion")
	}
	if appraisal.DeletionRequested {
		return fmt.Errorf("deletion has already been requested for this appraisal")
	}

	if err := s.appraisalRepo.UpdateDeletionRequest(id, true, &reason); err != nil {
		return err
	}

	s.auditService.Log(callerID, "appraisal.request_deletion", fmt.Sprintf("appraisal:%d", id), reason)
	s.notifyDeletionRequest(appraisal, reason)

	return nil
}

// ApproveDeletion removes a deletion-requested appraisal. Director only.
func (s *AppraisalService) ApproveDeletion(callerID, id uint) error {
	if err := s.requireDirector(callerID); err != nil {
		return err
	}

	appraisal, err := s.appraisalRepo.GetByID(id)
	if err != nil {
		return err
	}
	if appraisal == nil {
		return fmt.Errorf("appraisal not found")
	}
	if !appraisal.DeletionRequested {
		return fmt.Errorf("no deletion has been requested for this appraisal")
	}

	if err := s.appraisalRepo.Delete(id); err != nil {
		return err
	}

	s.auditService.Log(callerID, "appraisal.approve_deletion", fmt.Sprintf("appraisal:%d", id), "")

	return nil
}

// RejectDeletion clears a deletion request. Director only.
func (s *AppraisalService) RejectDeletion(callerID, id uint) error {
	if err := s.requireDirector(callerID); err != nil {
		return err
	}

	appraisal, err := s.appraisalRepo.GetByID(id)
	if err != nil {
		return err
	}
	if appraisal == nil {
		return fmt.Errorf("appraisal not found")
	}
	if !appraisal.DeletionRequested {
		return fmt.Errorf("no deletion has been requested for this appraisal")
	}

	if err := s.appraisalRepo.UpdateDeletionRequest(id, false, nil); err != nil {
		return err
	}

	s.auditService.Log(callerID, "appraisal.reject_deletion", fmt.Sprintf("appraisal:%d", id), "")

	return nil
}

// DeletionRequests lists appraisals with a pending deletion request.
// Director only.
func (s *AppraisalService) DeletionRequests(callerID uint) ([]models.AppraisalWithNames, error) {
	if err := s.requireDirector(callerID); err != nil {
		return nil, err
	}
	return s.appraisalRepo.GetDeletionRequested()
}

// Score recomputes the full score breakdown from the stored document; the
// cached overall score is never returned
func (s *AppraisalService) Score(callerID, id uint) (*scoring.Result, error) {
	appraisal, err := s.appraisalRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if appraisal == nil {
		return nil, fmt.Errorf("appraisal not found")
	}
	if err := s.authorizeRead(callerID, appraisal); err != nil {
		return nil, err
	}

	appraisee, err := s.userRepo.GetByID(appraisal.AppraiseeID)
	if err != nil {
		return nil, fmt.Errorf("appraisee not found")
	}

	result := scoring.Total(&appraisal.Data, s.categoryFor(appraisee, appraisal.Role))
	return &result, nil
}

// Export renders the appraisal's scoresheet workbook. Readable by the same
// callers as Get.
func (s *AppraisalService) Export(callerID, id uint) (*bytes.Buffer, string, error) {
	appraisal, err := s.appraisalRepo.GetByIDWithNames(id)
	if err != nil {
		return nil, "", err
	}
	if appraisal == nil {
		return nil, "", fmt.Errorf("appraisal not found")
	}
	if err := s.authorizeRead(callerID, &appraisal.Appraisal); err != nil {
		return nil, "", err
	}

	appraisee, err := s.userRepo.GetByID(appraisal.AppraiseeID)
	if err != nil {
		return nil, "", fmt.Errorf("appraisee not found")
	}

	buf, err := export.Scoresheet(appraisal, s.categoryFor(appraisee, appraisal.Role))
	if err != nil {
		return nil, "", err
	}

	return buf, export.ScoresheetFilename(appraisal.AppraiseeName, appraisal.Term, appraisal.Year), nil
}

// SealInfo returns the sealed-scoresheet verification data for an appraisal
func (s *AppraisalService) SealInfo(callerID, id uint) (*SealInfo, error) {
	appraisal, err := s.appraisalRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if appraisal == nil {
		return nil, fmt.Errorf("appraisal not found")
	}
	if err := s.authorizeRead(callerID, appraisal); err != nil {
		return nil, err
	}
	if s.sealService == nil {
		return &SealInfo{Sealed: false}, nil
	}
	return s.sealService.Verify(id)
}

// loadForEdit loads an appraisal and its appraisee, rejecting callers other
// than the assigned appraiser
func (s *AppraisalService) loadForEdit(callerID, id uint) (*models.Appraisal, *models.User, error) {
	appraisal, err := s.appraisalRepo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	if appraisal == nil {
		return nil, nil, fmt.Errorf("appraisal not found")
	}
	if appraisal.AppraiserID != callerID {
		return nil, nil, fmt.Errorf("permission denied: you are not the appraiser of this appraisal")
	}

	appraisee, err := s.userRepo.GetByID(appraisal.AppraiseeID)
	if err != nil {
		return nil, nil, fmt.Errorf("appraisee not found")
	}

	return appraisal, appraisee, nil
}

func (s *AppraisalService) authorizeRead(callerID uint, appraisal *models.Appraisal) error {
	if appraisal.AppraiserID == callerID || appraisal.AppraiseeID == callerID {
		return nil
	}
	caller, err := s.userRepo.GetByID(callerID)
	if err != nil || !caller.IsDirector() {
		return fmt.Errorf("permission denied: not your appraisal")
	}
	return nil
}

func (s *AppraisalService) requireDirector(callerID uint) error {
	caller, err := s.userRepo.GetByID(callerID)
	if err != nil {
		return fmt.Errorf("permission denied: caller not found")
	}
	if !caller.IsDirector() || !caller.IsActive {
		return fmt.Errorf("permission denied: director role required")
	}
	return nil
}

func sameRole(a, b *models.StaffRole) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *AppraisalService) categoryFor(appraisee *models.User, role *models.StaffRole) models.JobCategory {
	if role != nil {
		return models.CategoryOf(*role)
	}
	return models.CategoryOf(appraisee.Role)
}

// seal writes the tamper-evident sealed scoresheet. Sealing failures do not
// undo the completed transition; the nightly chain validation flags gaps.
func (s *AppraisalService) seal(callerID, id uint, category models.JobCategory) {
	if s.sealService == nil {
		return
	}

	withNames, err := s.appraisalRepo.GetByIDWithNames(id)
	if err != nil || withNames == nil {
		slog.Error("Failed to load appraisal for sealing", "appraisal_id", id, "error", err)
		return
	}

	if _, err := s.sealService.Seal(withNames, category); err != nil {
		slog.Error("Failed to seal scoresheet", "appraisal_id", id, "error", err)
		return
	}

	s.auditService.Log(callerID, "appraisal.seal", fmt.Sprintf("appraisal:%d", id), "")
}

func (s *AppraisalService) notifyTransition(appraisal *models.Appraisal, appraisee *models.User, target models.AppraisalStatus) {
	appraiserName := ""
	if appraiser, err := s.userRepo.GetByID(appraisal.AppraiserID); err == nil {
		appraiserName = appraiser.FullName
	}

	if err := s.emailService.SendTransitionNotification(appraisee.Email, appraisee.FullName, appraiserName, appraisal.Term, appraisal.Year, target); err != nil {
		slog.Error("Failed to send transition notification", "appraisal_id", appraisal.ID, "error", err)
	}
}

func (s *AppraisalService) notifyDeletionRequest(appraisal *models.Appraisal, reason string) {
	directors, err := s.userRepo.GetByRoles([]models.StaffRole{models.RoleDirector})
	if err != nil {
		slog.Error("Failed to load directors for deletion notice", "error", err)
		return
	}

	appraiserName, appraiseeName := "", ""
	if appraiser, err := s.userRepo.GetByID(appraisal.AppraiserID); err == nil {
		appraiserName = appraiser.FullName
	}
	if appraisee, err := s.userRepo.GetByID(appraisal.AppraiseeID); err == nil {
		appraiseeName = appraisee.FullName
	}

	for _, director := range directors {
		if !director.IsActive || director.Email == "" {
			continue
		}
		if err := s.emailService.SendDeletionRequestNotification(director.Email, director.FullName, appraiserName, appraiseeName, reason); err != nil {
			slog.Error("Failed to send deletion request notice", "director_email", director.Email, "error", err)
		}
	}
}
