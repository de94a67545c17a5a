package service

import (
	"fmt"
	"log/slog"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/email"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/repository"
)

// AssignmentService maintains the appraiser-per-(appraisee, role) mapping.
// The hierarchy table drives the eligible-appraiser listing; the resolver
// itself only guarantees uniqueness of the key.
type AssignmentService struct {
	assignmentRepo *repository.AssignmentRepository
	userRepo       *repository.UserRepository
	emailService   *email.Service
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(assignmentRepo *repository.AssignmentRepository, userRepo *repository.UserRepository, emailService *email.Service) *AssignmentService {
	return &AssignmentService{
		assignmentRepo: assignmentRepo,
		userRepo:       userRepo,
		emailService:   emailService,
	}
}

// AssignmentEntry is one resolved assignment with display names
type AssignmentEntry struct {
	models.AppraiserAssignment
	RoleKey       string `json:"role_key"`
	AppraiseeName string `json:"appraisee_name"`
	AppraiserName string `json:"appraiser_name"`
}

// Assign sets the appraiser for an (appraisee, role) key, replacing any
// existing assignment for that key
func (s *AssignmentService) Assign(appraiseeID, appraiserID uint, role *models.StaffRole) (*models.AppraiserAssignment, error) {
	if appraiseeID == appraiserID {
		return nil, fmt.Errorf("a staff member cannot appraise themself")
	}

	appraisee, err := s.userRepo.GetByID(appraiseeID)
	if err != nil {
		return nil, fmt.Errorf("appraisee not found")
	}
	appraiser, err := s.userRepo.GetByID(appraiserID)
	if err != nil {
		return nil, fmt.Errorf("appraiser not found")
	}
	if !appraiser.IsActive {
		return nil, fmt.Errorf("appraiser account is inactive")
	}

	appraisedRole := appraisee.Role
	if role != nil {
		if !models.IsValidStaffRole(string(*role)) {
			return nil, fmt.Errorf("invalid staff role: %s", *role)
		}
		found := false
		for _, r := range appraisee.AppraisableRoles() {
			if r == *role {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%s does not hold the role %s", appraisee.FullName, *role)
		}
		appraisedRole = *role
	}

	// Eligibility is advisory here; the hierarchy is enforced by the
	// eligible-appraiser listing the UI assigns from.
	eligible := false
	for _, r := range models.EligibleAppraiserRoles(appraisedRole) {
		if r == appraiser.Role {
			eligible = true
			break
		}
	}
	if !eligible {
		slog.Warn("Assigning appraiser outside the hierarchy",
			"appraisee_id", appraiseeID,
			"appraiser_id", appraiserID,
			"appraised_role", appraisedRole,
			"appraiser_role", appraiser.Role,
		)
	}

	if err := s.assignmentRepo.Assign(appraiseeID, appraiserID, role); err != nil {
		return nil, err
	}

	assignment, err := s.assignmentRepo.GetForKey(appraiseeID, role)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		// Removed between the write and the read-back.
		return nil, fmt.Errorf("assignment not found")
	}

	if err := s.emailService.SendAssignmentNotification(appraiser.Email, appraiser.FullName, appraisee.FullName, assignment.RoleKey()); err != nil {
		slog.Error("Failed to send assignment notification", "appraiser_email", appraiser.Email, "error", err)
	}

	return assignment, nil
}

// Remove deletes the assignment for an (appraisee, role) key. Removing a
// key that has no assignment succeeds.
func (s *AssignmentService) Remove(appraiseeID uint, role *models.StaffRole) error {
	return s.assignmentRepo.Remove(appraiseeID, role)
}

// List returns the full assignment mapping with display names
func (s *AssignmentService) List() ([]AssignmentEntry, error) {
	assignments, err := s.assignmentRepo.GetAll()
	if err != nil {
		return nil, err
	}
	return s.withNames(assignments)
}

// EligibleAppraisers returns the active users allowed by the hierarchy to
// appraise the given role, excluding the appraisee. An empty result is a
// valid state for roles outside the hierarchy.
func (s *AssignmentService) EligibleAppraisers(role models.StaffRole, appraiseeID uint) ([]models.User, error) {
	if !models.IsValidStaffRole(string(role)) {
		return nil, fmt.Errorf("invalid staff role: %s", role)
	}

	eligibleRoles := models.EligibleAppraiserRoles(role)
	if len(eligibleRoles) == 0 {
		return []models.User{}, nil
	}

	candidates, err := s.userRepo.GetByRoles(eligibleRoles)
	if err != nil {
		return nil, err
	}

	var active []models.User
	for _, u := range candidates {
		if u.IsActive {
			active = append(active, u)
		}
	}

	return models.EligibleAppraisers(role, appraiseeID, active), nil
}

// MyAppraisees returns the assignments where the user is the appraiser
func (s *AssignmentService) MyAppraisees(appraiserID uint) ([]AssignmentEntry, error) {
	assignments, err := s.assignmentRepo.GetByAppraiser(appraiserID)
	if err != nil {
		return nil, err
	}
	return s.withNames(assignments)
}

// MyAppraiser returns the assignments where the user is the appraisee, one
// per role variant
func (s *AssignmentService) MyAppraiser(appraiseeID uint) ([]AssignmentEntry, error) {
	assignments, err := s.assignmentRepo.GetByAppraisee(appraiseeID)
	if err != nil {
		return nil, err
	}
	return s.withNames(assignments)
}

// withNames resolves display names for a batch of assignments, caching user
// lookups within the batch
func (s *AssignmentService) withNames(assignments []models.AppraiserAssignment) ([]AssignmentEntry, error) {
	names := make(map[uint]string)
	lookup := func(id uint) string {
		if name, ok := names[id]; ok {
			return name
		}
		name := ""
		if user, err := s.userRepo.GetByID(id); err == nil {
			name = user.FullName
		}
		names[id] = name
		return name
	}

	entries := make([]AssignmentEntry, 0, len(assignments))
	for _, a := range assignments {
		entries = append(entries, AssignmentEntry{
			AppraiserAssignment: a,
			RoleKey:             a.RoleKey(),
			AppraiseeName:       lookup(a.AppraiseeID),
			AppraiserName:       lookup(a.AppraiserID),
		})
	}

	return entries, nil
}
