package service

import (
	"fmt"
	"strings"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/auth"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/repository"
)

// UserService manages staff accounts. All mutating operations are reserved
// for directors; the router enforces that, the service enforces the
// remaining account-level rules.
type UserService struct {
	userRepo    *repository.UserRepository
	sessionRepo *repository.SessionRepository
	authService *auth.Service
}

// NewUserService creates a new user service
func NewUserService(userRepo *repository.UserRepository, sessionRepo *repository.SessionRepository, authService *auth.Service) *UserService {
	return &UserService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		authService: authService,
	}
}

// CreateUserParams are the fields accepted when creating an account
type CreateUserParams struct {
	Email           string
	Password        string
	FullName        string
	Role            models.StaffRole
	AdditionalRoles []models.StaffRole
}

// UpdateUserParams are the fields accepted when updating an account
type UpdateUserParams struct {
	Email           string
	FullName        string
	Role            models.StaffRole
	AdditionalRoles []models.StaffRole
	IsActive        *bool
}

func validateRoles(role models.StaffRole, additional []models.StaffRole) error {
	if !models.IsValidStaffRole(string(role)) {
		return fmt.Errorf("invalid staff role: %s", role)
	}
	for _, r := range additional {
		if !models.IsValidStaffRole(string(r)) {
			return fmt.Errorf("invalid additional role: %s", r)
		}
		if r == role {
			return fmt.Errorf("additional role %s duplicates the primary role", r)
		}
	}
	return nil
}

// Create creates a new staff account
func (s *UserService) Create(params CreateUserParams) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("a valid email address is required")
	}
	if strings.TrimSpace(params.FullName) == "" {
		return nil, fmt.Errorf("full name is required")
	}
	if len(params.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters long")
	}
	if err := validateRoles(params.Role, params.AdditionalRoles); err != nil {
		return nil, err
	}

	hash, err := s.authService.HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:           email,
		PasswordHash:    hash,
		FullName:        strings.TrimSpace(params.FullName),
		Role:            params.Role,
		AdditionalRoles: params.AdditionalRoles,
		Category:        models.CategoryOf(params.Role),
		IsActive:        true,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	return user, nil
}

// Get retrieves an account by id
func (s *UserService) Get(id uint) (*models.User, error) {
	return s.userRepo.GetByID(id)
}

// List retrieves accounts matching the filters
func (s *UserService) List(filters repository.UserFilters, limit, offset int) ([]models.User, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.userRepo.GetAll(filters, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.userRepo.CountAll()
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Update updates an account. Deactivating or demoting the last active
// director is refused so the system always keeps one privileged account.
func (s *UserService) Update(id uint, params UpdateUserParams) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := validateRoles(params.Role, params.AdditionalRoles); err != nil {
		return nil, err
	}

	losesDirector := user.IsDirector() && params.Role != models.RoleDirector
	deactivated := params.IsActive != nil && !*params.IsActive && user.IsActive
	if (losesDirector || deactivated) && user.IsDirector() {
		count, err := s.userRepo.CountActiveDirectors()
		if err != nil {
			return nil, err
		}
		if count <= 1 {
			return nil, fmt.Errorf("cannot remove the last active director")
		}
	}

	if email := strings.ToLower(strings.TrimSpace(params.Email)); email != "" {
		user.Email = email
	}
	if name := strings.TrimSpace(params.FullName); name != "" {
		user.FullName = name
	}
	user.Role = params.Role
	user.AdditionalRoles = params.AdditionalRoles
	user.Category = models.CategoryOf(params.Role)
	if params.IsActive != nil {
		user.IsActive = *params.IsActive
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	// A deactivated account must not keep working tokens
	if deactivated {
		if err := s.sessionRepo.DeleteAllUserSessions(user.ID); err != nil {
			return nil, fmt.Errorf("failed to revoke sessions: %w", err)
		}
	}

	return user, nil
}

// ResetPassword sets a new password and revokes all sessions
func (s *UserService) ResetPassword(id uint, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	if _, err := s.userRepo.GetByID(id); err != nil {
		return err
	}

	hash, err := s.authService.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(id, hash); err != nil {
		return err
	}

	return s.sessionRepo.DeleteAllUserSessions(id)
}

// Delete removes an account. Assignments and appraisals where the account is
// the appraisee go with it; appraisals it conducted keep the appraiser id
// for history. The last active director cannot be deleted.
func (s *UserService) Delete(id uint) error {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return err
	}

	if user.IsDirector() && user.IsActive {
		count, err := s.userRepo.CountActiveDirectors()
		if err != nil {
			return err
		}
		if count <= 1 {
			return fmt.Errorf("cannot remove the last active director")
		}
	}

	if err := s.sessionRepo.DeleteAllUserSessions(id); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	return s.userRepo.Delete(id)
}
