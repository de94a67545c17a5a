package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/middleware"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/repository"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/service"
)

// UserHandler handles staff account management. All mutating routes sit
// behind the director-only middleware.
type UserHandler struct {
	userService  *service.UserService
	auditService *service.AuditService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService, auditService *service.AuditService) *UserHandler {
	return &UserHandler{
		userService:  userService,
		auditService: auditService,
	}
}

// CreateUserRequest represents an account creation request
type CreateUserRequest struct {
	Email           string             `json:"email"`
	Password        string             `json:"password"`
	FullName        string             `json:"full_name"`
	Role            models.StaffRole   `json:"role"`
	AdditionalRoles []models.StaffRole `json:"additional_roles"`
}

// UpdateUserRequest represents an account update request
type UpdateUserRequest struct {
	Email           string             `json:"email"`
	FullName        string             `json:"full_name"`
	Role            models.StaffRole   `json:"role"`
	AdditionalRoles []models.StaffRole `json:"additional_roles"`
	IsActive        *bool              `json:"is_active"`
}

// List returns staff accounts with optional filters
// @Summary List users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search name or email"
// @Param role query string false "Filter by role"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{} "Users and total"
// @Router /users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := repository.UserFilters{
		Search:    q.Get("search"),
		Role:      models.StaffRole(q.Get("role")),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}
	if active := q.Get("is_active"); active != "" {
		v := active == "true"
		filters.IsActive = &v
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	users, total, err := h.userService.List(filters, limit, offset)
	if err != nil {
		slog.Error("Failed to list users", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": total,
	})
}

// Get returns one staff account
// @Summary Get user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} map[string]string "Not found"
// @Router /users/{id} [get]
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidUserID)
		return
	}

	user, err := h.userService.Get(id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}

// Create creates a staff account
// @Summary Create user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "Account details"
// @Success 201 {object} models.User
// @Failure 400 {object} map[string]string "Validation error"
// @Router /users [post]
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	user, err := h.userService.Create(service.CreateUserParams{
		Email:           req.Email,
		Password:        req.Password,
		FullName:        req.FullName,
		Role:            req.Role,
		AdditionalRoles: req.AdditionalRoles,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			respondWithError(w, http.StatusConflict, "A user with this email already exists")
			return
		}
		respondWithServiceError(w, err)
		return
	}

	if actorID, ok := middleware.GetUserID(r); ok {
		h.auditService.Log(actorID, "user.create", "users", user.Email)
	}

	respondWithJSON(w, http.StatusCreated, user)
}

// Update updates a staff account
// @Summary Update user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Account details"
// @Success 200 {object} models.User
// @Router /users/{id} [put]
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidUserID)
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	user, err := h.userService.Update(id, service.UpdateUserParams{
		Email:           req.Email,
		FullName:        req.FullName,
		Role:            req.Role,
		AdditionalRoles: req.AdditionalRoles,
		IsActive:        req.IsActive,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithServiceError(w, err)
		return
	}

	if actorID, ok := middleware.GetUserID(r); ok {
		h.auditService.Log(actorID, "user.update", "users", user.Email)
	}

	respondWithJSON(w, http.StatusOK, user)
}

// ResetPasswordRequest carries the replacement password for an account
type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// ResetPassword sets a new password and revokes the account's sessions
// @Summary Reset user password
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body ResetPasswordRequest true "New password"
// @Success 200 {object} map[string]string "Password reset"
// @Router /users/{id}/reset-password [post]
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidUserID)
		return
	}

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.userService.ResetPassword(id, req.Password); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithServiceError(w, err)
		return
	}

	if actorID, ok := middleware.GetUserID(r); ok {
		h.auditService.Log(actorID, "user.reset_password", "users", strconv.FormatUint(uint64(id), 10))
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Password reset"})
}

// Delete removes a staff account
// @Summary Delete user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string "Deleted"
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidUserID)
		return
	}

	if err := h.userService.Delete(id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithServiceError(w, err)
		return
	}

	if actorID, ok := middleware.GetUserID(r); ok {
		h.auditService.Log(actorID, "user.delete", "users", strconv.FormatUint(uint64(id), 10))
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}
