package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// UserRepository handles user database operations
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, full_name, role, additional_roles, is_active, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	var additional pq.StringArray
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.Role,
		&additional,
		&user.IsActive,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, r := range additional {
		user.AdditionalRoles = append(user.AdditionalRoles, models.StaffRole(r))
	}
	user.Category = models.CategoryOf(user.Role)
	return user, nil
}

func rolesArray(roles []models.StaffRole) pq.StringArray {
	arr := make(pq.StringArray, 0, len(roles))
	for _, r := range roles {
		arr = append(arr, string(r))
	}
	return arr
}

// Create creates a new user
func (r *UserRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, full_name, role, additional_roles, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(
		query,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Role,
		rolesArray(user.AdditionalRoles),
		user.IsActive,
		now,
		now,
	).Scan(&user.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.Category = models.CategoryOf(user.Role)
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRow(query, email))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// Update updates a user's profile and role fields
func (r *UserRepository) Update(user *models.User) error {
	query := `
		UPDATE users
		SET email = $1, full_name = $2, role = $3, additional_roles = $4, is_active = $5, updated_at = $6
		WHERE id = $7
	`

	user.UpdatedAt = time.Now()
	_, err := r.db.Exec(
		query,
		user.Email,
		user.FullName,
		user.Role,
		rolesArray(user.AdditionalRoles),
		user.IsActive,
		user.UpdatedAt,
		user.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	user.Category = models.CategoryOf(user.Role)
	return nil
}

// UpdatePassword updates a user's password
func (r *UserRepository) UpdatePassword(userID uint, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`

	_, err := r.db.Exec(query, passwordHash, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// UpdateLastLogin updates the last login timestamp
func (r *UserRepository) UpdateLastLogin(userID uint) error {
	query := `UPDATE users SET last_login_at = $1, updated_at = $2 WHERE id = $3`

	now := time.Now()
	_, err := r.db.Exec(query, now, now, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

// UpdateActiveStatus updates the is_active status of a user
func (r *UserRepository) UpdateActiveStatus(userID uint, isActive bool) error {
	query := `UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`

	_, err := r.db.Exec(query, isActive, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update active status: %w", err)
	}

	return nil
}

// Delete deletes a user
func (r *UserRepository) Delete(id uint) error {
	_, err := r.db.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// UserFilters holds filter parameters for user queries
type UserFilters struct {
	Search    string
	Role      models.StaffRole
	IsActive  *bool
	SortBy    string
	SortOrder string
}

// GetAll retrieves users with filtering, sorting and pagination
func (r *UserRepository) GetAll(filters UserFilters, limit, offset int) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`

	args := []interface{}{}
	argPos := 1

	if filters.Search != "" {
		query += fmt.Sprintf(` AND (email ILIKE $%d OR full_name ILIKE $%d)`, argPos, argPos)
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}

	// Role filter matches the primary role or any additional role variant
	if filters.Role != "" {
		query += fmt.Sprintf(` AND (role = $%d OR $%d = ANY(additional_roles))`, argPos, argPos)
		args = append(args, string(filters.Role))
		argPos++
	}

	if filters.IsActive != nil {
		query += fmt.Sprintf(` AND is_active = $%d`, argPos)
		args = append(args, *filters.IsActive)
		argPos++
	}

	sortColumn := "created_at"
	switch filters.SortBy {
	case "id":
		sortColumn = "id"
	case "email":
		sortColumn = "email"
	case "name":
		sortColumn = "full_name"
	case "role":
		sortColumn = "role"
	}
	sortOrder := "DESC"
	if filters.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	query += fmt.Sprintf(` ORDER BY %s %s LIMIT $%d OFFSET $%d`, sortColumn, sortOrder, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}

	return users, rows.Err()
}

// GetByRoles retrieves active users whose primary or additional roles
// intersect the given set
func (r *UserRepository) GetByRoles(roles []models.StaffRole) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE is_active = true AND (role = ANY($1) OR additional_roles && $1)
		ORDER BY full_name
	`

	rows, err := r.db.Query(query, rolesArray(roles))
	if err != nil {
		return nil, fmt.Errorf("failed to get users by roles: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}

	return users, rows.Err()
}

// CountAll returns the total number of users
func (r *UserRepository) CountAll() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// CountActiveDirectors returns the number of active director accounts
func (r *UserRepository) CountActiveDirectors() (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE is_active = true AND role = $1`

	var count int
	if err := r.db.QueryRow(query, models.RoleDirector).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active directors: %w", err)
	}
	return count, nil
}
