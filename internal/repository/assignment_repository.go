package repository

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
)

// AssignmentRepository handles appraiser assignment database operations.
// The table holds at most one row per (appraisee_id, role) key, where a
// NULL role is a distinct key from every named role.
type AssignmentRepository struct {
	db *sql.DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, appraisee_id, appraiser_id, role, created_at`

func scanAssignment(row interface{ Scan(...interface{}) error }) (*models.AppraiserAssignment, error) {
	a := &models.AppraiserAssignment{}
	var role sql.NullString
	err := row.Scan(&a.ID, &a.AppraiseeID, &a.AppraiserID, &role, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if role.Valid {
		r := models.StaffRole(role.String)
		a.Role = &r
	}
	return a, nil
}

// roleArg converts an optional role to a nullable query argument
func roleArg(role *models.StaffRole) interface{} {
	if role == nil {
		return nil
	}
	return string(*role)
}

// Assign replaces the assignment for the (appraisee, role) key. The delete
// runs before the insert inside one transaction so the uniqueness invariant
// holds even when two assigns race.
func (r *AssignmentRepository) Assign(appraiseeID, appraiserID uint, role *models.StaffRole) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("Failed to rollback transaction", "error", err)
		}
	}()

	if _, err := tx.Exec(deleteForKeySQL(role), keyArgs(appraiseeID, role)...); err != nil {
		return fmt.Errorf("failed to clear existing assignment: %w", err)
	}

	query := `
		INSERT INTO appraiser_assignments (appraisee_id, appraiser_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(query, appraiseeID, appraiserID, roleArg(role), time.Now()); err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	return tx.Commit()
}

// Remove deletes the assignment for the key; removing a missing row succeeds
func (r *AssignmentRepository) Remove(appraiseeID uint, role *models.StaffRole) error {
	if _, err := r.db.Exec(deleteForKeySQL(role), keyArgs(appraiseeID, role)...); err != nil {
		return fmt.Errorf("failed to remove assignment: %w", err)
	}
	return nil
}

func deleteForKeySQL(role *models.StaffRole) string {
	if role == nil {
		return `DELETE FROM appraiser_assignments WHERE appraisee_id = $1 AND role IS NULL`
	}
	return `DELETE FROM appraiser_assignments WHERE appraisee_id = $1 AND role = $2`
}

func keyArgs(appraiseeID uint, role *models.StaffRole) []interface{} {
	if role == nil {
		return []interface{}{appraiseeID}
	}
	return []interface{}{appraiseeID, string(*role)}
}

// GetForKey retrieves the assignment for an (appraisee, role) key
func (r *AssignmentRepository) GetForKey(appraiseeID uint, role *models.StaffRole) (*models.AppraiserAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM appraiser_assignments WHERE appraisee_id = $1 AND role IS NULL`
	args := []interface{}{appraiseeID}
	if role != nil {
		query = `SELECT ` + assignmentColumns + ` FROM appraiser_assignments WHERE appraisee_id = $1 AND role = $2`
		args = append(args, string(*role))
	}

	assignment, err := scanAssignment(r.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return assignment, nil
}

// GetAll retrieves every assignment
func (r *AssignmentRepository) GetAll() ([]models.AppraiserAssignment, error) {
	return r.query(`SELECT ` + assignmentColumns + ` FROM appraiser_assignments ORDER BY appraisee_id, role NULLS FIRST`)
}

// GetByAppraisee retrieves all assignments pointing at an appraisee
func (r *AssignmentRepository) GetByAppraisee(appraiseeID uint) ([]models.AppraiserAssignment, error) {
	return r.query(`SELECT `+assignmentColumns+` FROM appraiser_assignments WHERE appraisee_id = $1 ORDER BY role NULLS FIRST`, appraiseeID)
}

// GetByAppraiser retrieves all assignments held by an appraiser
func (r *AssignmentRepository) GetByAppraiser(appraiserID uint) ([]models.AppraiserAssignment, error) {
	return r.query(`SELECT `+assignmentColumns+` FROM appraiser_assignments WHERE appraiser_id = $1 ORDER BY appraisee_id`, appraiserID)
}

func (r *AssignmentRepository) query(query string, args ...interface{}) ([]models.AppraiserAssignment, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.AppraiserAssignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, *assignment)
	}

	return assignments, rows.Err()
}
