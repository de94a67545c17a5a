package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
)

var ErrAppraisalExists = errors.New("appraisal already exists for this appraisee, role, term and year")

// AppraisalRepository handles appraisal database operations
type AppraisalRepository struct {
	db *sql.DB
}

// NewAppraisalRepository creates a new appraisal repository
func NewAppraisalRepository(db *sql.DB) *AppraisalRepository {
	return &AppraisalRepository{db: db}
}

const appraisalColumns = `id, appraiser_id, appraisee_id, role, term, year, status, appraisal_data,
	       overall_score, deletion_requested, deletion_reason, created_at, updated_at, completed_at`

func scanAppraisal(row interface{ Scan(...interface{}) error }) (*models.Appraisal, error) {
	a := &models.Appraisal{}
	var role sql.NullString
	err := row.Scan(
		&a.ID,
		&a.AppraiserID,
		&a.AppraiseeID,
		&role,
		&a.Term,
		&a.Year,
		&a.Status,
		&a.Data,
		&a.OverallScore,
		&a.DeletionRequested,
		&a.DeletionReason,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if role.Valid {
		r := models.StaffRole(role.String)
		a.Role = &r
	}
	return a, nil
}

// Create creates a new appraisal
func (r *AppraisalRepository) Create(appraisal *models.Appraisal) error {
	query := `
		INSERT INTO appraisals (appraiser_id, appraisee_id, role, term, year, status, appraisal_data, overall_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(
		query,
		appraisal.AppraiserID,
		appraisal.AppraiseeID,
		roleArg(appraisal.Role),
		appraisal.Term,
		appraisal.Year,
		appraisal.Status,
		appraisal.Data,
		appraisal.OverallScore,
		now,
		now,
	).Scan(&appraisal.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrAppraisalExists
		}
		return fmt.Errorf("failed to create appraisal: %w", err)
	}

	appraisal.CreatedAt = now
	appraisal.UpdatedAt = now
	return nil
}

// GetByID retrieves an appraisal by ID
func (r *AppraisalRepository) GetByID(id uint) (*models.Appraisal, error) {
	query := `SELECT ` + appraisalColumns + ` FROM appraisals WHERE id = $1`

	appraisal, err := scanAppraisal(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appraisal: %w", err)
	}

	return appraisal, nil
}

// GetByKey retrieves the appraisal for an (appraisee, role, term, year) key
// held by a specific appraiser
func (r *AppraisalRepository) GetByKey(appraiserID, appraiseeID uint, role *models.StaffRole, term, year string) (*models.Appraisal, error) {
	query := `
		SELECT ` + appraisalColumns + `
		FROM appraisals
		WHERE appraiser_id = $1 AND appraisee_id = $2 AND COALESCE(role, '') = COALESCE($3, '') AND term = $4 AND year = $5
	`

	appraisal, err := scanAppraisal(r.db.QueryRow(query, appraiserID, appraiseeID, roleArg(role), term, year))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appraisal by key: %w", err)
	}

	return appraisal, nil
}

// Update persists the document, status and cached score of an appraisal
func (r *AppraisalRepository) Update(appraisal *models.Appraisal) error {
	query := `
		UPDATE appraisals
		SET status = $1, appraisal_data = $2, overall_score = $3, completed_at = $4, updated_at = $5
		WHERE id = $6
	`

	appraisal.UpdatedAt = time.Now()
	_, err := r.db.Exec(
		query,
		appraisal.Status,
		appraisal.Data,
		appraisal.OverallScore,
		appraisal.CompletedAt,
		appraisal.UpdatedAt,
		appraisal.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update appraisal: %w", err)
	}

	return nil
}

// UpdateDeletionRequest sets or clears the deletion request flag
func (r *AppraisalRepository) UpdateDeletionRequest(id uint, requested bool, reason *string) error {
	query := `
		UPDATE appraisals
		SET deletion_requested = $1, deletion_reason = $2, updated_at = $3
		WHERE id = $4
	`

	_, err := r.db.Exec(query, requested, reason, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update deletion request: %w", err)
	}

	return nil
}

// Delete removes an appraisal
func (r *AppraisalRepository) Delete(id uint) error {
	_, err := r.db.Exec(`DELETE FROM appraisals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appraisal: %w", err)
	}
	return nil
}

const appraisalWithNamesQuery = `
	SELECT a.id, a.appraiser_id, a.appraisee_id, a.role, a.term, a.year, a.status, a.appraisal_data,
	       a.overall_score, a.deletion_requested, a.deletion_reason, a.created_at, a.updated_at, a.completed_at,
	       COALESCE(appraiser.full_name, ''), appraisee.full_name
	FROM appraisals a
	LEFT JOIN users appraiser ON appraiser.id = a.appraiser_id
	JOIN users appraisee ON appraisee.id = a.appraisee_id
`

func (r *AppraisalRepository) queryWithNames(query string, args ...interface{}) ([]models.AppraisalWithNames, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get appraisals: %w", err)
	}
	defer rows.Close()

	var appraisals []models.AppraisalWithNames
	for rows.Next() {
		var a models.AppraisalWithNames
		var role sql.NullString
		if err := rows.Scan(
			&a.ID,
			&a.AppraiserID,
			&a.AppraiseeID,
			&role,
			&a.Term,
			&a.Year,
			&a.Status,
			&a.Data,
			&a.OverallScore,
			&a.DeletionRequested,
			&a.DeletionReason,
			&a.CreatedAt,
			&a.UpdatedAt,
			&a.CompletedAt,
			&a.AppraiserName,
			&a.AppraiseeName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan appraisal: %w", err)
		}
		if role.Valid {
			rv := models.StaffRole(role.String)
			a.Role = &rv
		}
		appraisals = append(appraisals, a)
	}

	return appraisals, rows.Err()
}

// GetByIDWithNames retrieves one appraisal with display names, or nil when
// it does not exist
func (r *AppraisalRepository) GetByIDWithNames(id uint) (*models.AppraisalWithNames, error) {
	appraisals, err := r.queryWithNames(appraisalWithNamesQuery+` WHERE a.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(appraisals) == 0 {
		return nil, nil
	}
	return &appraisals[0], nil
}

// GetAll retrieves every appraisal with display names, newest first
func (r *AppraisalRepository) GetAll() ([]models.AppraisalWithNames, error) {
	return r.queryWithNames(appraisalWithNamesQuery + ` ORDER BY a.created_at DESC`)
}

// GetForUser retrieves appraisals where the user is appraiser or appraisee
func (r *AppraisalRepository) GetForUser(userID uint) ([]models.AppraisalWithNames, error) {
	return r.queryWithNames(appraisalWithNamesQuery+` WHERE a.appraiser_id = $1 OR a.appraisee_id = $1 ORDER BY a.created_at DESC`, userID)
}

// GetByAppraiser retrieves appraisals conducted by an appraiser
func (r *AppraisalRepository) GetByAppraiser(appraiserID uint) ([]models.AppraisalWithNames, error) {
	return r.queryWithNames(appraisalWithNamesQuery+` WHERE a.appraiser_id = $1 ORDER BY a.created_at DESC`, appraiserID)
}

// GetDeletionRequested retrieves appraisals with a pending deletion request
func (r *AppraisalRepository) GetDeletionRequested() ([]models.AppraisalWithNames, error) {
	return r.queryWithNames(appraisalWithNamesQuery + ` WHERE a.deletion_requested = true ORDER BY a.updated_at`)
}

// GetStaleDrafts retrieves drafts not touched since the cutoff, used by the
// reminder job
func (r *AppraisalRepository) GetStaleDrafts(cutoff time.Time) ([]models.AppraisalWithNames, error) {
	return r.queryWithNames(appraisalWithNamesQuery+` WHERE a.status = $1 AND a.updated_at < $2 ORDER BY a.updated_at`, models.StatusDraft, cutoff)
}

// GetCompleted retrieves completed appraisals ordered by completion time,
// used when validating the sealed scoresheet chain
func (r *AppraisalRepository) GetCompleted() ([]models.AppraisalWithNames, error) {
	return r.queryWithNames(appraisalWithNamesQuery+` WHERE a.status = $1 ORDER BY a.completed_at`, models.StatusCompleted)
}
