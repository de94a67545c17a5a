package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create creates a new audit log entry
func (r *AuditRepository) Create(log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (user_id, action, resource, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRow(
		query,
		log.UserID,
		log.Action,
		log.Resource,
		log.Details,
		log.IPAddress,
		log.UserAgent,
		time.Now(),
	).Scan(&log.ID)

	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}

// AuditFilters narrows audit log queries
type AuditFilters struct {
	UserID   *uint
	Action   string
	Resource string
}

// GetAll retrieves audit logs matching the filters, newest first
func (r *AuditRepository) GetAll(filters AuditFilters, limit, offset int) ([]models.AuditLog, error) {
	query := `
		SELECT id, user_id, action, resource, details, ip_address, user_agent, created_at
		FROM audit_logs
		WHERE 1=1
	`

	args := []interface{}{}
	argPos := 1

	if filters.UserID != nil {
		query += fmt.Sprintf(` AND user_id = $%d`, argPos)
		args = append(args, *filters.UserID)
		argPos++
	}
	if filters.Action != "" {
		query += fmt.Sprintf(` AND action = $%d`, argPos)
		args = append(args, filters.Action)
		argPos++
	}
	if filters.Resource != "" {
		query += fmt.Sprintf(` AND resource = $%d`, argPos)
		args = append(args, filters.Resource)
		argPos++
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var log models.AuditLog
		if err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.Action,
			&log.Resource,
			&log.Details,
			&log.IPAddress,
			&log.UserAgent,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}
