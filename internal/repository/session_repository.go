package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
)

// SessionRepository handles session database operations
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session
func (r *SessionRepository) Create(session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, jti, token_type, expires_at, last_activity_at, created_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(
		query,
		session.ID,
		session.UserID,
		session.JTI,
		session.TokenType,
		session.ExpiresAt,
		session.LastActivityAt,
		session.CreatedAt,
		session.IPAddress,
		session.UserAgent,
	)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByJTI retrieves an unexpired session by JTI
func (r *SessionRepository) GetByJTI(jti string) (*models.Session, error) {
	query := `
		SELECT id, user_id, jti, token_type, expires_at, last_activity_at, created_at, ip_address, user_agent
		FROM sessions
		WHERE jti = $1 AND expires_at > $2
	`

	session := &models.Session{}
	err := r.db.QueryRow(query, jti, time.Now()).Scan(
		&session.ID,
		&session.UserID,
		&session.JTI,
		&session.TokenType,
		&session.ExpiresAt,
		&session.LastActivityAt,
		&session.CreatedAt,
		&session.IPAddress,
		&session.UserAgent,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found or expired")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// UpdateLastActivity updates the last activity timestamp for a session
func (r *SessionRepository) UpdateLastActivity(sessionID string) error {
	_, err := r.db.Exec(`UPDATE sessions SET last_activity_at = $1 WHERE id = $2`, time.Now(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session activity: %w", err)
	}
	return nil
}

// DeleteByJTI deletes a session by JTI
func (r *SessionRepository) DeleteByJTI(jti string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE jti = $1`, jti)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteAllUserSessions deletes all sessions for a user
func (r *SessionRepository) DeleteAllUserSessions(userID uint) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpiredSessions deletes all expired sessions
func (r *SessionRepository) DeleteExpiredSessions() error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE expires_at < $1`, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}
