package models

import (
	"time"
)

// User represents a staff member account
type User struct {
	ID              uint        `json:"id" db:"id"`
	Email           string      `json:"email" db:"email"`
	PasswordHash    string      `json:"-" db:"password_hash"`
	FullName        string      `json:"full_name" db:"full_name"`
	Role            StaffRole   `json:"role" db:"role"`
	AdditionalRoles []StaffRole `json:"additional_roles,omitempty" db:"additional_roles"`
	Category        JobCategory `json:"category" db:"category"`
	IsActive        bool        `json:"is_active" db:"is_active"`
	LastLoginAt     *time.Time  `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// IsDirector reports whether the account carries director privileges.
func (u *User) IsDirector() bool {
	return u.Role == RoleDirector
}

// AppraisableRoles returns the primary role plus any additional role
// variants; each variant is appraised under its own assignment key.
func (u *User) AppraisableRoles() []StaffRole {
	roles := []StaffRole{u.Role}
	for _, r := range u.AdditionalRoles {
		if r != u.Role {
			roles = append(roles, r)
		}
	}
	return roles
}

// AppraiserAssignment maps an appraisee (and optionally one of their role
// variants) to exactly one appraiser. A NULL role is a distinct key from any
// named role: it is the primary assignment of a single-role user.
type AppraiserAssignment struct {
	ID          uint       `json:"id" db:"id"`
	AppraiseeID uint       `json:"appraisee_id" db:"appraisee_id"`
	AppraiserID uint       `json:"appraiser_id" db:"appraiser_id"`
	Role        *StaffRole `json:"role,omitempty" db:"role"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// RoleKey renders the assignment's role key for maps and display. The
// "PRIMARY" fallback is display only; persistence keeps NULL.
func (a *AppraiserAssignment) RoleKey() string {
	if a.Role == nil {
		return "PRIMARY"
	}
	return string(*a.Role)
}

// AppraisalStatus is the workflow state of one appraisal. Statuses form a
// single forward sequence; "is stage X done" means the status is at or past
// X in that sequence.
type AppraisalStatus string

const (
	StatusDraft                AppraisalStatus = "DRAFT"
	StatusTargetsSet           AppraisalStatus = "TARGETS_SET"
	StatusObservationSubmitted AppraisalStatus = "OBSERVATION_SUBMITTED"
	StatusEvaluationSubmitted  AppraisalStatus = "EVALUATION_SUBMITTED"
	StatusTargetsSubmitted     AppraisalStatus = "TARGETS_SUBMITTED"
	StatusCompleted            AppraisalStatus = "COMPLETED"
)

// statusOrder fixes the forward sequence of workflow statuses.
var statusOrder = []AppraisalStatus{
	StatusDraft,
	StatusTargetsSet,
	StatusObservationSubmitted,
	StatusEvaluationSubmitted,
	StatusTargetsSubmitted,
	StatusCompleted,
}

// Index returns the position of the status in the forward sequence, or -1
// for an unknown status.
func (s AppraisalStatus) Index() int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// IsValid reports whether the status is one of the closed enum values.
func (s AppraisalStatus) IsValid() bool {
	return s.Index() >= 0
}

// AtLeast reports whether the status has reached the given stage, i.e. the
// named state or any later state holds.
func (s AppraisalStatus) AtLeast(stage AppraisalStatus) bool {
	si, ti := s.Index(), stage.Index()
	return si >= 0 && ti >= 0 && si >= ti
}

// IsTargetsSet reports whether target setting has been signed off.
func (s AppraisalStatus) IsTargetsSet() bool { return s.AtLeast(StatusTargetsSet) }

// IsObservationSubmitted reports whether observations have been submitted.
func (s AppraisalStatus) IsObservationSubmitted() bool { return s.AtLeast(StatusObservationSubmitted) }

// IsEvaluationSubmitted reports whether the evaluation has been submitted.
func (s AppraisalStatus) IsEvaluationSubmitted() bool { return s.AtLeast(StatusEvaluationSubmitted) }

// IsTargetsSubmitted reports whether target review has been submitted.
func (s AppraisalStatus) IsTargetsSubmitted() bool { return s.AtLeast(StatusTargetsSubmitted) }

// IsCompleted reports whether the appraisal is complete.
func (s AppraisalStatus) IsCompleted() bool { return s.AtLeast(StatusCompleted) }

// Appraisal is one periodic appraisal of an appraisee by an appraiser for a
// term and year. The appraisal_data document is the source of truth; the
// overall score is a cache recomputed on every save.
type Appraisal struct {
	ID                uint            `json:"id" db:"id"`
	AppraiserID       uint            `json:"appraiser_id" db:"appraiser_id"`
	AppraiseeID       uint            `json:"appraisee_id" db:"appraisee_id"`
	Role              *StaffRole      `json:"role,omitempty" db:"role"`
	Term              string          `json:"term" db:"term"`
	Year              string          `json:"year" db:"year"`
	Status            AppraisalStatus `json:"status" db:"status"`
	Data              AppraisalData   `json:"appraisal_data" db:"appraisal_data"`
	OverallScore      float64         `json:"overall_score" db:"overall_score"`
	DeletionRequested bool            `json:"deletion_requested" db:"deletion_requested"`
	DeletionReason    *string         `json:"deletion_reason,omitempty" db:"deletion_reason"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// AppraisedRole resolves the role variant this appraisal evaluates, falling
// back to the appraisee's primary role when the variant is NULL.
func (a *Appraisal) AppraisedRole(appraisee *User) StaffRole {
	if a.Role != nil {
		return *a.Role
	}
	return appraisee.Role
}

// AppraisalWithNames augments an appraisal with display names for listings.
type AppraisalWithNames struct {
	Appraisal
	AppraiserName string `json:"appraiser_name,omitempty"`
	AppraiseeName string `json:"appraisee_name,omitempty"`
}

// AuditLog records a security- or workflow-relevant action.
type AuditLog struct {
	ID        uint      `json:"id" db:"id"`
	UserID    *uint     `json:"user_id,omitempty" db:"user_id"`
	Action    string    `json:"action" db:"action"`
	Resource  string    `json:"resource" db:"resource"`
	Details   string    `json:"details,omitempty" db:"details"`
	IPAddress string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent string    `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Session represents an issued token pair member, keyed by JTI so tokens
// can be invalidated server side.
type Session struct {
	ID             string    `json:"id" db:"id"`
	UserID         uint      `json:"user_id" db:"user_id"`
	JTI            string    `json:"jti" db:"jti"`
	TokenType      string    `json:"token_type" db:"token_type"` // "access" or "refresh"
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at" db:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	IPAddress      string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent      string    `json:"user_agent,omitempty" db:"user_agent"`
}
