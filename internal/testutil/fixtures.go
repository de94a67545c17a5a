package testutil

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
)

// Fixtures holds a minimal school staff roster covering every job category
type Fixtures struct {
	DB            *sql.DB
	Director      *models.User
	SchoolManager *models.User
	HeadOfPrimary *models.User
	Teacher       *models.User
	Secretary     *models.User
}

// SetupFixtures creates the staff roster and the default assignment chain:
// head of primary appraises the teacher, school manager appraises the
// secretary and the head, director appraises the school manager.
func SetupFixtures(t *testing.T, db *sql.DB) *Fixtures {
	t.Helper()

	f := &Fixtures{DB: db}
	f.Director = CreateUser(t, db, "director@school.test", "Grace Mwale", models.RoleDirector, nil)
	f.SchoolManager = CreateUser(t, db, "manager@school.test", "Peter Phiri", models.RoleSchoolManager, nil)
	f.HeadOfPrimary = CreateUser(t, db, "head.primary@school.test", "Mary Tembo", models.RoleHeadOfPrimary, nil)
	f.Teacher = CreateUser(t, db, "teacher@school.test", "Jane Banda", models.RoleTeachers, nil)
	f.Secretary = CreateUser(t, db, "secretary@school.test", "Alice Zulu", models.RoleSecretary, nil)

	CreateAssignment(t, db, f.Teacher.ID, f.HeadOfPrimary.ID, nil)
	CreateAssignment(t, db, f.Secretary.ID, f.SchoolManager.ID, nil)
	CreateAssignment(t, db, f.HeadOfPrimary.ID, f.SchoolManager.ID, nil)
	CreateAssignment(t, db, f.SchoolManager.ID, f.Director.ID, nil)

	return f
}

// CreateUser inserts an active staff account with password "password123"
func CreateUser(t *testing.T, db *sql.DB, email, fullName string, role models.StaffRole, additionalRoles []models.StaffRole) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	extra := make(pq.StringArray, 0, len(additionalRoles))
	for _, r := range additionalRoles {
		extra = append(extra, string(r))
	}

	user := &models.User{
		Email:           email,
		FullName:        fullName,
		Role:            role,
		AdditionalRoles: additionalRoles,
		Category:        models.CategoryOf(role),
		IsActive:        true,
	}

	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, full_name, role, additional_roles, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING id, created_at, updated_at
	`, email, string(hash), fullName, string(role), extra).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}

	return user
}

// CreateAssignment inserts an appraiser assignment row directly
func CreateAssignment(t *testing.T, db *sql.DB, appraiseeID, appraiserID uint, role *models.StaffRole) {
	t.Helper()

	var roleArg interface{}
	if role != nil {
		roleArg = string(*role)
	}

	if _, err := db.Exec(`
		INSERT INTO appraiser_assignments (appraisee_id, appraiser_id, role)
		VALUES ($1, $2, $3)
	`, appraiseeID, appraiserID, roleArg); err != nil {
		t.Fatalf("Failed to create assignment: %v", err)
	}
}

// CreateAppraisal inserts an appraisal row with the given document
func CreateAppraisal(t *testing.T, db *sql.DB, appraiserID, appraiseeID uint, role *models.StaffRole, status models.AppraisalStatus, data models.AppraisalData) *models.Appraisal {
	t.Helper()

	data.Normalize()

	var roleArg interface{}
	if role != nil {
		roleArg = string(*role)
	}

	appraisal := &models.Appraisal{
		AppraiserID: appraiserID,
		AppraiseeID: appraiseeID,
		Role:        role,
		Term:        data.Term,
		Year:        data.Year,
		Status:      status,
		Data:        data,
	}

	err := db.QueryRow(`
		INSERT INTO appraisals (appraiser_id, appraisee_id, role, term, year, status, appraisal_data, overall_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
		RETURNING id, created_at, updated_at
	`, appraiserID, appraiseeID, roleArg, data.Term, data.Year, string(status), data).Scan(
		&appraisal.ID, &appraisal.CreatedAt, &appraisal.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("Failed to create appraisal: %v", err)
	}

	return appraisal
}
