package service

import (
	"strings"
	"testing"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/config"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/email"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/repository"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/testutil"
)

func newAssignmentService(db *testutil.TestContainers) *AssignmentService {
	return NewAssignmentService(
		repository.NewAssignmentRepository(db.DB),
		repository.NewUserRepository(db.DB),
		email.NewService(&config.EmailConfig{Enabled: false}),
	)
}

// TestAssignReplacesExistingKey verifies that assigning a second appraiser
// for the same (appraisee, role) key replaces the first, leaving one row
func TestAssignReplacesExistingKey(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	assignmentService := newAssignmentService(containers)

	role := models.RoleTeachers
	if _, err := assignmentService.Assign(fixtures.Teacher.ID, fixtures.HeadOfPrimary.ID, &role); err != nil {
		t.Fatalf("First assign failed: %v", err)
	}
	if _, err := assignmentService.Assign(fixtures.Teacher.ID, fixtures.SchoolManager.ID, &role); err != nil {
		t.Fatalf("Second assign failed: %v", err)
	}

	var count int
	err := containers.DB.QueryRow(
		"SELECT COUNT(*) FROM appraiser_assignments WHERE appraisee_id = $1 AND role = $2",
		fixtures.Teacher.ID, string(role),
	).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count assignments: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly 1 assignment row for the key, got %d", count)
	}

	assignment, err := assignmentService.assignmentRepo.GetForKey(fixtures.Teacher.ID, &role)
	if err != nil {
		t.Fatalf("GetForKey failed: %v", err)
	}
	if assignment.AppraiserID != fixtures.SchoolManager.ID {
		t.Errorf("Expected the replacement appraiser %d, got %d", fixtures.SchoolManager.ID, assignment.AppraiserID)
	}
}

// TestAssignNullRoleIsDistinctKey verifies the primary (nil role) assignment
// and a named-role assignment coexist for the same appraisee
func TestAssignNullRoleIsDistinctKey(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	assignmentService := newAssignmentService(containers)

	// The fixture roster already assigns the head of primary as the
	// teacher's primary appraiser.
	role := models.RoleTeachers
	if _, err := assignmentService.Assign(fixtures.Teacher.ID, fixtures.SchoolManager.ID, &role); err != nil {
		t.Fatalf("Named-role assign failed: %v", err)
	}

	var count int
	err := containers.DB.QueryRow(
		"SELECT COUNT(*) FROM appraiser_assignments WHERE appraisee_id = $1",
		fixtures.Teacher.ID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count assignments: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 assignment rows (primary + named role), got %d", count)
	}

	primary, err := assignmentService.assignmentRepo.GetForKey(fixtures.Teacher.ID, nil)
	if err != nil {
		t.Fatalf("GetForKey for the primary assignment failed: %v", err)
	}
	if primary.AppraiserID != fixtures.HeadOfPrimary.ID {
		t.Errorf("Primary assignment changed unexpectedly: appraiser %d", primary.AppraiserID)
	}
}

func TestAssignRejectsSelfAppraisal(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	assignmentService := newAssignmentService(containers)

	_, err := assignmentService.Assign(fixtures.Teacher.ID, fixtures.Teacher.ID, nil)
	if err == nil {
		t.Fatal("Expected self-assignment to be rejected")
	}
	if !strings.Contains(err.Error(), "themself") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestRemoveMissingKeySucceeds(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	assignmentService := newAssignmentService(containers)

	role := models.RoleSecretary
	if err := assignmentService.Remove(fixtures.Teacher.ID, &role); err != nil {
		t.Errorf("Removing an absent assignment should succeed, got: %v", err)
	}
}
