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

func newTestAppraisalService(db *testutil.TestContainers) *AppraisalService {
	emailService := email.NewService(&config.EmailConfig{Enabled: false})
	return NewAppraisalService(
		repository.NewAppraisalRepository(db.DB),
		repository.NewAssignmentRepository(db.DB),
		repository.NewUserRepository(db.DB),
		NewAuditService(repository.NewAuditRepository(db.DB)),
		emailService,
		nil,
	)
}

// TestReassignedAppraiserStartsOwnAppraisal verifies that after the
// appraiser for a key changes mid-term, the new appraiser's first save
// creates their own appraisal instead of colliding with the old one
func TestReassignedAppraiserStartsOwnAppraisal(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	appraisalService := newTestAppraisalService(containers)
	assignmentRepo := repository.NewAssignmentRepository(containers.DB)

	params := SaveParams{
		AppraiseeID: fixtures.Teacher.ID,
		Data:        models.AppraisalData{Term: "Term 1", Year: "2026"},
	}
	first, err := appraisalService.Save(fixtures.HeadOfPrimary.ID, params)
	if err != nil {
		t.Fatalf("First appraiser failed to save: %v", err)
	}

	if err := assignmentRepo.Assign(fixtures.Teacher.ID, fixtures.SchoolManager.ID, nil); err != nil {
		t.Fatalf("Failed to reassign the appraiser: %v", err)
	}

	second, err := appraisalService.Save(fixtures.SchoolManager.ID, params)
	if err != nil {
		t.Fatalf("Reassigned appraiser failed to save: %v", err)
	}
	if second.ID == first.ID {
		t.Error("Reassigned appraiser updated the old appraiser's appraisal")
	}
	if second.AppraiserID != fixtures.SchoolManager.ID {
		t.Errorf("Expected appraiser %d on the new appraisal, got %d", fixtures.SchoolManager.ID, second.AppraiserID)
	}

	var count int
	err = containers.DB.QueryRow(
		"SELECT COUNT(*) FROM appraisals WHERE appraisee_id = $1 AND term = $2 AND year = $3",
		fixtures.Teacher.ID, "Term 1", "2026",
	).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count appraisals: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 appraisals (one per appraiser), got %d", count)
	}
}

// TestTransitionRejectsBackwardTarget verifies that the normal transition
// path never moves an appraisal to an earlier status and leaves the record
// untouched when it refuses
func TestTransitionRejectsBackwardTarget(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	appraisalService := newTestAppraisalService(containers)

	data := models.AppraisalData{Term: "Term 1", Year: "2026"}
	appraisal := testutil.CreateAppraisal(t, containers.DB,
		fixtures.HeadOfPrimary.ID, fixtures.Teacher.ID, nil,
		models.StatusEvaluationSubmitted, data)

	_, err := appraisalService.Transition(fixtures.HeadOfPrimary.ID, appraisal.ID, models.StatusTargetsSet, nil)
	if err == nil {
		t.Fatal("Expected a backward transition to be rejected")
	}
	if !strings.Contains(err.Error(), "cannot transition from") {
		t.Errorf("Unexpected error message: %v", err)
	}

	reloaded, err := repository.NewAppraisalRepository(containers.DB).GetByID(appraisal.ID)
	if err != nil {
		t.Fatalf("Failed to reload the appraisal: %v", err)
	}
	if reloaded.Status != models.StatusEvaluationSubmitted {
		t.Errorf("Status changed despite the rejection: %s", reloaded.Status)
	}
}

// TestSaveRejectsMismatchedAppraisee verifies that a save addressed by id
// cannot write another appraisee's document onto the record
func TestSaveRejectsMismatchedAppraisee(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	appraisalService := newTestAppraisalService(containers)

	data := models.AppraisalData{Term: "Term 1", Year: "2026"}
	secretaryAppraisal := testutil.CreateAppraisal(t, containers.DB,
		fixtures.HeadOfPrimary.ID, fixtures.Secretary.ID, nil,
		models.StatusDraft, data)

	_, err := appraisalService.Save(fixtures.HeadOfPrimary.ID, SaveParams{
		ID:          secretaryAppraisal.ID,
		AppraiseeID: fixtures.Teacher.ID,
		Data:        data,
	})
	if err == nil {
		t.Fatal("Expected the mismatched save to be rejected")
	}
	if !strings.Contains(err.Error(), "does not match") {
		t.Errorf("Unexpected error message: %v", err)
	}
}
