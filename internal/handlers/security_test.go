package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/auth"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/config"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/email"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/handlers"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/middleware"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/repository"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/service"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/testutil"
)

func newAppraisalService(db *testutil.TestContainers) *service.AppraisalService {
	emailService := email.NewService(&config.EmailConfig{Enabled: false})
	auditService := service.NewAuditService(repository.NewAuditRepository(db.DB))
	return service.NewAppraisalService(
		repository.NewAppraisalRepository(db.DB),
		repository.NewAssignmentRepository(db.DB),
		repository.NewUserRepository(db.DB),
		auditService,
		emailService,
		nil,
	)
}

// TestAppraiserIsolation verifies that only the assigned appraiser can write
// an appraisee's appraisal
func TestAppraiserIsolation(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	appraisalService := newAppraisalService(containers)

	params := service.SaveParams{
		AppraiseeID: fixtures.Teacher.ID,
		Data:        models.AppraisalData{Term: "Term 1", Year: "2026"},
	}

	// The school manager is not assigned to the teacher
	if _, err := appraisalService.Save(fixtures.SchoolManager.ID, params); err == nil {
		t.Error("❌ SECURITY VIOLATION: unassigned appraiser was allowed to save an appraisal")
	} else if !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("Expected permission denied, got: %v", err)
	}

	// The head of primary is assigned and must succeed
	appraisal, err := appraisalService.Save(fixtures.HeadOfPrimary.ID, params)
	if err != nil {
		t.Fatalf("Assigned appraiser failed to save: %v", err)
	}
	if appraisal.Status != models.StatusDraft {
		t.Errorf("Expected new appraisal to be a draft, got %s", appraisal.Status)
	}

	// The secretary is neither party nor a director and must not read it
	if _, err := appraisalService.Get(fixtures.Secretary.ID, appraisal.ID); err == nil {
		t.Error("❌ SECURITY VIOLATION: unrelated staff member could read an appraisal")
	}

	// The appraisee and the director may read it
	if _, err := appraisalService.Get(fixtures.Teacher.ID, appraisal.ID); err != nil {
		t.Errorf("Appraisee could not read own appraisal: %v", err)
	}
	if _, err := appraisalService.Get(fixtures.Director.ID, appraisal.ID); err != nil {
		t.Errorf("Director could not read appraisal: %v", err)
	}
}

// TestCompletedAppraisalImmutable verifies that a completed appraisal can no
// longer be edited, even by its own appraiser
func TestCompletedAppraisalImmutable(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	appraisalService := newAppraisalService(containers)

	data := models.AppraisalData{Term: "Term 1", Year: "2026"}
	completed := testutil.CreateAppraisal(t, containers.DB, fixtures.HeadOfPrimary.ID, fixtures.Teacher.ID, nil, models.StatusCompleted, data)

	_, err := appraisalService.Save(fixtures.HeadOfPrimary.ID, service.SaveParams{
		ID:          completed.ID,
		AppraiseeID: fixtures.Teacher.ID,
		Data:        data,
	})
	if err == nil {
		t.Error("❌ SECURITY VIOLATION: completed appraisal accepted an edit")
	} else if !strings.Contains(err.Error(), "no longer be edited") {
		t.Errorf("Expected completed-edit rejection, got: %v", err)
	}
}

// TestResetStatusRequiresDirector verifies that only a director can move an
// appraisal back in the workflow
func TestResetStatusRequiresDirector(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	appraisalService := newAppraisalService(containers)

	data := models.AppraisalData{Term: "Term 1", Year: "2026"}
	appraisal := testutil.CreateAppraisal(t, containers.DB, fixtures.HeadOfPrimary.ID, fixtures.Teacher.ID, nil, models.StatusTargetsSet, data)

	for _, caller := range []*models.User{fixtures.HeadOfPrimary, fixtures.Teacher} {
		if _, err := appraisalService.ResetStatus(caller.ID, appraisal.ID, models.StatusDraft); err == nil {
			t.Errorf("❌ SECURITY VIOLATION: %s reset an appraisal status without director role", caller.FullName)
		}
	}

	reset, err := appraisalService.ResetStatus(fixtures.Director.ID, appraisal.ID, models.StatusDraft)
	if err != nil {
		t.Fatalf("Director failed to reset status: %v", err)
	}
	if reset.Status != models.StatusDraft {
		t.Errorf("Expected status %s after reset, got %s", models.StatusDraft, reset.Status)
	}
}

// TestRevokedTokenRejected verifies that the auth middleware rejects tokens
// whose session has been deleted by logout
func TestRevokedTokenRejected(t *testing.T) {
	containers := testutil.SetupTestContainers(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	authHelper := testutil.NewAuthHelper(containers.DB)

	tokenService := auth.NewService(&config.JWTConfig{
		Secret:            containers.JWTSecret,
		Expiration:        time.Hour,
		RefreshExpiration: 24 * time.Hour,
	})
	sessionRepo := repository.NewSessionRepository(containers.DB)
	authMiddleware := middleware.NewAuthMiddleware(tokenService, sessionRepo)

	appraisalHandler := handlers.NewAppraisalHandler(newAppraisalService(containers))
	protected := authMiddleware.Authenticate(http.HandlerFunc(appraisalHandler.My))

	token := authHelper.IssueAccessToken(t, fixtures.Teacher)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appraisals/my", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := testutil.NewTestResponse()
	protected.ServeHTTP(resp, req)
	resp.AssertStatus(t, http.StatusOK)

	// Revoke every session for the user, then replay the first token
	if err := sessionRepo.DeleteAllUserSessions(fixtures.Teacher.ID); err != nil {
		t.Fatalf("Failed to delete sessions: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/appraisals/my", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = testutil.NewTestResponse()
	protected.ServeHTTP(resp, req)
	resp.AssertStatus(t, http.StatusUnauthorized)
}
