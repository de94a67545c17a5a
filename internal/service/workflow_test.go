package service

import (
	"strings"
	"testing"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
)

func signedBlock() models.SignatureBlock {
	return models.SignatureBlock{
		AppraiseeSignature: "data:image/png;base64,appraisee",
		AppraiseeDate:      "2026-03-10",
		AppraiserSignature: "data:image/png;base64,appraiser",
		AppraiserDate:      "2026-03-10",
	}
}

func completeObservation(category models.JobCategory) models.Observation {
	o := models.Observation{
		Ratings: map[int]int{},
		Date:    "2026-02-14",
		Time:    "10:30",
		Status:  models.ObservationPending,
	}
	for i := 1; i <= len(category.ObservationParameters()); i++ {
		o.Ratings[i] = 3
	}
	if category.UsesWorkObservation() {
		o.WorkAppraised = "Term report filing"
	}
	return o
}

func completeEvaluation(category models.JobCategory) models.Evaluation {
	e := models.Evaluation{Ratings: map[int]int{}}
	for i := 1; i <= len(category.EvaluationParameters()); i++ {
		e.Ratings[i] = 4
	}
	return e
}

func baseData() *models.AppraisalData {
	d := &models.AppraisalData{Term: "Term 1", Year: "2026"}
	d.Normalize()
	return d
}

func TestTargetsSetRequiresBothSignatures(t *testing.T) {
	d := baseData()

	err := ValidateTransition(models.StatusTargetsSet, models.CategoryTeaching, d)
	if err == nil || !strings.Contains(err.Error(), "appraisee signature") {
		t.Fatalf("Expected appraisee signature error, got %v", err)
	}

	d.TargetSignatures.AppraiseeSignature = "sig"
	err = ValidateTransition(models.StatusTargetsSet, models.CategoryTeaching, d)
	if err == nil || !strings.Contains(err.Error(), "appraiser signature") {
		t.Fatalf("Expected appraiser signature error, got %v", err)
	}

	d.TargetSignatures = signedBlock()
	if err := ValidateTransition(models.StatusTargetsSet, models.CategoryTeaching, d); err != nil {
		t.Fatalf("Expected signed target setting to pass, got %v", err)
	}
}

func TestTargetsSetRejectedForNonTeaching(t *testing.T) {
	d := baseData()
	d.TargetSignatures = signedBlock()

	if err := ValidateTransition(models.StatusTargetsSet, models.CategoryNonTeaching, d); err == nil {
		t.Fatal("Non-teaching staff have no targets, transition should be rejected")
	}
}

func TestObservationSubmittedRequiresCompleteFirstSlot(t *testing.T) {
	d := baseData()

	err := ValidateTransition(models.StatusObservationSubmitted, models.CategoryTeaching, d)
	if err == nil || !strings.Contains(err.Error(), "observation 1") {
		t.Fatalf("Expected observation 1 incomplete error, got %v", err)
	}

	d.Observation1 = completeObservation(models.CategoryTeaching)
	if err := ValidateTransition(models.StatusObservationSubmitted, models.CategoryTeaching, d); err != nil {
		t.Fatalf("Complete first observation with untouched second should pass, got %v", err)
	}
}

func TestObservationSubmittedStartedSecondMustBeComplete(t *testing.T) {
	d := baseData()
	d.Observation1 = completeObservation(models.CategoryTeaching)
	d.Observation2.Date = "2026-03-01" // started but nothing else

	err := ValidateTransition(models.StatusObservationSubmitted, models.CategoryTeaching, d)
	if err == nil || !strings.Contains(err.Error(), "observation 2") {
		t.Fatalf("Expected started-but-incomplete second observation error, got %v", err)
	}

	d.Observation2 = completeObservation(models.CategoryTeaching)
	if err := ValidateTransition(models.StatusObservationSubmitted, models.CategoryTeaching, d); err != nil {
		t.Fatalf("Both observations complete should pass, got %v", err)
	}
}

func TestObservationRequiresWorkAppraisedForNonTeaching(t *testing.T) {
	d := baseData()
	d.Observation1 = completeObservation(models.CategoryNonTeaching)
	d.Observation1.WorkAppraised = ""

	err := ValidateTransition(models.StatusObservationSubmitted, models.CategoryNonTeaching, d)
	if err == nil || !strings.Contains(err.Error(), "work appraised") {
		t.Fatalf("Expected missing work-appraised error, got %v", err)
	}
}

func TestObservationSubmittedRejectedForSeniorLeadership(t *testing.T) {
	d := baseData()

	if err := ValidateTransition(models.StatusObservationSubmitted, models.CategorySeniorLeadership, d); err == nil {
		t.Fatal("Senior leadership has no observations, transition should be rejected")
	}
}

func TestEvaluationSubmittedNamesMissingParameters(t *testing.T) {
	d := baseData()
	d.Evaluation = completeEvaluation(models.CategoryTeaching)
	delete(d.Evaluation.Ratings, 2)

	err := ValidateTransition(models.StatusEvaluationSubmitted, models.CategoryTeaching, d)
	if err == nil || !strings.Contains(err.Error(), models.TeachingEvaluationParameters[1]) {
		t.Fatalf("Expected error naming the missing parameter, got %v", err)
	}

	d.Evaluation = completeEvaluation(models.CategoryTeaching)
	if err := ValidateTransition(models.StatusEvaluationSubmitted, models.CategoryTeaching, d); err != nil {
		t.Fatalf("Fully rated evaluation should pass, got %v", err)
	}
}

func TestTargetsSubmittedRequiresActuals(t *testing.T) {
	d := baseData()
	d.TargetReviewSignatures = signedBlock()
	d.Targets = []models.Target{
		{ID: 1, Area: "Enrollment", Target: "100", Actual: "98"},
		{ID: 2, Area: "Attendance", Target: "95", Actual: ""},
	}

	err := ValidateTransition(models.StatusTargetsSubmitted, models.CategoryTeaching, d)
	if err == nil || !strings.Contains(err.Error(), "target 2") {
		t.Fatalf("Expected error naming target 2, got %v", err)
	}

	d.Targets[1].Actual = "96"
	if err := ValidateTransition(models.StatusTargetsSubmitted, models.CategoryTeaching, d); err != nil {
		t.Fatalf("All actuals recorded should pass, got %v", err)
	}
}

func TestCompletedRequiresCompletionSignatures(t *testing.T) {
	d := baseData()

	err := ValidateTransition(models.StatusCompleted, models.CategorySeniorLeadership, d)
	if err == nil || !strings.Contains(err.Error(), "completion") {
		t.Fatalf("Expected completion sign-off error, got %v", err)
	}

	d.CompletionSignatures = signedBlock()
	if err := ValidateTransition(models.StatusCompleted, models.CategorySeniorLeadership, d); err != nil {
		t.Fatalf("Senior leadership needs only the completion sign-off, got %v", err)
	}
}

func TestCompletedChecksTargetReviewForTargetCategories(t *testing.T) {
	d := baseData()
	d.CompletionSignatures = signedBlock()
	d.Targets = []models.Target{{ID: 1, Area: "Syllabus", Target: "100", Actual: ""}}

	err := ValidateTransition(models.StatusCompleted, models.CategoryTeaching, d)
	if err == nil || !strings.Contains(err.Error(), "target-review") {
		t.Fatalf("Expected target-review sign-off error, got %v", err)
	}

	d.TargetReviewSignatures = signedBlock()
	err = ValidateTransition(models.StatusCompleted, models.CategoryTeaching, d)
	if err == nil || !strings.Contains(err.Error(), "actual value") {
		t.Fatalf("Expected missing actual error, got %v", err)
	}

	d.Targets[0].Actual = "100"
	if err := ValidateTransition(models.StatusCompleted, models.CategoryTeaching, d); err != nil {
		t.Fatalf("Expected completion to pass, got %v", err)
	}
}

func TestTransitionToUnknownStatus(t *testing.T) {
	d := baseData()

	if err := ValidateTransition(models.AppraisalStatus("ARCHIVED"), models.CategoryTeaching, d); err == nil {
		t.Fatal("Unknown status should be rejected")
	}
	if err := ValidateTransition(models.StatusDraft, models.CategoryTeaching, d); err == nil {
		t.Fatal("DRAFT is not a transition target")
	}
}

func TestValidateObservationSlot(t *testing.T) {
	d := baseData()
	d.Observation2 = completeObservation(models.CategoryTeaching)

	if err := ValidateObservationSlot(2, models.CategoryTeaching, d); err != nil {
		t.Fatalf("Complete slot 2 should validate independently, got %v", err)
	}
	if err := ValidateObservationSlot(1, models.CategoryTeaching, d); err == nil {
		t.Fatal("Empty slot 1 should fail validation")
	}
	if err := ValidateObservationSlot(3, models.CategoryTeaching, d); err == nil {
		t.Fatal("Slot 3 does not exist")
	}
	if err := ValidateObservationSlot(1, models.CategorySeniorLeadership, d); err == nil {
		t.Fatal("Senior leadership has no observations")
	}
}
