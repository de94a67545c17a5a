package models

import (
	"encoding/json"
	"testing"
)

func TestNormalizeFillsDefaults(t *testing.T) {
	var data AppraisalData
	data.Normalize()

	if data.Targets == nil {
		t.Error("Targets should default to an empty slice")
	}
	if data.Observation1.Ratings == nil || data.Observation2.Ratings == nil {
		t.Error("Observation ratings maps should never be nil")
	}
	if data.Observation1.Status != ObservationPending {
		t.Errorf("Expected default observation status PENDING, got %s", data.Observation1.Status)
	}
	if len(data.Evaluation.ProgressComments) != 2 || len(data.Evaluation.ImprovementComments) != 2 {
		t.Error("Evaluation comment slots should default to two entries each")
	}
}

func TestValidateRejectsOutOfDomainRatings(t *testing.T) {
	data := AppraisalData{Term: "Term 1", Year: "2026"}
	data.Normalize()
	data.Observation1.Ratings[2] = 5

	if err := data.Validate(); err == nil {
		t.Error("A rating of 5 must be rejected")
	}

	data.Observation1.Ratings[2] = 4
	data.Evaluation.Ratings[1] = 0
	if err := data.Validate(); err == nil {
		t.Error("A rating of 0 must be rejected")
	}
}

func TestValidateRequiresTermAndYear(t *testing.T) {
	data := AppraisalData{Year: "2026"}
	data.Normalize()
	if err := data.Validate(); err == nil {
		t.Error("A document without a term must be rejected")
	}

	data = AppraisalData{Term: "Term 2"}
	data.Normalize()
	if err := data.Validate(); err == nil {
		t.Error("A document without a year must be rejected")
	}
}

func TestObservationStartedInference(t *testing.T) {
	var o Observation
	if o.Started() {
		t.Error("An untouched observation is not started")
	}

	o = Observation{Date: "2026-03-02"}
	if !o.Started() {
		t.Error("A dated observation counts as started")
	}

	o = Observation{Ratings: map[int]int{1: 3}}
	if !o.Started() {
		t.Error("A rated observation counts as started")
	}
}

func TestObservationMissingFieldsNonTeaching(t *testing.T) {
	o := Observation{
		Ratings: map[int]int{1: 4, 2: 4, 3: 4, 4: 4, 5: 4, 6: 4, 7: 4, 8: 4},
		Date:    "2026-03-02",
		Time:    "10:00",
	}

	missing := o.MissingFields(CategoryNonTeaching)
	if len(missing) != 1 {
		t.Fatalf("Expected exactly one missing field, got %v", missing)
	}
	if missing[0] != "description of work appraised" {
		t.Errorf("Non-teaching observations require a work-appraised description, got %q", missing[0])
	}

	o.WorkAppraised = "Repaired the east wing plumbing"
	if !o.IsComplete(CategoryNonTeaching) {
		t.Errorf("Observation should be complete, still missing: %v", o.MissingFields(CategoryNonTeaching))
	}
}

func TestSignatureBlockSatisfied(t *testing.T) {
	block := SignatureBlock{AppraiserSignature: "data:image/png;base64,..."}
	if block.Satisfied() {
		t.Error("A block with only the appraiser signature is not satisfied")
	}

	block.AppraiseeSignature = "data:image/png;base64,..."
	if !block.Satisfied() {
		t.Error("A block with both sub-fields is satisfied")
	}
}

func TestScanRoundTrip(t *testing.T) {
	src := AppraisalData{
		Term: "Term 1",
		Year: "2026",
		Targets: []Target{
			{ID: 1, Area: "Enrollment", Target: "120", Actual: "118"},
		},
		Observation1: Observation{
			Ratings: map[int]int{1: 3, 2: 4},
			Date:    "2026-02-14",
			Time:    "09:30",
			Status:  ObservationCompleted,
		},
	}
	src.Normalize()

	value, err := src.Value()
	if err != nil {
		t.Fatalf("Failed to encode document: %v", err)
	}

	var dst AppraisalData
	if err := dst.Scan(value); err != nil {
		t.Fatalf("Failed to scan document: %v", err)
	}

	if dst.Term != "Term 1" || dst.Year != "2026" {
		t.Errorf("Term/year lost in round trip: %s %s", dst.Term, dst.Year)
	}
	if dst.Observation1.Ratings[2] != 4 {
		t.Errorf("Ratings lost in round trip: %v", dst.Observation1.Ratings)
	}
	if dst.Observation2.Ratings == nil {
		t.Error("Scan must normalize optional blocks")
	}
}

func TestScanRejectsCorruptBlob(t *testing.T) {
	var data AppraisalData
	if err := data.Scan([]byte(`{"term":"T1","year":"2026","observation1":{"ratings":{"1":7}}}`)); err == nil {
		t.Error("A stored blob with out-of-domain ratings must fail validation on read")
	}
}

func TestDocumentJSONShape(t *testing.T) {
	var data AppraisalData
	data.Normalize()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	for _, key := range []string{"term", "year", "targets", "observation1", "observation2", "evaluation", "targetSignatures", "targetReviewSignatures", "completionSignatures"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("Document JSON is missing key %q", key)
		}
	}
}
