package scoring

import (
	"math"
	"testing"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
)

func TestTargetScoreSingleTarget(t *testing.T) {
	targets := []models.Target{
		{ID: 1, Target: "100", Actual: "99"},
	}

	res := TargetScore(targets)

	if math.Abs(res.Average-99.0) > 1e-9 {
		t.Errorf("Expected average 99.0, got %f", res.Average)
	}
	if res.Rating != TargetRatingExcellent {
		t.Errorf("Expected rating %q, got %q", TargetRatingExcellent, res.Rating)
	}
	if res.Marks != 33 {
		t.Errorf("Expected 33 marks, got %d", res.Marks)
	}
}

func TestTargetScoreExcludesNonQualifying(t *testing.T) {
	targets := []models.Target{
		{ID: 1, Target: "100", Actual: "90"},  // qualifies: 90%
		{ID: 2, Target: "0", Actual: "50"},    // zero target, excluded
		{ID: 3, Target: "", Actual: "10"},     // missing target, excluded
		{ID: 4, Target: "80", Actual: "high"}, // non-numeric actual, excluded
	}

	res := TargetScore(targets)

	if math.Abs(res.Average-90.0) > 1e-9 {
		t.Errorf("Excluded targets should not drag the average: expected 90.0, got %f", res.Average)
	}
	if res.Rating != TargetRatingSatisfactory {
		t.Errorf("Expected rating %q, got %q", TargetRatingSatisfactory, res.Rating)
	}
	if res.Marks != 20 {
		t.Errorf("Expected 20 marks, got %d", res.Marks)
	}
}

func TestTargetScoreNoQualifyingTargets(t *testing.T) {
	res := TargetScore([]models.Target{{ID: 1, Target: "0", Actual: "5"}})

	if res.Average != 0 {
		t.Errorf("Expected average 0, got %f", res.Average)
	}
	if res.Rating != TargetRatingUnsatisfactory {
		t.Errorf("Expected rating %q, got %q", TargetRatingUnsatisfactory, res.Rating)
	}
}

func TestTargetScoreBandThresholds(t *testing.T) {
	tests := []struct {
		actual string
		rating string
		marks  int
	}{
		{"100", TargetRatingExcellent, 33},
		{"99", TargetRatingExcellent, 33},
		{"98", TargetRatingAboveAverage, 30},
		{"95", TargetRatingAboveAverage, 30},
		{"94", TargetRatingSatisfactory, 20},
		{"86", TargetRatingSatisfactory, 20},
		{"85", TargetRatingUnsatisfactory, 5},
		{"10", TargetRatingUnsatisfactory, 5},
	}

	for _, tt := range tests {
		res := TargetScore([]models.Target{{Target: "100", Actual: tt.actual}})
		if res.Rating != tt.rating {
			t.Errorf("Actual %s: expected rating %q, got %q", tt.actual, tt.rating, res.Rating)
		}
		if res.Marks != tt.marks {
			t.Errorf("Actual %s: expected %d marks, got %d", tt.actual, tt.marks, res.Marks)
		}
	}
}

func TestObservationScoreFirstOnly(t *testing.T) {
	data := &models.AppraisalData{
		Observation1: models.Observation{Ratings: map[int]int{1: 4, 2: 4, 3: 4}},
		Observation2: models.Observation{Ratings: map[int]int{}},
	}
	data.Normalize()

	score := ObservationScore(data, models.CategoryTeaching)
	if score != 12 {
		t.Errorf("Expected observation score 12 with only the first slot rated, got %f", score)
	}
}

func TestObservationScoreAveragesBothSlots(t *testing.T) {
	data := &models.AppraisalData{
		Observation1: models.Observation{Ratings: map[int]int{1: 4, 2: 4, 3: 4}},
		Observation2: models.Observation{Ratings: map[int]int{1: 1, 2: 1, 3: 1}},
	}
	data.Normalize()

	score := ObservationScore(data, models.CategoryTeaching)
	if score != 7.5 {
		t.Errorf("Expected averaged observation score 7.5, got %f", score)
	}
}

func TestObservationScoreRoundsToOneDecimal(t *testing.T) {
	data := &models.AppraisalData{
		Observation1: models.Observation{Ratings: map[int]int{1: 4, 2: 4}},
		Observation2: models.Observation{Ratings: map[int]int{1: 3}},
	}
	data.Normalize()

	// (8 + 3) / 2 = 5.5
	score := ObservationScore(data, models.CategoryTeaching)
	if score != 5.5 {
		t.Errorf("Expected 5.5, got %f", score)
	}
}

func TestObservationScoreIgnoresOutOfRangeRatings(t *testing.T) {
	data := &models.AppraisalData{
		Observation1: models.Observation{Ratings: map[int]int{1: 4, 2: 9, 3: 0}},
	}
	data.Normalize()

	score := ObservationScore(data, models.CategoryTeaching)
	if score != 4 {
		t.Errorf("Out-of-domain ratings should contribute 0: expected 4, got %f", score)
	}
}

func TestEvaluationScoreSums(t *testing.T) {
	data := &models.AppraisalData{
		Evaluation: models.Evaluation{Ratings: map[int]int{1: 4, 2: 4, 3: 4, 4: 4, 5: 4, 6: 4}},
	}
	data.Normalize()

	score := EvaluationScore(data, models.CategoryTeaching)
	if score != 24 {
		t.Errorf("Expected evaluation score 24, got %d", score)
	}
}

func TestEvaluationScoreIgnoresIndexesBeyondParameterList(t *testing.T) {
	data := &models.AppraisalData{
		Evaluation: models.Evaluation{Ratings: map[int]int{1: 4, 7: 4}}, // teaching list has 6 parameters
	}
	data.Normalize()

	score := EvaluationScore(data, models.CategoryTeaching)
	if score != 4 {
		t.Errorf("Expected evaluation score 4, got %d", score)
	}
}

func TestTotalTeachingStaff(t *testing.T) {
	// Target marks 20, observation 30, evaluation 24 against a maximum of
	// 33 + 36 + 24 = 93 should land in the Solid band.
	data := &models.AppraisalData{
		Targets: []models.Target{{Target: "100", Actual: "90"}},
		Observation1: models.Observation{
			Ratings: map[int]int{1: 4, 2: 4, 3: 4, 4: 4, 5: 4, 6: 4, 7: 3, 8: 2, 9: 1},
		},
		Evaluation: models.Evaluation{
			Ratings: map[int]int{1: 4, 2: 4, 3: 4, 4: 4, 5: 4, 6: 4},
		},
	}
	data.Normalize()

	res := Total(data, models.CategoryTeaching)

	if res.Targets.Marks != 20 {
		t.Errorf("Expected 20 target marks, got %d", res.Targets.Marks)
	}
	if res.ObservationScore != 30 {
		t.Errorf("Expected observation score 30, got %f", res.ObservationScore)
	}
	if res.EvaluationScore != 24 {
		t.Errorf("Expected evaluation score 24, got %d", res.EvaluationScore)
	}
	if res.Total != 74 {
		t.Errorf("Expected total 74, got %f", res.Total)
	}
	if res.Maximum != 93 {
		t.Errorf("Expected maximum 93, got %f", res.Maximum)
	}
	if math.Abs(res.Percentage-79.569892) > 0.001 {
		t.Errorf("Expected percentage ~79.57, got %f", res.Percentage)
	}
	if res.Band != BandSolid {
		t.Errorf("Expected band %q, got %q", BandSolid, res.Band)
	}
}

func TestTotalNonTeachingExcludesTargets(t *testing.T) {
	data := &models.AppraisalData{
		Targets: []models.Target{{Target: "100", Actual: "100"}}, // must be ignored
		Observation1: models.Observation{
			Ratings: map[int]int{1: 4, 2: 4, 3: 4, 4: 4, 5: 4, 6: 4, 7: 4, 8: 4},
		},
		Evaluation: models.Evaluation{
			Ratings: map[int]int{1: 4, 2: 4, 3: 4, 4: 4, 5: 4, 6: 4, 7: 4, 8: 4},
		},
	}
	data.Normalize()

	res := Total(data, models.CategoryNonTeaching)

	if res.Targets.Marks != 0 {
		t.Errorf("Non-teaching appraisals must not carry target marks, got %d", res.Targets.Marks)
	}
	// 8 x 4 observation + 8 x 4 evaluation = 64 of 64.
	if res.Total != 64 || res.Maximum != 64 {
		t.Errorf("Expected 64/64, got %f/%f", res.Total, res.Maximum)
	}
	if res.Band != BandLeading {
		t.Errorf("Expected band %q, got %q", BandLeading, res.Band)
	}
}

func TestTotalSeniorLeadershipUsesEvaluationOnly(t *testing.T) {
	data := &models.AppraisalData{
		Observation1: models.Observation{Ratings: map[int]int{1: 4}}, // must be ignored
		Evaluation: models.Evaluation{
			Ratings: map[int]int{1: 3, 2: 3, 3: 3, 4: 3, 5: 3, 6: 3, 7: 3, 8: 3, 9: 3, 10: 3},
		},
	}
	data.Normalize()

	res := Total(data, models.CategorySeniorLeadership)

	if res.ObservationScore != 0 {
		t.Errorf("Senior leadership scoring must ignore observations, got %f", res.ObservationScore)
	}
	if res.Total != 30 || res.Maximum != 40 {
		t.Errorf("Expected 30/40, got %f/%f", res.Total, res.Maximum)
	}
	if res.Percentage != 75 {
		t.Errorf("Expected percentage 75, got %f", res.Percentage)
	}
	if res.Band != BandSolid {
		t.Errorf("Expected band %q, got %q", BandSolid, res.Band)
	}
}

func TestPercentageBandThresholds(t *testing.T) {
	tests := []struct {
		pct  float64
		band string
	}{
		{100, BandLeading},
		{93, BandLeading},
		{92.9, BandStrong},
		{80, BandStrong},
		{79.9, BandSolid},
		{65, BandSolid},
		{64.9, BandBuilding},
		{50, BandBuilding},
		{49.9, BandBelowExpectations},
		{0, BandBelowExpectations},
	}

	for _, tt := range tests {
		if got := percentageBand(tt.pct); got != tt.band {
			t.Errorf("Percentage %.1f: expected band %q, got %q", tt.pct, tt.band, got)
		}
	}
}
