// Package scoring computes appraisal scores from the appraisal document.
// Every function is pure and deterministic: the stored overall score is a
// display cache and must always be re-derivable from the document alone.
package scoring

import (
	"math"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
)

// Target rating bands. Marks are awarded by band, never interpolated.
const (
	TargetRatingExcellent      = "Excellent"
	TargetRatingAboveAverage   = "Above Average"
	TargetRatingSatisfactory   = "Satisfactory"
	TargetRatingUnsatisfactory = "Unsatisfactory"
)

// Final qualitative bands derived from the overall percentage.
const (
	BandLeading           = "Leading"
	BandStrong            = "Strong"
	BandSolid             = "Solid"
	BandBuilding          = "Building"
	BandBelowExpectations = "Below Expectations"
)

// TargetMarks awarded per band.
const (
	marksExcellent      = 33
	marksAboveAverage   = 30
	marksSatisfactory   = 20
	marksUnsatisfactory = 5
)

// MaxTargetMarks is the targets component's contribution to the maximum
// possible score when targets apply.
const MaxTargetMarks = marksExcellent

// TargetResult is the outcome of the targets component.
type TargetResult struct {
	Average float64 `json:"average"`
	Rating  string  `json:"rating"`
	Marks   int     `json:"marks"`
}

// TargetScore averages achievement over qualifying targets only: a target
// qualifies when its target value is a number greater than zero and its
// actual value is numeric. Non-qualifying targets are excluded from the
// average, not treated as zero. Zero qualifying targets score a 0 average
// and Unsatisfactory by definition.
func TargetScore(targets []models.Target) TargetResult {
	var sum float64
	qualifying := 0
	for i := range targets {
		tv, ok := targets[i].TargetValue()
		if !ok || tv <= 0 {
			continue
		}
		av, ok := targets[i].ActualValue()
		if !ok {
			continue
		}
		sum += av / tv * 100
		qualifying++
	}

	avg := 0.0
	if qualifying > 0 {
		avg = sum / float64(qualifying)
	}

	rating, marks := targetBand(avg, qualifying)
	return TargetResult{Average: avg, Rating: rating, Marks: marks}
}

func targetBand(avg float64, qualifying int) (string, int) {
	if qualifying == 0 {
		return TargetRatingUnsatisfactory, marksUnsatisfactory
	}
	switch {
	case avg >= 99:
		return TargetRatingExcellent, marksExcellent
	case avg >= 95:
		return TargetRatingAboveAverage, marksAboveAverage
	case avg >= 86:
		return TargetRatingSatisfactory, marksSatisfactory
	default:
		return TargetRatingUnsatisfactory, marksUnsatisfactory
	}
}

// observationSum adds the slot's ratings over the category's parameter list.
// Absent or out-of-domain ratings contribute 0 and are not counted.
func observationSum(o *models.Observation, paramCount int) int {
	sum := 0
	for i := 1; i <= paramCount; i++ {
		if v, ok := o.Ratings[i]; ok && v >= 1 && v <= 4 {
			sum += v
		}
	}
	return sum
}

// ObservationScore computes the observation component. With only the first
// observation rated the score is its raw sum. Once the second observation
// has ratings the score is the average of the two sums, rounded to one
// decimal place.
func ObservationScore(data *models.AppraisalData, category models.JobCategory) float64 {
	params := category.ObservationParameters()
	if params == nil {
		return 0
	}

	first := observationSum(&data.Observation1, len(params))
	second := observationSum(&data.Observation2, len(params))
	if second == 0 && len(data.Observation2.Ratings) == 0 {
		return float64(first)
	}
	return math.Round((float64(first)+float64(second))/2*10) / 10
}

// EvaluationScore sums the evaluation ratings over the category's parameter
// list. No averaging, no banding.
func EvaluationScore(data *models.AppraisalData, category models.JobCategory) int {
	sum := 0
	for i := 1; i <= len(category.EvaluationParameters()); i++ {
		if v, ok := data.Evaluation.Ratings[i]; ok && v >= 1 && v <= 4 {
			sum += v
		}
	}
	return sum
}

// Result is the full derived score of an appraisal.
type Result struct {
	Targets          TargetResult `json:"targets"`
	ObservationScore float64      `json:"observation_score"`
	EvaluationScore  int          `json:"evaluation_score"`
	Total            float64      `json:"total"`
	Maximum          float64      `json:"maximum"`
	Percentage       float64      `json:"percentage"`
	Band             string       `json:"band"`
}

// Total aggregates the components that apply to the role's category.
// Maximum = (33 if targets apply) + (observation parameters x 4 if
// observations apply) + (evaluation parameters x 4). Percentage is 0 when
// the maximum is 0.
func Total(data *models.AppraisalData, category models.JobCategory) Result {
	res := Result{
		EvaluationScore: EvaluationScore(data, category),
	}
	res.Maximum = float64(len(category.EvaluationParameters()) * 4)
	res.Total = float64(res.EvaluationScore)

	if category.HasTargets() {
		res.Targets = TargetScore(data.Targets)
		res.Total += float64(res.Targets.Marks)
		res.Maximum += MaxTargetMarks
	}
	if category.HasObservations() {
		res.ObservationScore = ObservationScore(data, category)
		res.Total += res.ObservationScore
		res.Maximum += float64(len(category.ObservationParameters()) * 4)
	}

	if res.Maximum > 0 {
		res.Percentage = res.Total / res.Maximum * 100
	}
	res.Band = percentageBand(res.Percentage)
	return res
}

// OverallScore is the cached numeric stored next to the document on every
// save.
func OverallScore(data *models.AppraisalData, category models.JobCategory) float64 {
	return Total(data, category).Total
}

func percentageBand(pct float64) string {
	switch {
	case pct >= 93:
		return BandLeading
	case pct >= 80:
		return BandStrong
	case pct >= 65:
		return BandSolid
	case pct >= 50:
		return BandBuilding
	default:
		return BandBelowExpectations
	}
}
