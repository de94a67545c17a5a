package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ObservationStatus is the local completion flag of one observation slot,
// independent of the appraisal's overall workflow status.
type ObservationStatus string

const (
	ObservationPending   ObservationStatus = "PENDING"
	ObservationCompleted ObservationStatus = "COMPLETED"
)

// Target is a quantitative performance goal set at the start of a term and
// reconciled against an actual result at term end. Targets exist only inside
// the appraisal document and are never persisted on their own.
type Target struct {
	ID                int    `json:"id"`
	Area              string `json:"area"`
	Description       string `json:"description"`
	Target            string `json:"target"`
	Actual            string `json:"actual"`
	ActualDescription string `json:"actualDescription"`
}

// TargetValue parses the target as a number; ok is false for missing or
// non-numeric values.
func (t *Target) TargetValue() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(t.Target), 64)
	return v, err == nil
}

// ActualValue parses the actual result as a number; ok is false for missing
// or non-numeric values.
func (t *Target) ActualValue() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(t.Actual), 64)
	return v, err == nil
}

// Observation is one scheduled review session: lesson delivery for teaching
// staff, task execution for non-teaching staff. Ratings are keyed by
// parameter index (1..n) with values 1-4.
type Observation struct {
	Ratings       map[int]int       `json:"ratings"`
	Documents     map[int]string    `json:"documents,omitempty"`
	Comments      string            `json:"comments,omitempty"`
	Date          string            `json:"date,omitempty"`
	Time          string            `json:"time,omitempty"`
	Subject       string            `json:"subject,omitempty"`
	Topic         string            `json:"topic,omitempty"`
	WorkAppraised string            `json:"workAppraised,omitempty"`
	Status        ObservationStatus `json:"status"`
}

// Started reports whether the slot has been touched: any rating recorded or
// a date set. A started second observation must be completed before the
// observation batch can be submitted.
func (o *Observation) Started() bool {
	return len(o.Ratings) > 0 || o.Date != ""
}

// RatingSum adds up the recorded ratings. Only values in the 1-4 domain
// count; anything else contributes 0.
func (o *Observation) RatingSum() int {
	sum := 0
	for _, v := range o.Ratings {
		if v >= 1 && v <= 4 {
			sum += v
		}
	}
	return sum
}

// MissingFields lists what still blocks this slot from being complete for
// the given category: unrated parameters, missing date or time, and for
// work observations a missing work-appraised description.
func (o *Observation) MissingFields(category JobCategory) []string {
	var missing []string
	params := category.ObservationParameters()
	for i := 1; i <= len(params); i++ {
		if v, ok := o.Ratings[i]; !ok || v < 1 || v > 4 {
			missing = append(missing, fmt.Sprintf("rating for parameter %d (%s)", i, params[i-1]))
		}
	}
	if o.Date == "" {
		missing = append(missing, "observation date")
	}
	if o.Time == "" {
		missing = append(missing, "observation time")
	}
	if category.UsesWorkObservation() && strings.TrimSpace(o.WorkAppraised) == "" {
		missing = append(missing, "description of work appraised")
	}
	return missing
}

// IsComplete reports whether the slot satisfies every completeness field
// for the category.
func (o *Observation) IsComplete(category JobCategory) bool {
	return len(o.MissingFields(category)) == 0
}

// Evaluation holds the end-of-term evaluation ratings plus the two progress
// and two improvement comment slots.
type Evaluation struct {
	Ratings             map[int]int `json:"ratings"`
	ProgressComments    []string    `json:"progressComments"`
	ImprovementComments []string    `json:"improvementComments"`
}

// RatingSum adds up the recorded evaluation ratings (1-4 each).
func (e *Evaluation) RatingSum() int {
	sum := 0
	for _, v := range e.Ratings {
		if v >= 1 && v <= 4 {
			sum += v
		}
	}
	return sum
}

// MissingParameters lists evaluation parameters not yet rated for the
// category's parameter list.
func (e *Evaluation) MissingParameters(category JobCategory) []string {
	var missing []string
	params := category.EvaluationParameters()
	for i := 1; i <= len(params); i++ {
		if v, ok := e.Ratings[i]; !ok || v < 1 || v > 4 {
			missing = append(missing, params[i-1])
		}
	}
	return missing
}

// SignatureBlock is one of the three sign-off points of an appraisal. A
// block is satisfied only when both the appraiser and appraisee sub-fields
// are non-empty.
type SignatureBlock struct {
	AppraiseeSignature string `json:"appraiseeSignature"`
	AppraiseeDate      string `json:"appraiseeDate"`
	AppraiserSignature string `json:"appraiserSignature"`
	AppraiserDate      string `json:"appraiserDate"`
}

// Satisfied reports whether both signature sub-fields are present.
func (s *SignatureBlock) Satisfied() bool {
	return strings.TrimSpace(s.AppraiseeSignature) != "" && strings.TrimSpace(s.AppraiserSignature) != ""
}

// AppraisalData is the structured document persisted with every appraisal.
// Every optional nested block has an explicit default so presence checks
// never dereference nil maps.
type AppraisalData struct {
	Term                   string         `json:"term"`
	Year                   string         `json:"year"`
	Targets                []Target       `json:"targets"`
	Observation1           Observation    `json:"observation1"`
	Observation2           Observation    `json:"observation2"`
	Evaluation             Evaluation     `json:"evaluation"`
	TargetSignatures       SignatureBlock `json:"targetSignatures"`
	TargetReviewSignatures SignatureBlock `json:"targetReviewSignatures"`
	CompletionSignatures   SignatureBlock `json:"completionSignatures"`
}

// Normalize fills in defaults for every optional nested block so the
// document is safe to read regardless of which client fields were omitted.
func (d *AppraisalData) Normalize() {
	if d.Targets == nil {
		d.Targets = []Target{}
	}
	for _, o := range []*Observation{&d.Observation1, &d.Observation2} {
		if o.Ratings == nil {
			o.Ratings = map[int]int{}
		}
		if o.Documents == nil {
			o.Documents = map[int]string{}
		}
		if o.Status == "" {
			o.Status = ObservationPending
		}
	}
	if d.Evaluation.Ratings == nil {
		d.Evaluation.Ratings = map[int]int{}
	}
	for len(d.Evaluation.ProgressComments) < 2 {
		d.Evaluation.ProgressComments = append(d.Evaluation.ProgressComments, "")
	}
	for len(d.Evaluation.ImprovementComments) < 2 {
		d.Evaluation.ImprovementComments = append(d.Evaluation.ImprovementComments, "")
	}
}

// Validate rejects documents with values outside the closed domains. It is
// run on write and on read; a stored blob that fails validation indicates
// corruption, not user error.
func (d *AppraisalData) Validate() error {
	if strings.TrimSpace(d.Term) == "" {
		return fmt.Errorf("appraisal term is required")
	}
	if strings.TrimSpace(d.Year) == "" {
		return fmt.Errorf("appraisal year is required")
	}
	for slot, o := range map[string]*Observation{"observation1": &d.Observation1, "observation2": &d.Observation2} {
		if o.Status != "" && o.Status != ObservationPending && o.Status != ObservationCompleted {
			return fmt.Errorf("%s has invalid status %q", slot, o.Status)
		}
		for idx, v := range o.Ratings {
			if v < 1 || v > 4 {
				return fmt.Errorf("%s rating for parameter %d must be between 1 and 4, got %d", slot, idx, v)
			}
		}
	}
	for idx, v := range d.Evaluation.Ratings {
		if v < 1 || v > 4 {
			return fmt.Errorf("evaluation rating for parameter %d must be between 1 and 4, got %d", idx, v)
		}
	}
	return nil
}

// Value implements driver.Valuer so the document is stored as JSONB.
func (d AppraisalData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner. The stored blob is normalized and validated
// on the way out as well as on the way in.
func (d *AppraisalData) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*d = AppraisalData{}
		d.Normalize()
		return nil
	default:
		return fmt.Errorf("cannot scan %T into AppraisalData", src)
	}

	if err := json.Unmarshal(raw, d); err != nil {
		return fmt.Errorf("failed to decode appraisal data: %w", err)
	}
	d.Normalize()
	if err := d.Validate(); err != nil {
		return fmt.Errorf("stored appraisal data is invalid: %w", err)
	}
	return nil
}
