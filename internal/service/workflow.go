package service

import (
	"fmt"
	"strings"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
)

// ValidateTransition checks the gate for moving an appraisal document to the
// target status. It is pure over the document: callers handle authorization
// and persistence. A nil return means every precondition of the gate holds.
func ValidateTransition(target models.AppraisalStatus, category models.JobCategory, data *models.AppraisalData) error {
	switch target {
	case models.StatusTargetsSet:
		if !category.HasTargets() {
			return fmt.Errorf("target setting does not apply to %s staff", category)
		}
		return validateSignatures(&data.TargetSignatures, "target-setting")

	case models.StatusObservationSubmitted:
		if !category.HasObservations() {
			return fmt.Errorf("observations do not apply to %s staff", category)
		}
		return validateObservationBatch(category, data)

	case models.StatusEvaluationSubmitted:
		if missing := data.Evaluation.MissingParameters(category); len(missing) > 0 {
			return fmt.Errorf("evaluation is incomplete: missing rating for %s", strings.Join(missing, ", "))
		}
		return nil

	case models.StatusTargetsSubmitted:
		if !category.HasTargets() {
			return fmt.Errorf("target review does not apply to %s staff", category)
		}
		if err := validateSignatures(&data.TargetReviewSignatures, "target-review"); err != nil {
			return err
		}
		return validateTargetActuals(data)

	case models.StatusCompleted:
		if err := validateSignatures(&data.CompletionSignatures, "completion"); err != nil {
			return err
		}
		if category.HasTargets() {
			if err := validateSignatures(&data.TargetReviewSignatures, "target-review"); err != nil {
				return err
			}
			if err := validateTargetActuals(data); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("cannot transition to %s", target)
	}
}

// ValidateObservationSlot checks the completeness of one observation slot
// (1 or 2) for the mark-single-observation-complete sub-operation.
func ValidateObservationSlot(slot int, category models.JobCategory, data *models.AppraisalData) error {
	if !category.HasObservations() {
		return fmt.Errorf("observations do not apply to %s staff", category)
	}

	var o *models.Observation
	switch slot {
	case 1:
		o = &data.Observation1
	case 2:
		o = &data.Observation2
	default:
		return fmt.Errorf("observation slot must be 1 or 2, got %d", slot)
	}

	if missing := o.MissingFields(category); len(missing) > 0 {
		return fmt.Errorf("observation %d is incomplete: missing %s", slot, strings.Join(missing, ", "))
	}
	return nil
}

func validateSignatures(block *models.SignatureBlock, name string) error {
	if strings.TrimSpace(block.AppraiseeSignature) == "" {
		return fmt.Errorf("appraisee signature is missing on the %s sign-off", name)
	}
	if strings.TrimSpace(block.AppraiserSignature) == "" {
		return fmt.Errorf("appraiser signature is missing on the %s sign-off", name)
	}
	return nil
}

// validateObservationBatch checks the first observation fully and, when the
// second was started, the second on the same fields.
func validateObservationBatch(category models.JobCategory, data *models.AppraisalData) error {
	if missing := data.Observation1.MissingFields(category); len(missing) > 0 {
		return fmt.Errorf("observation 1 is incomplete: missing %s", strings.Join(missing, ", "))
	}
	if data.Observation2.Started() {
		if missing := data.Observation2.MissingFields(category); len(missing) > 0 {
			return fmt.Errorf("observation 2 was started but is incomplete: missing %s", strings.Join(missing, ", "))
		}
	}
	return nil
}

func validateTargetActuals(data *models.AppraisalData) error {
	for i := range data.Targets {
		if strings.TrimSpace(data.Targets[i].Actual) == "" {
			return fmt.Errorf("target %d (%s) has no actual value recorded", i+1, data.Targets[i].Area)
		}
	}
	return nil
}
