package kyc

import (
	"time"

	id "verigate/pkg/domain"
)

// NewSteps seeds the checklist for a fresh case. A real submission completes
// personal_info immediately; an implicit case opened by an upload leaves it
// untouched until the applicant submits.
func NewSteps(now time.Time, personalInfoDone bool) []Step {
	personalInfo := id.StepNotStarted
	if personalInfoDone {
		personalInfo = id.StepCompleted
	}
	return []Step{
		{Name: id.StepPersonalInfo, Order: 1, Status: personalInfo, UpdatedAt: now},
		{Name: id.StepDocumentUpload, Order: 2, Status: id.StepNotStarted, UpdatedAt: now},
		{Name: id.StepReviewSubmission, Order: 3, Status: id.StepNotStarted, UpdatedAt: now},
	}
}

// AdvanceStep moves a step forward to the target status. Steps never move
// backwards: a regression request is a no-op, not an error, so repeated
// uploads or resubmissions stay idempotent.
func AdvanceStep(c *VerificationCase, name id.StepName, target id.StepStatus, now time.Time) {
	step := c.StepByName(name)
	if step == nil {
		c.Steps = append(c.Steps, Step{
			Name: name, Order: len(c.Steps) + 1, Status: target, UpdatedAt: now})
		return
	}
	if step.Status.Before(target) {
		step.Status = target
		step.UpdatedAt = now
	}
}

// CompleteAllSteps marks every checklist item completed. Used when a
// reviewer approves: the decision subsumes any remaining checklist state.
func CompleteAllSteps(c *VerificationCase, now time.Time) {
	for i := range c.Steps {
		if c.Steps[i].Status != id.StepCompleted {
			c.Steps[i].Status = id.StepCompleted
			c.Steps[i].UpdatedAt = now
		}
	}
}
