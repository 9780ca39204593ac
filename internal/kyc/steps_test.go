package kyc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "verigate/pkg/domain"
)

// TestSteps_ForwardOnly validates the checklist invariant: steps move
// forward through not_started, in_progress, completed and never regress.
func TestSteps_ForwardOnly(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("submission seeds personal_info completed", func(t *testing.T) {
		steps := NewSteps(now, true)
		require.Len(t, steps, 3)

		c := &VerificationCase{Steps: steps}
		assert.Equal(t, id.StepCompleted, c.StepByName(id.StepPersonalInfo).Status)
		assert.Equal(t, id.StepNotStarted, c.StepByName(id.StepDocumentUpload).Status)
		assert.Equal(t, id.StepNotStarted, c.StepByName(id.StepReviewSubmission).Status)
	})

	t.Run("checklist keeps its seeded sequence", func(t *testing.T) {
		steps := NewSteps(now, true)
		require.Len(t, steps, 3)
		assert.Equal(t, id.StepPersonalInfo, steps[0].Name)
		assert.Equal(t, id.StepDocumentUpload, steps[1].Name)
		assert.Equal(t, id.StepReviewSubmission, steps[2].Name)
		for i, step := range steps {
			assert.Equal(t, i+1, step.Order)
		}
	})

	t.Run("implicit case leaves personal_info untouched", func(t *testing.T) {
		c := &VerificationCase{Steps: NewSteps(now, false)}
		assert.Equal(t, id.StepNotStarted, c.StepByName(id.StepPersonalInfo).Status)
	})

	t.Run("advance moves forward", func(t *testing.T) {
		c := &VerificationCase{Steps: NewSteps(now, false)}
		later := now.Add(time.Hour)

		AdvanceStep(c, id.StepDocumentUpload, id.StepInProgress, later)
		step := c.StepByName(id.StepDocumentUpload)
		assert.Equal(t, id.StepInProgress, step.Status)
		assert.Equal(t, later, step.UpdatedAt)
	})

	t.Run("advance never regresses", func(t *testing.T) {
		c := &VerificationCase{Steps: NewSteps(now, true)}
		later := now.Add(time.Hour)

		AdvanceStep(c, id.StepPersonalInfo, id.StepInProgress, later)
		step := c.StepByName(id.StepPersonalInfo)
		assert.Equal(t, id.StepCompleted, step.Status)
		assert.Equal(t, now, step.UpdatedAt)
	})

	t.Run("repeated advance is idempotent", func(t *testing.T) {
		c := &VerificationCase{Steps: NewSteps(now, false)}

		AdvanceStep(c, id.StepDocumentUpload, id.StepInProgress, now.Add(time.Hour))
		AdvanceStep(c, id.StepDocumentUpload, id.StepInProgress, now.Add(2*time.Hour))

		step := c.StepByName(id.StepDocumentUpload)
		assert.Equal(t, id.StepInProgress, step.Status)
		assert.Equal(t, now.Add(time.Hour), step.UpdatedAt)
	})

	t.Run("complete all closes the checklist", func(t *testing.T) {
		c := &VerificationCase{Steps: NewSteps(now, true)}
		later := now.Add(time.Hour)

		CompleteAllSteps(c, later)
		for _, step := range c.Steps {
			assert.Equal(t, id.StepCompleted, step.Status)
		}
		// Already-completed steps keep their original timestamp.
		assert.Equal(t, now, c.StepByName(id.StepPersonalInfo).UpdatedAt)
		assert.Equal(t, later, c.StepByName(id.StepDocumentUpload).UpdatedAt)
	})
}

func TestApprovalValid(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(365 * 24 * time.Hour)

	t.Run("approved and unexpired", func(t *testing.T) {
		c := &VerificationCase{Status: id.CaseApproved, ExpiresAt: &expires}
		assert.True(t, c.ApprovalValid(now))
	})

	t.Run("approved but expired", func(t *testing.T) {
		c := &VerificationCase{Status: id.CaseApproved, ExpiresAt: &expires}
		assert.False(t, c.ApprovalValid(expires.Add(time.Second)))
	})

	t.Run("open case is never a valid approval", func(t *testing.T) {
		c := &VerificationCase{Status: id.CasePending}
		assert.False(t, c.ApprovalValid(now))
	})
}

func TestPlaceholderPersonalData(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	data := PlaceholderPersonalData(now)
	assert.True(t, data.Placeholder())
	assert.False(t, PersonalData{FirstName: "Ada", LastName: "Lovelace"}.Placeholder())
}
