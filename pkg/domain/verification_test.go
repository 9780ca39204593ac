package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaseStatusBuckets(t *testing.T) {
	assert.True(t, CasePending.IsOpen())
	assert.True(t, CaseUnderReview.IsOpen())
	assert.False(t, CaseApproved.IsOpen())
	assert.False(t, CaseRejected.IsOpen())

	assert.False(t, CasePending.IsTerminal())
	assert.False(t, CaseUnderReview.IsTerminal())
	assert.True(t, CaseApproved.IsTerminal())
	assert.True(t, CaseRejected.IsTerminal())
}

func TestParseCaseStatus(t *testing.T) {
	status, err := ParseCaseStatus("under_review")
	assert.NoError(t, err)
	assert.Equal(t, CaseUnderReview, status)

	_, err = ParseCaseStatus("open")
	assert.Error(t, err)
}

func TestStepStatusForwardOrdering(t *testing.T) {
	assert.True(t, StepNotStarted.Before(StepInProgress))
	assert.True(t, StepInProgress.Before(StepCompleted))
	assert.False(t, StepCompleted.Before(StepInProgress))
	assert.False(t, StepInProgress.Before(StepInProgress))
}

func TestParseDocumentType(t *testing.T) {
	for _, name := range []string{"identity_front", "identity_back", "proof_of_address", "selfie_verification"} {
		dt, err := ParseDocumentType(name)
		assert.NoError(t, err, name)
		assert.Equal(t, name, dt.String())
	}

	_, err := ParseDocumentType("passport")
	assert.Error(t, err)
}

func TestParseRiskTier(t *testing.T) {
	tier, err := ParseRiskTier("high")
	assert.NoError(t, err)
	assert.Equal(t, RiskHigh, tier)

	// Reviewers may omit a tier.
	tier, err = ParseRiskTier("")
	assert.NoError(t, err)
	assert.Equal(t, RiskTier(""), tier)

	_, err = ParseRiskTier("extreme")
	assert.Error(t, err)
}
