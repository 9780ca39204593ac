package domain

import dErrors "verigate/pkg/domain-errors"

// CaseStatus is the lifecycle state of a VerificationCase.
//
// pending and under_review form the single "open" bucket for the
// one-open-case-per-principal invariant; approved and rejected are terminal.
type CaseStatus string

const (
	CasePending     CaseStatus = "pending"
	CaseUnderReview CaseStatus = "under_review"
	CaseApproved    CaseStatus = "approved"
	CaseRejected    CaseStatus = "rejected"
)

var validCaseStatuses = map[CaseStatus]bool{
	CasePending:     true,
	CaseUnderReview: true,
	CaseApproved:    true,
	CaseRejected:    true,
}

// ParseCaseStatus constructs a CaseStatus from external input.
func ParseCaseStatus(s string) (CaseStatus, error) {
	st := CaseStatus(s)
	if !validCaseStatuses[st] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid case status")
	}
	return st, nil
}

func (s CaseStatus) String() string { return string(s) }

// IsOpen reports whether the case still accepts documents and decisions.
func (s CaseStatus) IsOpen() bool { return s == CasePending || s == CaseUnderReview }

// IsTerminal reports whether no further transitions are permitted.
func (s CaseStatus) IsTerminal() bool { return s == CaseApproved || s == CaseRejected }

// StepStatus is the state of one checklist item. Steps only move forward.
type StepStatus string

const (
	StepNotStarted StepStatus = "not_started"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
)

// stepOrder defines forward-only progression for checklist items.
var stepOrder = map[StepStatus]int{
	StepNotStarted: 0,
	StepInProgress: 1,
	StepCompleted:  2,
}

// Before reports whether s precedes other in the forward-only ordering.
func (s StepStatus) Before(other StepStatus) bool {
	return stepOrder[s] < stepOrder[other]
}

func (s StepStatus) String() string { return string(s) }

// StepName identifies a checklist item within a case.
type StepName string

const (
	StepPersonalInfo     StepName = "personal_info"
	StepDocumentUpload   StepName = "document_upload"
	StepReviewSubmission StepName = "review_submission"
)

func (n StepName) String() string { return string(n) }

// DocumentType is the closed enum of accepted evidentiary document kinds.
type DocumentType string

const (
	DocumentIdentityFront  DocumentType = "identity_front"
	DocumentIdentityBack   DocumentType = "identity_back"
	DocumentProofOfAddress DocumentType = "proof_of_address"
	DocumentSelfie         DocumentType = "selfie_verification"
)

var validDocumentTypes = map[DocumentType]bool{
	DocumentIdentityFront:  true,
	DocumentIdentityBack:   true,
	DocumentProofOfAddress: true,
	DocumentSelfie:         true,
}

// ParseDocumentType constructs a DocumentType from external input.
func ParseDocumentType(s string) (DocumentType, error) {
	dt := DocumentType(s)
	if !validDocumentTypes[dt] {
		return "", dErrors.New(dErrors.CodeInvalidInput,
			"invalid document type, must be one of: identity_front, identity_back, proof_of_address, selfie_verification")
	}
	return dt, nil
}

func (t DocumentType) String() string { return string(t) }

// DocumentStatus is the review state of one uploaded document.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentApproved DocumentStatus = "approved"
	DocumentRejected DocumentStatus = "rejected"
)

func (s DocumentStatus) String() string { return string(s) }

// RiskTier is the reviewer-assigned risk classification of a case.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

var validRiskTiers = map[RiskTier]bool{
	RiskLow:    true,
	RiskMedium: true,
	RiskHigh:   true,
}

// ParseRiskTier constructs a RiskTier from external input. Empty input is
// allowed and returns the zero value; reviewers may omit a tier.
func ParseRiskTier(s string) (RiskTier, error) {
	if s == "" {
		return "", nil
	}
	rt := RiskTier(s)
	if !validRiskTiers[rt] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid risk tier")
	}
	return rt, nil
}

func (t RiskTier) String() string { return string(t) }
