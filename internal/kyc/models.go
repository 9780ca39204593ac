package kyc

import (
	"time"

	id "verigate/pkg/domain"
)

// PersonalData is the applicant-supplied identity information attached to a
// verification case. Validated at submission; a placeholder instance is used
// when a case is opened implicitly by a document upload.
type PersonalData struct {
	FirstName   string
	LastName    string
	DateOfBirth time.Time
	Nationality string
	Address     string
	PhoneNumber string
}

// Placeholder marks personal data seeded by an implicit case creation.
// The applicant must replace it with a real submission before review.
func (p PersonalData) Placeholder() bool {
	return p.FirstName == "Pending" && p.LastName == "Pending"
}

// PlaceholderPersonalData is stored when a document upload opens a case
// before the applicant has submitted their details.
func PlaceholderPersonalData(now time.Time) PersonalData {
	return PersonalData{
		FirstName:   "Pending",
		LastName:    "Pending",
		DateOfBirth: now.AddDate(-18, 0, 0),
		Nationality: "Pending",
		Address:     "Pending submission",
		PhoneNumber: "+00000000000",
	}
}

// Step is one item of a case's verification checklist. Order fixes the
// checklist position so every store returns steps in the seeded sequence.
type Step struct {
	Name      id.StepName
	Order     int
	Status    id.StepStatus
	UpdatedAt time.Time
}

// VerificationCase is the aggregate tracking one applicant's identity
// verification from submission through decision.
type VerificationCase struct {
	ID           id.CaseID
	UserID       id.UserID
	Status       id.CaseStatus
	PersonalData PersonalData
	Steps        []Step
	RiskTier     id.RiskTier
	// RejectionReason is set only for rejected cases.
	RejectionReason string
	ReviewedBy      *id.UserID
	ReviewedAt      *time.Time
	// ExpiresAt bounds the validity of an approval.
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StepByName returns a pointer to the named step, or nil.
func (c *VerificationCase) StepByName(name id.StepName) *Step {
	for i := range c.Steps {
		if c.Steps[i].Name == name {
			return &c.Steps[i]
		}
	}
	return nil
}

// ApprovalValid reports whether the case is an approval still in force at t.
func (c *VerificationCase) ApprovalValid(t time.Time) bool {
	if c.Status != id.CaseApproved {
		return false
	}
	return c.ExpiresAt == nil || c.ExpiresAt.After(t)
}

// Decision is a reviewer's verdict on a case.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ReviewRequest carries a reviewer's decision into the service.
type ReviewRequest struct {
	CaseID   id.CaseID
	Decision Decision
	Reason   string
	RiskTier id.RiskTier
}

// ListFilter narrows and pages the administrative case listing.
type ListFilter struct {
	Status   id.CaseStatus
	UserID   id.UserID
	RiskTier id.RiskTier
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// CaseSummary is the listing projection: enough to triage a queue without
// loading personal data or steps.
type CaseSummary struct {
	ID         id.CaseID
	UserID     id.UserID
	Status     id.CaseStatus
	RiskTier   id.RiskTier
	ReviewedBy *id.UserID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CaseList is one page of summaries plus the unpaged total.
type CaseList struct {
	Cases  []CaseSummary
	Total  int
	Limit  int
	Offset int
}
