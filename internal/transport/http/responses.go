package httptransport

import (
	"encoding/json"
	"time"

	"verigate/internal/audit"
	"verigate/internal/document"
	"verigate/internal/identity"
	"verigate/internal/kyc"
	id "verigate/pkg/domain"
)

// SessionResponse is the caller's own resolved principal. Degraded marks a
// least-privilege fallback built from token claims during a store outage.
type SessionResponse struct {
	UserID        id.UserID `json:"user_id"`
	Email         string    `json:"email,omitempty"`
	Role          string    `json:"role"`
	AccountStatus string    `json:"account_status"`
	Degraded      bool      `json:"degraded"`
}

// FromPrincipal maps a resolved principal to the session view.
func FromPrincipal(p *identity.Principal) SessionResponse {
	return SessionResponse{
		UserID:        p.ID,
		Email:         p.Email,
		Role:          p.Role.String(),
		AccountStatus: p.AccountStatus.String(),
		Degraded:      p.Degraded,
	}
}

// PersonalDataResponse echoes the applicant details attached to a case.
type PersonalDataResponse struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	Nationality string `json:"nationality"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
}

// StepResponse is one checklist item.
type StepResponse struct {
	Name      string    `json:"name"`
	Order     int       `json:"order"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CaseResponse is the full case view returned by submit, status and review.
type CaseResponse struct {
	ID              id.CaseID            `json:"id"`
	UserID          id.UserID            `json:"user_id"`
	Status          string               `json:"status"`
	PersonalData    PersonalDataResponse `json:"personal_data"`
	Steps           []StepResponse       `json:"steps"`
	RiskTier        string               `json:"risk_tier,omitempty"`
	RejectionReason string               `json:"rejection_reason,omitempty"`
	ReviewedBy      *id.UserID           `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time           `json:"reviewed_at,omitempty"`
	ExpiresAt       *time.Time           `json:"expires_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// FromCase maps a verification case to its response shape.
func FromCase(c *kyc.VerificationCase) CaseResponse {
	steps := make([]StepResponse, 0, len(c.Steps))
	for _, s := range c.Steps {
		steps = append(steps, StepResponse{
			Name:      s.Name.String(),
			Order:     s.Order,
			Status:    s.Status.String(),
			UpdatedAt: s.UpdatedAt,
		})
	}
	return CaseResponse{
		ID:     c.ID,
		UserID: c.UserID,
		Status: c.Status.String(),
		PersonalData: PersonalDataResponse{
			FirstName:   c.PersonalData.FirstName,
			LastName:    c.PersonalData.LastName,
			DateOfBirth: c.PersonalData.DateOfBirth.Format("2006-01-02"),
			Nationality: c.PersonalData.Nationality,
			Address:     c.PersonalData.Address,
			PhoneNumber: c.PersonalData.PhoneNumber,
		},
		Steps:           steps,
		RiskTier:        c.RiskTier.String(),
		RejectionReason: c.RejectionReason,
		ReviewedBy:      c.ReviewedBy,
		ReviewedAt:      c.ReviewedAt,
		ExpiresAt:       c.ExpiresAt,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// CaseSummaryResponse is the queue listing projection.
type CaseSummaryResponse struct {
	ID         id.CaseID  `json:"id"`
	UserID     id.UserID  `json:"user_id"`
	Status     string     `json:"status"`
	RiskTier   string     `json:"risk_tier,omitempty"`
	ReviewedBy *id.UserID `json:"reviewed_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CaseListResponse is one page of the queue plus the unpaged total.
type CaseListResponse struct {
	Cases  []CaseSummaryResponse `json:"cases"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// FromCaseList maps a listing page to its response shape.
func FromCaseList(list *kyc.CaseList) CaseListResponse {
	cases := make([]CaseSummaryResponse, 0, len(list.Cases))
	for _, c := range list.Cases {
		cases = append(cases, CaseSummaryResponse{
			ID:         c.ID,
			UserID:     c.UserID,
			Status:     c.Status.String(),
			RiskTier:   c.RiskTier.String(),
			ReviewedBy: c.ReviewedBy,
			CreatedAt:  c.CreatedAt,
			UpdatedAt:  c.UpdatedAt,
		})
	}
	return CaseListResponse{
		Cases:  cases,
		Total:  list.Total,
		Limit:  list.Limit,
		Offset: list.Offset,
	}
}

// DocumentResponse is the metadata view of an uploaded document. The storage
// locator stays internal.
type DocumentResponse struct {
	ID          id.DocumentID `json:"id"`
	CaseID      id.CaseID     `json:"case_id"`
	Type        string        `json:"document_type"`
	Status      string        `json:"status"`
	FileName    string        `json:"file_name"`
	ContentType string        `json:"content_type"`
	SizeBytes   int64         `json:"size_bytes"`
	SHA256      string        `json:"sha256"`
	UploadedAt  time.Time     `json:"uploaded_at"`
}

// FromDocument maps a document record to its response shape.
func FromDocument(d *document.Document) DocumentResponse {
	return DocumentResponse{
		ID:          d.ID,
		CaseID:      d.CaseID,
		Type:        d.Type.String(),
		Status:      d.Status.String(),
		FileName:    d.FileName,
		ContentType: d.ContentType,
		SizeBytes:   d.SizeBytes,
		SHA256:      d.SHA256,
		UploadedAt:  d.UploadedAt,
	}
}

// AuditRecordResponse is one immutable audit trail entry.
type AuditRecordResponse struct {
	ID         string          `json:"id"`
	OccurredAt time.Time       `json:"occurred_at"`
	ActorID    id.UserID       `json:"actor_id"`
	Action     string          `json:"action"`
	TargetType string          `json:"target_type"`
	TargetID   string          `json:"target_id"`
	Reason     string          `json:"reason,omitempty"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	IP         string          `json:"ip,omitempty"`
	UserAgent  string          `json:"user_agent,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
}

// FromAuditRecords maps audit rows to the response shape.
func FromAuditRecords(records []audit.Record) []AuditRecordResponse {
	out := make([]AuditRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, AuditRecordResponse{
			ID:         rec.ID,
			OccurredAt: rec.Timestamp,
			ActorID:    rec.ActorID,
			Action:     string(rec.Action),
			TargetType: string(rec.TargetType),
			TargetID:   rec.TargetID,
			Reason:     rec.Reason,
			Before:     rec.Before,
			After:      rec.After,
			IP:         rec.IP,
			UserAgent:  rec.UserAgent,
			RequestID:  rec.RequestID,
		})
	}
	return out
}
