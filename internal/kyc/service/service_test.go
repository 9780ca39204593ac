package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"verigate/internal/audit"
	"verigate/internal/identity"
	"verigate/internal/kyc"
	"verigate/internal/kyc/metrics"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/sentinel"
	"verigate/pkg/requestcontext"
)

// ============================================================================
// Test Suite Setup
// ============================================================================

var kycMetrics *metrics.Metrics
var metricsOnce sync.Once

type KYCServiceSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	store      *kyc.InMemoryStore
	auditStore *audit.InMemoryStore
	recorder   *audit.Recorder
	service    *Service

	applicant *identity.Principal
	reviewer  *identity.Principal
	admin     *identity.Principal
}

func TestKYCServiceSuite(t *testing.T) {
	suite.Run(t, new(KYCServiceSuite))
}

func (s *KYCServiceSuite) SetupTest() {
	// Prometheus collectors register globally; create them once.
	metricsOnce.Do(func() { kycMetrics = metrics.New() })

	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = kyc.NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.recorder = audit.NewRecorder(s.auditStore, nil, logger)
	s.service = NewService(s.store, s.recorder, s.auditStore, logger,
		kycMetrics, kyc.NewKeyedLocks(), 365*24*time.Hour, time.Second)

	s.applicant = &identity.Principal{ID: id.NewUserID(), Role: id.RoleUser}
	s.reviewer = &identity.Principal{ID: id.NewUserID(), Role: id.RoleKYCReviewer}
	s.admin = &identity.Principal{ID: id.NewUserID(), Role: id.RoleAdmin}
}

func (s *KYCServiceSuite) flushAudit() {
	s.recorder.Close()
}

func validData() kyc.PersonalData {
	return kyc.PersonalData{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		DateOfBirth: time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC),
		Nationality: "British",
		Address:     "12 Analytical Engine Way, London",
		PhoneNumber: "+442071234567",
	}
}

// ============================================================================
// Submit
// ============================================================================

func (s *KYCServiceSuite) TestSubmitOpensPendingCase() {
	c, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)

	s.Equal(id.CasePending, c.Status)
	s.Equal(s.applicant.ID, c.UserID)
	s.Equal(id.StepCompleted, c.StepByName(id.StepPersonalInfo).Status)
	s.Equal(id.StepNotStarted, c.StepByName(id.StepDocumentUpload).Status)

	s.flushAudit()
	records, err := s.auditStore.ListByTarget(s.ctx, audit.TargetCase, c.ID.String())
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(audit.ActionCaseSubmitted, records[0].Action)
	s.Equal(s.applicant.ID, records[0].ActorID)
}

func (s *KYCServiceSuite) TestSubmitRejectsInvalidData() {
	cases := []struct {
		name   string
		mutate func(*kyc.PersonalData)
		field  string
	}{
		{"short first name", func(d *kyc.PersonalData) { d.FirstName = "A" }, "first_name"},
		{"short last name", func(d *kyc.PersonalData) { d.LastName = " B " }, "last_name"},
		{"underage", func(d *kyc.PersonalData) { d.DateOfBirth = s.now.AddDate(-17, 0, 0) }, "date_of_birth"},
		{"blank nationality", func(d *kyc.PersonalData) { d.Nationality = " " }, "nationality"},
		{"short address", func(d *kyc.PersonalData) { d.Address = "nowhere" }, "address"},
		{"bad phone", func(d *kyc.PersonalData) { d.PhoneNumber = "call me" }, "phone_number"},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			data := validData()
			tc.mutate(&data)

			_, err := s.service.Submit(s.ctx, s.applicant, data)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func (s *KYCServiceSuite) TestSubmitAcceptsExactlyEighteen() {
	data := validData()
	data.DateOfBirth = s.now.AddDate(-18, 0, 0)

	_, err := s.service.Submit(s.ctx, s.applicant, data)
	s.NoError(err)
}

func (s *KYCServiceSuite) TestSubmitWithOpenCaseFails() {
	_, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)

	_, err = s.service.Submit(s.ctx, s.applicant, validData())
	s.True(dErrors.HasCode(err, dErrors.CodeCaseAlreadyOpen))
}

func (s *KYCServiceSuite) TestSubmitAfterRejectionSucceeds() {
	c, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)

	_, err = s.service.Review(s.ctx, s.reviewer, kyc.ReviewRequest{
		CaseID:   c.ID,
		Decision: kyc.DecisionReject,
		Reason:   "document illegible",
	})
	s.Require().NoError(err)

	fresh, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)
	s.NotEqual(c.ID, fresh.ID)
	s.Equal(id.CasePending, fresh.Status)
}

func (s *KYCServiceSuite) TestSubmitWithValidApprovalFails() {
	c, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)

	_, err = s.service.Review(s.ctx, s.reviewer, kyc.ReviewRequest{
		CaseID:   c.ID,
		Decision: kyc.DecisionApprove,
	})
	s.Require().NoError(err)

	_, err = s.service.Submit(s.ctx, s.applicant, validData())
	s.True(dErrors.HasCode(err, dErrors.CodeCaseAlreadyApproved))
}

func (s *KYCServiceSuite) TestSubmitAfterApprovalExpirySucceeds() {
	c, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)

	_, err = s.service.Review(s.ctx, s.reviewer, kyc.ReviewRequest{
		CaseID:   c.ID,
		Decision: kyc.DecisionApprove,
	})
	s.Require().NoError(err)

	// Two years later the approval has lapsed.
	later := requestcontext.WithTime(context.Background(), s.now.AddDate(2, 0, 0))
	fresh, err := s.service.Submit(later, s.applicant, validData())
	s.Require().NoError(err)
	s.Equal(id.CasePending, fresh.Status)
}

func (s *KYCServiceSuite) TestSubmitStoreUnavailable() {
	s.store.SetFailing(true)

	_, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

// wedgedStore hangs every approval lookup until the caller's deadline fires,
// standing in for a backend that accepts connections but never answers.
type wedgedStore struct {
	kyc.Store
}

func (wedgedStore) FindValidApprovalByUser(ctx context.Context, _ id.UserID, _ time.Time) (*kyc.VerificationCase, error) {
	<-ctx.Done()
	return nil, fmt.Errorf("%w: %v", sentinel.ErrUnavailable, ctx.Err())
}

func (s *KYCServiceSuite) TestSubmitBoundsStoreWait() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(wedgedStore{s.store}, s.recorder, s.auditStore, logger,
		kycMetrics, kyc.NewKeyedLocks(), 365*24*time.Hour, 50*time.Millisecond)

	start := time.Now()
	_, err := service.Submit(s.ctx, s.applicant, validData())
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Less(time.Since(start), 5*time.Second)
}

// ============================================================================
// Status
// ============================================================================

func (s *KYCServiceSuite) TestStatusReturnsOwnCase() {
	c, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)

	found, err := s.service.Status(s.ctx, s.applicant, s.applicant.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, found.ID)
}

func (s *KYCServiceSuite) TestStatusDeniedForOtherUser() {
	_, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)

	other := &identity.Principal{ID: id.NewUserID(), Role: id.RoleUser}
	_, err = s.service.Status(s.ctx, other, s.applicant.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeOwnershipRequired))
}

func (s *KYCServiceSuite) TestStatusAdminOverride() {
	c, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)

	found, err := s.service.Status(s.ctx, s.admin, s.applicant.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, found.ID)
}

func (s *KYCServiceSuite) TestStatusNoCase() {
	_, err := s.service.Status(s.ctx, s.applicant, s.applicant.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// ============================================================================
// Review
// ============================================================================

func (s *KYCServiceSuite) TestReviewRequiresReviewerRole() {
	c, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)

	_, err = s.service.Review(s.ctx, s.applicant, kyc.ReviewRequest{
		CaseID:   c.ID,
		Decision: kyc.DecisionApprove,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientRole))
}

func (s *KYCServiceSuite) TestApproveSetsExpiryAndCompletesChecklist() {
	c, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)

	decided, err := s.service.Review(s.ctx, s.reviewer, kyc.ReviewRequest{
		CaseID:   c.ID,
		Decision: kyc.DecisionApprove,
		RiskTier: id.RiskLow,
	})
	s.Require().NoError(err)

	s.Equal(id.CaseApproved, decided.Status)
	s.Require().NotNil(decided.ExpiresAt)
	s.Equal(s.now.Add(365*24*time.Hour), *decided.ExpiresAt)
	s.Equal(id.RiskLow, decided.RiskTier)
	s.Require().NotNil(decided.ReviewedBy)
	s.Equal(s.reviewer.ID, *decided.ReviewedBy)
	for _, step := range decided.Steps {
		s.Equal(id.StepCompleted, step.Status)
	}

	s.flushAudit()
	records, err := s.auditStore.ListByTarget(s.ctx, audit.TargetCase, c.ID.String())
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(audit.ActionCaseApproved, records[0].Action)
	s.JSONEq(`{"status":"pending"}`, string(records[0].Before))
}

func (s *KYCServiceSuite) TestRejectRequiresReason() {
	c, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)

	_, err = s.service.Review(s.ctx, s.reviewer, kyc.ReviewRequest{
		CaseID:   c.ID,
		Decision: kyc.DecisionReject,
		Reason:   "   ",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *KYCServiceSuite) TestRejectStoresReason() {
	c, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)

	decided, err := s.service.Review(s.ctx, s.reviewer, kyc.ReviewRequest{
		CaseID:   c.ID,
		Decision: kyc.DecisionReject,
		Reason:   "document illegible",
	})
	s.Require().NoError(err)
	s.Equal(id.CaseRejected, decided.Status)
	s.Equal("document illegible", decided.RejectionReason)
	s.Nil(decided.ExpiresAt)
}

func (s *KYCServiceSuite) TestSelfReviewBlocked() {
	reviewerAsApplicant := &identity.Principal{ID: s.reviewer.ID, Role: id.RoleUser}
	c, err := s.service.Submit(s.ctx, reviewerAsApplicant, validData())
	s.Require().NoError(err)

	_, err = s.service.Review(s.ctx, s.reviewer, kyc.ReviewRequest{
		CaseID:   c.ID,
		Decision: kyc.DecisionApprove,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *KYCServiceSuite) TestReviewTerminalCaseFails() {
	c, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)

	_, err = s.service.Review(s.ctx, s.reviewer, kyc.ReviewRequest{
		CaseID:   c.ID,
		Decision: kyc.DecisionReject,
		Reason:   "document illegible",
	})
	s.Require().NoError(err)

	_, err = s.service.Review(s.ctx, s.reviewer, kyc.ReviewRequest{
		CaseID:   c.ID,
		Decision: kyc.DecisionApprove,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *KYCServiceSuite) TestReviewUnknownCase() {
	_, err := s.service.Review(s.ctx, s.reviewer, kyc.ReviewRequest{
		CaseID:   id.NewCaseID(),
		Decision: kyc.DecisionApprove,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *KYCServiceSuite) TestReviewUnknownDecision() {
	c, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)

	_, err = s.service.Review(s.ctx, s.reviewer, kyc.ReviewRequest{
		CaseID:   c.ID,
		Decision: kyc.Decision("escalate"),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// ============================================================================
// List
// ============================================================================

func (s *KYCServiceSuite) TestListRequiresReviewer() {
	_, err := s.service.List(s.ctx, s.applicant, kyc.ListFilter{})
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientRole))
}

func (s *KYCServiceSuite) TestListPagesWithTotal() {
	for i := 0; i < 5; i++ {
		applicant := &identity.Principal{ID: id.NewUserID(), Role: id.RoleUser}
		_, err := s.service.Submit(s.ctx, applicant, validData())
		s.Require().NoError(err)
	}

	list, err := s.service.List(s.ctx, s.reviewer, kyc.ListFilter{Limit: 2})
	s.Require().NoError(err)
	s.Len(list.Cases, 2)
	s.Equal(5, list.Total)
	s.Equal(2, list.Limit)
}

func (s *KYCServiceSuite) TestListClampsLimit() {
	list, err := s.service.List(s.ctx, s.reviewer, kyc.ListFilter{Limit: 1000})
	s.Require().NoError(err)
	s.Equal(100, list.Limit)

	list, err = s.service.List(s.ctx, s.reviewer, kyc.ListFilter{})
	s.Require().NoError(err)
	s.Equal(20, list.Limit)
}

func (s *KYCServiceSuite) TestListRejectsUnknownSort() {
	_, err := s.service.List(s.ctx, s.reviewer, kyc.ListFilter{SortBy: "first_name"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// ============================================================================
// AuditTrail
// ============================================================================

func (s *KYCServiceSuite) TestAuditTrailAdminOnly() {
	c, err := s.service.Submit(s.ctx, s.applicant, validData())
	s.Require().NoError(err)

	_, err = s.service.AuditTrail(s.ctx, s.reviewer, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientRole))

	s.flushAudit()
	records, err := s.service.AuditTrail(s.ctx, s.admin, c.ID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(audit.ActionCaseSubmitted, records[0].Action)
}
