package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"verigate/internal/audit"
	"verigate/internal/guard"
	"verigate/internal/identity"
	"verigate/internal/kyc"
	"verigate/internal/kyc/metrics"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/sentinel"
	"verigate/pkg/requestcontext"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\s\-()]{6,19}$`)

// Service owns the verification case state machine: submission, status
// queries, reviewer decisions, and the administrative listing.
type Service struct {
	store    kyc.Store
	recorder *audit.Recorder
	auditLog audit.Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	// approvalValidity bounds how long an approval stays in force.
	approvalValidity time.Duration
	// storeTimeout bounds every durable-store call.
	storeTimeout time.Duration

	// caseLocks serializes mutations per principal; shared with the document
	// intake pipeline so uploads and submissions cannot race the
	// single-open-case invariant.
	caseLocks *kyc.KeyedLocks
}

func NewService(
	store kyc.Store,
	recorder *audit.Recorder,
	auditLog audit.Store,
	logger *slog.Logger,
	m *metrics.Metrics,
	locks *kyc.KeyedLocks,
	approvalValidity time.Duration,
	storeTimeout time.Duration,
) *Service {
	return &Service{
		store:            store,
		recorder:         recorder,
		auditLog:         auditLog,
		logger:           logger,
		metrics:          m,
		tracer:           otel.Tracer("verigate/kyc"),
		approvalValidity: approvalValidity,
		storeTimeout:     storeTimeout,
		caseLocks:        locks,
	}
}

// Submit opens a new verification case for the actor. At most one open case
// per principal: an open case fails with case_already_open and a still-valid
// approval with case_already_approved. The personal-info step completes
// immediately since submission supplies it.
func (s *Service) Submit(ctx context.Context, actor *identity.Principal, data kyc.PersonalData) (*kyc.VerificationCase, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.Submit",
		trace.WithAttributes(attribute.String("user_id", actor.ID.String())))
	defer span.End()

	now := requestcontext.Now(ctx)
	if err := validatePersonalData(data, now); err != nil {
		return nil, err
	}

	unlock := s.caseLocks.Lock(actor.ID.String())
	defer unlock()

	storeCtx, cancel := s.boundStore(ctx)
	defer cancel()

	if _, err := s.store.FindValidApprovalByUser(storeCtx, actor.ID, now); err == nil {
		return nil, dErrors.New(dErrors.CodeCaseAlreadyApproved,
			"identity verification has already been approved")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, storeFailure(ctx, s.logger, "find approval", err)
	}

	if _, err := s.store.FindOpenByUser(storeCtx, actor.ID); err == nil {
		return nil, dErrors.New(dErrors.CodeCaseAlreadyOpen,
			"a verification case is already open")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, storeFailure(ctx, s.logger, "find open case", err)
	}

	c := &kyc.VerificationCase{
		ID:           id.NewCaseID(),
		UserID:       actor.ID,
		Status:       id.CasePending,
		PersonalData: data,
		Steps:        kyc.NewSteps(now, true),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(storeCtx, c); err != nil {
		return nil, storeFailure(ctx, s.logger, "create case", err)
	}

	s.metrics.SubmissionsTotal.Inc()
	s.recorder.Record(ctx, audit.Record{
		ActorID:    actor.ID,
		Action:     audit.ActionCaseSubmitted,
		TargetType: audit.TargetCase,
		TargetID:   c.ID.String(),
		After:      audit.Snapshot(statusSnapshot(c)),
	})
	return c, nil
}

// Status returns the subject's latest case. Non-administrative actors may
// only query their own.
func (s *Service) Status(ctx context.Context, actor *identity.Principal, subject id.UserID) (*kyc.VerificationCase, error) {
	if err := guard.RequireOwnership(actor, subject); err != nil {
		return nil, err
	}

	storeCtx, cancel := s.boundStore(ctx)
	defer cancel()

	c, err := s.store.FindLatestByUser(storeCtx, subject)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no verification case found")
	}
	if err != nil {
		return nil, storeFailure(ctx, s.logger, "find latest case", err)
	}

	s.recorder.Record(ctx, audit.Record{
		ActorID:    actor.ID,
		Action:     audit.ActionStatusViewed,
		TargetType: audit.TargetCase,
		TargetID:   c.ID.String(),
	})
	return c, nil
}

// Review applies a reviewer decision. Both outcomes are terminal; approval
// sets the validity window and completes the checklist, rejection requires a
// reason. A reviewer never decides their own case.
func (s *Service) Review(ctx context.Context, actor *identity.Principal, req kyc.ReviewRequest) (*kyc.VerificationCase, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.Review",
		trace.WithAttributes(
			attribute.String("case_id", req.CaseID.String()),
			attribute.String("decision", string(req.Decision))))
	defer span.End()

	if err := guard.RequireReviewer(actor); err != nil {
		return nil, err
	}
	if req.Decision != kyc.DecisionApprove && req.Decision != kyc.DecisionReject {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			"decision must be approve or reject")
	}
	if req.Decision == kyc.DecisionReject && strings.TrimSpace(req.Reason) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			"a rejection requires a reason")
	}

	findCtx, cancelFind := s.boundStore(ctx)
	c, err := s.store.FindByID(findCtx, req.CaseID)
	cancelFind()
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "verification case not found")
	}
	if err != nil {
		return nil, storeFailure(ctx, s.logger, "find case", err)
	}

	if c.UserID == actor.ID {
		return nil, dErrors.New(dErrors.CodeBadRequest,
			"reviewers cannot decide their own verification case")
	}

	unlock := s.caseLocks.Lock(c.UserID.String())
	defer unlock()

	// The timeout starts after the lock is held; lock wait does not count
	// against the store budget.
	storeCtx, cancel := s.boundStore(ctx)
	defer cancel()

	// Re-read under the lock; a concurrent decision may have landed.
	c, err = s.store.FindByID(storeCtx, req.CaseID)
	if err != nil {
		return nil, storeFailure(ctx, s.logger, "find case", err)
	}
	if c.Status.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeInvalidTransition,
			"verification case has already been decided").
			WithMeta("status", c.Status.String())
	}

	now := requestcontext.Now(ctx)
	before := statusSnapshot(c)

	reviewer := actor.ID
	c.ReviewedBy = &reviewer
	c.ReviewedAt = &now
	c.RiskTier = req.RiskTier
	c.UpdatedAt = now

	switch req.Decision {
	case kyc.DecisionApprove:
		c.Status = id.CaseApproved
		expires := now.Add(s.approvalValidity)
		c.ExpiresAt = &expires
		kyc.CompleteAllSteps(c, now)
	case kyc.DecisionReject:
		c.Status = id.CaseRejected
		c.RejectionReason = req.Reason
		kyc.AdvanceStep(c, id.StepReviewSubmission, id.StepCompleted, now)
	}

	if err := s.store.Update(storeCtx, c); err != nil {
		return nil, storeFailure(ctx, s.logger, "update case", err)
	}

	action := audit.ActionCaseApproved
	if req.Decision == kyc.DecisionReject {
		action = audit.ActionCaseRejected
	}
	s.metrics.ReviewsTotal.WithLabelValues(string(req.Decision)).Inc()
	s.metrics.ReviewDuration.Observe(now.Sub(c.CreatedAt).Seconds())
	s.recorder.Record(ctx, audit.Record{
		ActorID:    actor.ID,
		Action:     action,
		TargetType: audit.TargetCase,
		TargetID:   c.ID.String(),
		Reason:     req.Reason,
		Before:     audit.Snapshot(before),
		After:      audit.Snapshot(statusSnapshot(c)),
	})
	return c, nil
}

// List pages the case queue for reviewers. The page and total are fetched
// concurrently.
func (s *Service) List(ctx context.Context, actor *identity.Principal, filter kyc.ListFilter) (*kyc.CaseList, error) {
	if err := guard.RequireReviewer(actor); err != nil {
		return nil, err
	}
	if err := normalizeFilter(&filter); err != nil {
		return nil, err
	}

	var (
		summaries []kyc.CaseSummary
		total     int
	)
	storeCtx, cancel := s.boundStore(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(storeCtx)
	g.Go(func() error {
		var err error
		summaries, err = s.store.List(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeFailure(ctx, s.logger, "list cases", err)
	}

	return &kyc.CaseList{
		Cases:  summaries,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// AuditTrail returns the audit records for one case. Administrative only.
func (s *Service) AuditTrail(ctx context.Context, actor *identity.Principal, caseID id.CaseID) ([]audit.Record, error) {
	if err := guard.RequireAdmin(actor); err != nil {
		return nil, err
	}
	storeCtx, cancel := s.boundStore(ctx)
	defer cancel()

	records, err := s.auditLog.ListByTarget(storeCtx, audit.TargetCase, caseID.String())
	if err != nil {
		return nil, storeFailure(ctx, s.logger, "list audit trail", err)
	}
	return records, nil
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// boundStore derives the context durable-store calls run under. A wedged
// backend surfaces as unavailable instead of holding the request open.
func (s *Service) boundStore(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// snapshot is the audit projection of a case around a state change.
type snapshot struct {
	Status          string     `json:"status"`
	RiskTier        string     `json:"risk_tier,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

func statusSnapshot(c *kyc.VerificationCase) snapshot {
	return snapshot{
		Status:          c.Status.String(),
		RiskTier:        c.RiskTier.String(),
		RejectionReason: c.RejectionReason,
		ExpiresAt:       c.ExpiresAt,
	}
}

func validatePersonalData(data kyc.PersonalData, now time.Time) error {
	if len(strings.TrimSpace(data.FirstName)) < 2 {
		return dErrors.New(dErrors.CodeInvalidInput,
			"first name must be at least 2 characters").WithMeta("field", "first_name")
	}
	if len(strings.TrimSpace(data.LastName)) < 2 {
		return dErrors.New(dErrors.CodeInvalidInput,
			"last name must be at least 2 characters").WithMeta("field", "last_name")
	}
	if data.DateOfBirth.IsZero() || data.DateOfBirth.After(now.AddDate(-18, 0, 0)) {
		return dErrors.New(dErrors.CodeInvalidInput,
			"applicant must be at least 18 years old").WithMeta("field", "date_of_birth")
	}
	if len(strings.TrimSpace(data.Nationality)) < 2 {
		return dErrors.New(dErrors.CodeInvalidInput,
			"nationality must be at least 2 characters").WithMeta("field", "nationality")
	}
	if len(strings.TrimSpace(data.Address)) < 10 {
		return dErrors.New(dErrors.CodeInvalidInput,
			"address must be at least 10 characters").WithMeta("field", "address")
	}
	if !phonePattern.MatchString(strings.TrimSpace(data.PhoneNumber)) {
		return dErrors.New(dErrors.CodeInvalidInput,
			"phone number format is invalid").WithMeta("field", "phone_number")
	}
	return nil
}

func normalizeFilter(filter *kyc.ListFilter) error {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	switch filter.SortBy {
	case "", "created_at", "updated_at", "status":
	default:
		return dErrors.New(dErrors.CodeInvalidInput,
			"sort must be one of: created_at, updated_at, status")
	}
	return nil
}

func storeFailure(ctx context.Context, logger *slog.Logger, op string, err error) error {
	logger.ErrorContext(ctx, "case store operation failed", "op", op, "error", err)
	return dErrors.New(dErrors.CodeUnavailable, "verification service is temporarily unavailable").
		WithMeta("retry_after", "30")
}
