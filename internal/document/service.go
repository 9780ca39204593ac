package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"verigate/internal/acl"
	"verigate/internal/audit"
	"verigate/internal/document/metrics"
	"verigate/internal/identity"
	"verigate/internal/kyc"
	"verigate/internal/objectstore"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/sentinel"
	"verigate/pkg/requestcontext"
)

// Service runs the document intake pipeline and serves stored documents
// behind the access policy engine.
type Service struct {
	docs     Store
	objects  objectstore.Store
	cases    kyc.Store
	recorder *audit.Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	// caseLocks is shared with the case service; uploads may open a case.
	caseLocks *kyc.KeyedLocks
	maxBytes  int64
	// storeTimeout bounds every durable-store and object-storage call.
	storeTimeout time.Duration
}

func NewService(
	docs Store,
	objects objectstore.Store,
	cases kyc.Store,
	recorder *audit.Recorder,
	logger *slog.Logger,
	m *metrics.Metrics,
	locks *kyc.KeyedLocks,
	maxBytes int64,
	storeTimeout time.Duration,
) *Service {
	return &Service{
		docs:         docs,
		objects:      objects,
		cases:        cases,
		recorder:     recorder,
		logger:       logger,
		metrics:      m,
		tracer:       otel.Tracer("verigate/document"),
		caseLocks:    locks,
		maxBytes:     maxBytes,
		storeTimeout: storeTimeout,
	}
}

// boundStore derives the context store and object-storage calls run under.
func (s *Service) boundStore(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// Upload runs the intake pipeline: validate before any I/O, corroborate the
// declared type against the payload's leading bytes, digest the exact
// persisted bytes, resolve or open the case, then persist bytes and access
// policy as one unit before the metadata record is written.
func (s *Service) Upload(ctx context.Context, actor *identity.Principal, up Upload) (*Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.Upload",
		trace.WithAttributes(attribute.String("document_type", up.Type.String())))
	defer span.End()

	if err := s.validate(up); err != nil {
		return nil, err
	}

	digest := sha256.Sum256(up.Data)

	unlock := s.caseLocks.Lock(actor.ID.String())
	defer unlock()

	now := requestcontext.Now(ctx)
	resolveCtx, cancelResolve := s.boundStore(ctx)
	c, err := s.resolveCase(resolveCtx, actor.ID)
	cancelResolve()
	if err != nil {
		return nil, err
	}

	// Persistence and policy attachment are one effective unit: an upload is
	// not complete, and must not be reachable, until its policy is visible.
	// WithoutCancel keeps a client disconnect from splitting the pair; the
	// store timeout still bounds each backend call.
	putCtx, cancelPut := s.boundStore(context.WithoutCancel(ctx))
	defer cancelPut()
	locator, err := s.objects.Put(putCtx, up.Data)
	if err != nil {
		s.logger.ErrorContext(ctx, "object store put failed", "error", err)
		return nil, dErrors.New(dErrors.CodeUnavailable, "document storage is temporarily unavailable")
	}
	if err := s.objects.SetPolicy(putCtx, locator, acl.NewDocumentPolicy(actor.ID)); err != nil {
		s.logger.ErrorContext(ctx, "policy attachment failed, removing object",
			"locator", locator, "error", err)
		if delErr := s.objects.Delete(putCtx, locator); delErr != nil {
			s.logger.ErrorContext(ctx, "orphaned object cleanup failed",
				"locator", locator, "error", delErr)
		}
		return nil, dErrors.New(dErrors.CodeUnavailable, "document storage is temporarily unavailable")
	}

	doc := &Document{
		ID:          id.NewDocumentID(),
		CaseID:      c.ID,
		UserID:      actor.ID,
		Type:        up.Type,
		Status:      id.DocumentPending,
		FileName:    up.FileName,
		ContentType: up.ContentType,
		SizeBytes:   int64(len(up.Data)),
		SHA256:      hex.EncodeToString(digest[:]),
		Locator:     locator,
		UploadedAt:  now,
	}
	if err := s.docs.Create(putCtx, doc); err != nil {
		s.logger.ErrorContext(ctx, "document record creation failed, removing object",
			"locator", locator, "error", err)
		if delErr := s.objects.Delete(putCtx, locator); delErr != nil {
			s.logger.ErrorContext(ctx, "orphaned object cleanup failed",
				"locator", locator, "error", delErr)
		}
		return nil, dErrors.New(dErrors.CodeUnavailable, "document storage is temporarily unavailable")
	}

	kyc.AdvanceStep(c, id.StepDocumentUpload, id.StepInProgress, now)
	c.UpdatedAt = now
	if err := s.cases.Update(putCtx, c); err != nil {
		// The document is stored and reachable; step progress catches up on
		// the next successful write.
		s.logger.WarnContext(ctx, "step update failed after upload",
			"case_id", c.ID.String(), "error", err)
	}

	s.metrics.UploadsTotal.WithLabelValues(up.Type.String()).Inc()
	s.metrics.UploadSize.Observe(float64(len(up.Data)))
	s.recorder.Record(ctx, audit.Record{
		ActorID:    actor.ID,
		Action:     audit.ActionDocumentUploaded,
		TargetType: audit.TargetDocument,
		TargetID:   doc.ID.String(),
		After: audit.Snapshot(map[string]string{
			"case_id":       c.ID.String(),
			"document_type": up.Type.String(),
			"file_name":     up.FileName,
		}),
	})
	return doc, nil
}

// Metadata returns a document record if the actor's access policy evaluation
// allows reading it.
func (s *Service) Metadata(ctx context.Context, actor *identity.Principal, docID id.DocumentID) (*Document, error) {
	doc, _, err := s.authorizeRead(ctx, actor, docID)
	return doc, err
}

// Download returns the stored bytes after a policy check and an integrity
// check against the recorded digest.
func (s *Service) Download(ctx context.Context, actor *identity.Principal, docID id.DocumentID) (*Document, []byte, error) {
	doc, _, err := s.authorizeRead(ctx, actor, docID)
	if err != nil {
		return nil, nil, err
	}

	storeCtx, cancel := s.boundStore(ctx)
	defer cancel()

	data, err := s.objects.Get(storeCtx, doc.Locator)
	if err != nil {
		s.logger.ErrorContext(ctx, "object store get failed",
			"locator", doc.Locator, "error", err)
		return nil, nil, dErrors.New(dErrors.CodeUnavailable, "document storage is temporarily unavailable")
	}

	digest := sha256.Sum256(data)
	if hex.EncodeToString(digest[:]) != doc.SHA256 {
		s.logger.ErrorContext(ctx, "document digest mismatch",
			"document_id", doc.ID.String(), "locator", doc.Locator)
		return nil, nil, dErrors.New(dErrors.CodeInternal, "document failed integrity verification")
	}

	s.metrics.DownloadsTotal.Inc()
	return doc, data, nil
}

// ListByCase returns a case's documents for actors allowed to see the case.
func (s *Service) ListByCase(ctx context.Context, actor *identity.Principal, caseID id.CaseID) ([]Document, error) {
	storeCtx, cancel := s.boundStore(ctx)
	defer cancel()

	c, err := s.cases.FindByID(storeCtx, caseID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "verification case not found")
	}
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "verification service is temporarily unavailable")
	}
	if actor.ID != c.UserID && !actor.Role.CanReview() {
		return nil, dErrors.New(dErrors.CodeOwnershipRequired,
			"access denied, you can only access your own resources")
	}
	docs, err := s.docs.ListByCase(storeCtx, caseID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "document storage is temporarily unavailable")
	}
	return docs, nil
}

func (s *Service) validate(up Upload) error {
	if !AcceptedContentType(up.ContentType) {
		s.metrics.RejectedTotal.WithLabelValues("content_type").Inc()
		return dErrors.New(dErrors.CodeInvalidInput,
			"unsupported content type, must be one of: image/jpeg, image/png, image/webp, application/pdf")
	}
	if len(up.Data) == 0 {
		s.metrics.RejectedTotal.WithLabelValues("empty").Inc()
		return dErrors.New(dErrors.CodeInvalidInput, "uploaded file is empty")
	}
	if int64(len(up.Data)) > s.maxBytes {
		s.metrics.RejectedTotal.WithLabelValues("size").Inc()
		return dErrors.New(dErrors.CodePayloadTooLarge, "uploaded file exceeds the size limit")
	}

	detected, ok := Sniff(up.Data)
	if !ok || detected != up.ContentType {
		s.metrics.RejectedTotal.WithLabelValues("signature").Inc()
		return dErrors.New(dErrors.CodeInvalidInput,
			"file content does not match an accepted file signature").
			WithMeta("declared_type", up.ContentType)
	}
	return nil
}

// resolveCase returns the actor's open case, opening one with placeholder
// personal data for upload-first flows. A still-valid approval means there
// is nothing to upload against.
func (s *Service) resolveCase(ctx context.Context, userID id.UserID) (*kyc.VerificationCase, error) {
	c, err := s.cases.FindOpenByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeUnavailable, "verification service is temporarily unavailable")
	}

	now := requestcontext.Now(ctx)
	if _, err := s.cases.FindValidApprovalByUser(ctx, userID, now); err == nil {
		return nil, dErrors.New(dErrors.CodeCaseAlreadyApproved,
			"identity verification has already been approved")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeUnavailable, "verification service is temporarily unavailable")
	}

	c = &kyc.VerificationCase{
		ID:           id.NewCaseID(),
		UserID:       userID,
		Status:       id.CasePending,
		PersonalData: kyc.PlaceholderPersonalData(now),
		Steps:        kyc.NewSteps(now, false),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "verification service is temporarily unavailable")
	}
	return c, nil
}

func (s *Service) authorizeRead(ctx context.Context, actor *identity.Principal, docID id.DocumentID) (*Document, *acl.Policy, error) {
	storeCtx, cancel := s.boundStore(ctx)
	defer cancel()

	doc, err := s.docs.FindByID(storeCtx, docID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	if err != nil {
		return nil, nil, dErrors.New(dErrors.CodeUnavailable, "document storage is temporarily unavailable")
	}

	policy, err := s.objects.GetPolicy(storeCtx, doc.Locator)
	if err != nil {
		// Fail closed: no policy, or a store that cannot prove one, denies.
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.ErrorContext(ctx, "policy lookup failed",
				"locator", doc.Locator, "error", err)
		}
		return nil, nil, dErrors.New(dErrors.CodeOwnershipRequired, "access denied")
	}

	subject := acl.Subject{UserID: actor.ID, Role: actor.Role}
	if !acl.Evaluate(policy, subject, acl.PermissionRead) {
		return nil, nil, dErrors.New(dErrors.CodeOwnershipRequired, "access denied")
	}
	return doc, policy, nil
}
