package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"verigate/internal/audit"
	"verigate/internal/identity"
	"verigate/internal/kyc"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/httputil"
	"verigate/pkg/requestcontext"
)

// CaseService defines the verification case operations the HTTP layer needs.
type CaseService interface {
	Submit(ctx context.Context, actor *identity.Principal, data kyc.PersonalData) (*kyc.VerificationCase, error)
	Status(ctx context.Context, actor *identity.Principal, subject id.UserID) (*kyc.VerificationCase, error)
	Review(ctx context.Context, actor *identity.Principal, req kyc.ReviewRequest) (*kyc.VerificationCase, error)
	List(ctx context.Context, actor *identity.Principal, filter kyc.ListFilter) (*kyc.CaseList, error)
	AuditTrail(ctx context.Context, actor *identity.Principal, caseID id.CaseID) ([]audit.Record, error)
}

// CaseHandler wires the verification case endpoints to the case service.
type CaseHandler struct {
	service CaseService
	logger  *slog.Logger
}

func NewCaseHandler(service CaseService, logger *slog.Logger) *CaseHandler {
	return &CaseHandler{service: service, logger: logger}
}

// Register mounts the case endpoints. Every verification route is critical:
// authorization here must never run on fallback identity, so all of them
// fail closed while the principal store is unreachable.
func (h *CaseHandler) Register(r chi.Router, mw Middlewares) {
	r.With(mw.Critical...).Get("/kyc/status/{userID}", h.HandleStatus)
	r.With(mw.Critical...).Post("/kyc/submit", h.HandleSubmit)
	r.With(mw.Critical...).Put("/kyc/review/{caseID}", h.HandleReview)
	r.With(mw.Critical...).Get("/kyc/verifications", h.HandleList)
	r.With(mw.Critical...).Get("/kyc/admin/audit-logs/{caseID}", h.HandleAuditTrail)
}

// HandleSubmit handles POST /kyc/submit requests.
func (h *CaseHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actor := PrincipalFrom(ctx)
	if actor == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, err := httputil.Decode[SubmitRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	data, err := req.PersonalData()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := h.service.Submit(ctx, actor, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "case submission failed",
			"request_id", requestID,
			"user_id", actor.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification case submitted",
		"request_id", requestID,
		"user_id", actor.ID,
		"case_id", c.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromCase(c))
}

// HandleStatus handles GET /kyc/status/{userID} requests.
func (h *CaseHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor := PrincipalFrom(ctx)
	if actor == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	subject, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := h.service.Status(ctx, actor, subject)
	if err != nil {
		h.logger.WarnContext(ctx, "case status lookup failed",
			"request_id", requestID,
			"user_id", actor.ID,
			"subject_id", subject,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleReview handles PUT /kyc/review/{caseID} requests.
func (h *CaseHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actor := PrincipalFrom(ctx)
	if actor == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[ReviewRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	domainReq, err := req.Domain(caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := h.service.Review(ctx, actor, domainReq)
	if err != nil {
		h.logger.ErrorContext(ctx, "case review failed",
			"request_id", requestID,
			"reviewer_id", actor.ID,
			"case_id", caseID,
			"decision", req.Decision,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification case decided",
		"request_id", requestID,
		"reviewer_id", actor.ID,
		"case_id", c.ID,
		"decision", req.Decision,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleList handles GET /kyc/verifications requests.
func (h *CaseHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor := PrincipalFrom(ctx)
	if actor == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	list, err := h.service.List(ctx, actor, filter)
	if err != nil {
		h.logger.WarnContext(ctx, "case listing failed",
			"request_id", requestID,
			"user_id", actor.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromCaseList(list))
}

// HandleAuditTrail handles GET /kyc/admin/audit-logs/{caseID} requests.
func (h *CaseHandler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor := PrincipalFrom(ctx)
	if actor == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.AuditTrail(ctx, actor, caseID)
	if err != nil {
		h.logger.WarnContext(ctx, "audit trail lookup failed",
			"request_id", requestID,
			"user_id", actor.ID,
			"case_id", caseID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromAuditRecords(records))
}
