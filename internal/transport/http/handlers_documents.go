package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"verigate/internal/document"
	"verigate/internal/identity"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/httputil"
	"verigate/pkg/requestcontext"
)

// multipartMemoryLimit caps how much of a multipart body is held in memory
// before spilling to disk; the overall size cap comes from MaxBytesReader.
const multipartMemoryLimit = 8 << 20

// DocumentService defines the document operations the HTTP layer needs.
type DocumentService interface {
	Upload(ctx context.Context, actor *identity.Principal, up document.Upload) (*document.Document, error)
	Metadata(ctx context.Context, actor *identity.Principal, docID id.DocumentID) (*document.Document, error)
	Download(ctx context.Context, actor *identity.Principal, docID id.DocumentID) (*document.Document, []byte, error)
	ListByCase(ctx context.Context, actor *identity.Principal, caseID id.CaseID) ([]document.Document, error)
}

// DocumentHandler wires the document endpoints to the intake pipeline.
type DocumentHandler struct {
	service  DocumentService
	logger   *slog.Logger
	maxBytes int64
}

func NewDocumentHandler(service DocumentService, logger *slog.Logger, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{service: service, logger: logger, maxBytes: maxBytes}
}

// Register mounts the document endpoints. Every route needs the actor's
// accurate role for policy evaluation, so all mount under the critical
// stack; uploads additionally draw from the tighter upload window.
func (h *DocumentHandler) Register(r chi.Router, mw Middlewares) {
	r.With(mw.Upload...).Post("/kyc/documents/upload", h.HandleUpload)
	r.With(mw.Critical...).Get("/kyc/documents/{documentID}", h.HandleMetadata)
	r.With(mw.Critical...).Get("/kyc/documents/{documentID}/download", h.HandleDownload)
	r.With(mw.Critical...).Get("/kyc/cases/{caseID}/documents", h.HandleListByCase)
}

// HandleUpload handles POST /kyc/documents/upload requests. The body is a
// multipart form with a "document_type" field and a "file" part; the declared
// content type is taken from the file part header and corroborated against
// the payload by the service.
func (h *DocumentHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actor := PrincipalFrom(ctx)
	if actor == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	// Cap the wire size before any of the body is read; the multipart
	// envelope needs a little headroom over the file limit.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartMemoryLimit)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		httputil.WriteError(w, uploadBodyError(err))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	docType, err := id.ParseDocumentType(r.FormValue("document_type"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing file part"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteError(w, uploadBodyError(err))
		return
	}

	doc, err := h.service.Upload(ctx, actor, document.Upload{
		Type:        docType,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "document upload failed",
			"request_id", requestID,
			"user_id", actor.ID,
			"document_type", docType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document uploaded",
		"request_id", requestID,
		"user_id", actor.ID,
		"document_id", doc.ID,
		"case_id", doc.CaseID,
		"document_type", docType,
		"size_bytes", doc.SizeBytes,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromDocument(doc))
}

// HandleMetadata handles GET /kyc/documents/{documentID} requests.
func (h *DocumentHandler) HandleMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor := PrincipalFrom(ctx)
	if actor == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, err := h.service.Metadata(ctx, actor, docID)
	if err != nil {
		h.logger.WarnContext(ctx, "document metadata lookup failed",
			"request_id", requestID,
			"user_id", actor.ID,
			"document_id", docID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

// HandleDownload handles GET /kyc/documents/{documentID}/download requests,
// streaming the stored bytes with the recorded content type.
func (h *DocumentHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor := PrincipalFrom(ctx)
	if actor == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, data, err := h.service.Download(ctx, actor, docID)
	if err != nil {
		h.logger.WarnContext(ctx, "document download failed",
			"request_id", requestID,
			"user_id", actor.ID,
			"document_id", docID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document downloaded",
		"request_id", requestID,
		"user_id", actor.ID,
		"document_id", doc.ID,
		"size_bytes", doc.SizeBytes,
	)
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleListByCase handles GET /kyc/cases/{caseID}/documents requests.
func (h *DocumentHandler) HandleListByCase(w http.ResponseWriter, r *http.Request) {
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

	docs, err := h.service.ListByCase(ctx, actor, caseID)
	if err != nil {
		h.logger.WarnContext(ctx, "case document listing failed",
			"request_id", requestID,
			"user_id", actor.ID,
			"case_id", caseID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, FromDocument(&docs[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// uploadBodyError distinguishes an over-limit body from a malformed one.
func uploadBodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return dErrors.New(dErrors.CodePayloadTooLarge, "uploaded file exceeds the size limit")
	}
	return dErrors.New(dErrors.CodeBadRequest, "invalid multipart body")
}
