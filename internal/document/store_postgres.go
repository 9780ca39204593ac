package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

// PostgresStore persists document metadata in the documents table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (
			id, case_id, user_id, document_type, status, file_name,
			content_type, size_bytes, sha256, locator, uploaded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID.String(), doc.CaseID.String(), doc.UserID.String(),
		doc.Type.String(), doc.Status.String(), doc.FileName,
		doc.ContentType, doc.SizeBytes, doc.SHA256, doc.Locator, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("%w: insert document: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, docID id.DocumentID) (*Document, error) {
	row := s.db.QueryRowContext(ctx, selectDocument+` WHERE id = $1`, docID.String())
	doc, err := scanDocument(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return doc, err
}

func (s *PostgresStore) ListByCase(ctx context.Context, caseID id.CaseID) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		selectDocument+` WHERE case_id = $1 ORDER BY uploaded_at`, caseID.String())
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate documents: %v", sentinel.ErrUnavailable, err)
	}
	return docs, nil
}

const selectDocument = `
	SELECT id, case_id, user_id, document_type, status, file_name,
	       content_type, size_bytes, sha256, locator, uploaded_at
	FROM documents`

func scanDocument(scan func(dest ...any) error) (*Document, error) {
	var (
		doc     Document
		docID   string
		caseID  string
		userID  string
		docType string
		status  string
	)
	err := scan(&docID, &caseID, &userID, &docType, &status,
		&doc.FileName, &doc.ContentType, &doc.SizeBytes, &doc.SHA256,
		&doc.Locator, &doc.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan document: %v", sentinel.ErrUnavailable, err)
	}

	if doc.ID, err = id.ParseDocumentID(docID); err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	if doc.CaseID, err = id.ParseCaseID(caseID); err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	if doc.UserID, err = id.ParseUserID(userID); err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	if doc.Type, err = id.ParseDocumentType(docType); err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.Status = id.DocumentStatus(status)
	return &doc, nil
}
