package document

import (
	"context"

	id "verigate/pkg/domain"
)

// Store persists document metadata records.
type Store interface {
	Create(ctx context.Context, doc *Document) error
	FindByID(ctx context.Context, docID id.DocumentID) (*Document, error)
	ListByCase(ctx context.Context, caseID id.CaseID) ([]Document, error)
}
