package document

import (
	"context"
	"sort"
	"sync"

	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

// InMemoryStore keeps document metadata in memory for tests and degraded
// local runs.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]*Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[id.DocumentID]*Document)}
}

func (s *InMemoryStore) Create(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.ID]; exists {
		return sentinel.ErrConflict
	}
	dup := *doc
	s.docs[doc.ID] = &dup
	return nil
}

func (s *InMemoryStore) FindByID(ctx context.Context, docID id.DocumentID) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	dup := *doc
	return &dup, nil
}

func (s *InMemoryStore) ListByCase(ctx context.Context, caseID id.CaseID) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Document
	for _, doc := range s.docs {
		if doc.CaseID == caseID {
			out = append(out, *doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.Before(out[j].UploadedAt)
	})
	return out, nil
}
