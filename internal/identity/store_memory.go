package identity

import (
	"context"
	"sync"
	"time"

	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

// InMemoryStore keeps principals in a map. Used by unit tests and by
// deployments without a database configured.
type InMemoryStore struct {
	mu         sync.RWMutex
	principals map[id.UserID]*Principal

	// failing simulates an unreachable store so loader tests can exercise
	// the degraded path without a real outage.
	failing bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{principals: make(map[id.UserID]*Principal)}
}

// Seed inserts or replaces a principal.
func (s *InMemoryStore) Seed(p *Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.principals[p.ID] = &cp
}

// SetFailing toggles simulated store unavailability.
func (s *InMemoryStore) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func (s *InMemoryStore) FindByID(ctx context.Context, userID id.UserID) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return nil, sentinel.ErrUnavailable
	}
	p, ok := s.principals[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) TouchActivity(ctx context.Context, userID id.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return sentinel.ErrUnavailable
	}
	if p, ok := s.principals[userID]; ok {
		p.LastActivityAt = at
	}
	return nil
}
