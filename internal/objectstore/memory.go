package objectstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"verigate/internal/acl"
	"verigate/pkg/platform/sentinel"
)

// InMemoryStore holds objects in process memory. Policies live in a separate
// map so an object can exist without one, matching real blob stores where
// metadata attachment is a second call.
type InMemoryStore struct {
	mu       sync.RWMutex
	objects  map[string][]byte
	policies map[string]*acl.Policy
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		objects:  make(map[string][]byte),
		policies: make(map[string]*acl.Policy),
	}
}

func (s *InMemoryStore) Put(ctx context.Context, data []byte) (string, error) {
	locator := "mem://" + uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[locator] = append([]byte(nil), data...)
	return locator, nil
}

func (s *InMemoryStore) Get(ctx context.Context, locator string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[locator]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *InMemoryStore) Delete(ctx context.Context, locator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[locator]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.objects, locator)
	delete(s.policies, locator)
	return nil
}

func (s *InMemoryStore) SetPolicy(ctx context.Context, locator string, policy *acl.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[locator]; !ok {
		return sentinel.ErrNotFound
	}
	s.policies[locator] = policy
	return nil
}

func (s *InMemoryStore) GetPolicy(ctx context.Context, locator string) (*acl.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	policy, ok := s.policies[locator]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return policy, nil
}
