package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"verigate/internal/acl"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

// ============================================================================
// Test Suite Setup
// ============================================================================

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
}

// ============================================================================
// Objects
// ============================================================================

func (s *InMemoryStoreSuite) TestPutGetRoundTrip() {
	locator, err := s.store.Put(s.ctx, []byte("payload"))
	s.Require().NoError(err)
	s.NotEmpty(locator)

	data, err := s.store.Get(s.ctx, locator)
	s.Require().NoError(err)
	s.Equal([]byte("payload"), data)
}

func (s *InMemoryStoreSuite) TestGetUnknownLocator() {
	_, err := s.store.Get(s.ctx, "mem://missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestGetReturnsCopy() {
	locator, err := s.store.Put(s.ctx, []byte("payload"))
	s.Require().NoError(err)

	data, err := s.store.Get(s.ctx, locator)
	s.Require().NoError(err)
	data[0] = 'X'

	again, err := s.store.Get(s.ctx, locator)
	s.Require().NoError(err)
	s.Equal([]byte("payload"), again)
}

func (s *InMemoryStoreSuite) TestDelete() {
	locator, err := s.store.Put(s.ctx, []byte("payload"))
	s.Require().NoError(err)
	s.Require().NoError(s.store.SetPolicy(s.ctx, locator, acl.NewDocumentPolicy(id.NewUserID())))

	s.Require().NoError(s.store.Delete(s.ctx, locator))

	_, err = s.store.Get(s.ctx, locator)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.GetPolicy(s.ctx, locator)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// ============================================================================
// Policies
// ============================================================================

func (s *InMemoryStoreSuite) TestObjectHasNoPolicyUntilAttached() {
	locator, err := s.store.Put(s.ctx, []byte("payload"))
	s.Require().NoError(err)

	_, err = s.store.GetPolicy(s.ctx, locator)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestSetPolicyVisibleImmediately() {
	owner := id.NewUserID()
	locator, err := s.store.Put(s.ctx, []byte("payload"))
	s.Require().NoError(err)

	s.Require().NoError(s.store.SetPolicy(s.ctx, locator, acl.NewDocumentPolicy(owner)))

	policy, err := s.store.GetPolicy(s.ctx, locator)
	s.Require().NoError(err)
	s.Equal(owner, policy.Owner)
}

func (s *InMemoryStoreSuite) TestSetPolicyUnknownLocator() {
	err := s.store.SetPolicy(s.ctx, "mem://missing", acl.NewDocumentPolicy(id.NewUserID()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}
