package bucket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// ============================================================================
// Test Suite Setup
// ============================================================================

type InMemoryBucketStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryBucketStore
}

func TestInMemoryBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBucketStoreSuite))
}

func (s *InMemoryBucketStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryBucketStore()
}

// ============================================================================
// Allow
// ============================================================================

func (s *InMemoryBucketStoreSuite) TestAllowUnderLimit() {
	for i := 0; i < 5; i++ {
		result, err := s.store.Allow(s.ctx, "user-1", 5, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(5-(i+1), result.Remaining)
		s.Equal(5, result.Limit)
	}
}

func (s *InMemoryBucketStoreSuite) TestDenyOverLimit() {
	for i := 0; i < 3; i++ {
		_, err := s.store.Allow(s.ctx, "user-1", 3, time.Minute)
		s.Require().NoError(err)
	}

	result, err := s.store.Allow(s.ctx, "user-1", 3, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(0, result.Remaining)
	s.True(result.ResetAt.After(time.Now()))
}

func (s *InMemoryBucketStoreSuite) TestKeysAreIndependent() {
	for i := 0; i < 2; i++ {
		_, err := s.store.Allow(s.ctx, "user-1", 2, time.Minute)
		s.Require().NoError(err)
	}

	denied, err := s.store.Allow(s.ctx, "user-1", 2, time.Minute)
	s.Require().NoError(err)
	s.False(denied.Allowed)

	allowed, err := s.store.Allow(s.ctx, "user-2", 2, time.Minute)
	s.Require().NoError(err)
	s.True(allowed.Allowed)
}

func (s *InMemoryBucketStoreSuite) TestWindowSlides() {
	for i := 0; i < 2; i++ {
		_, err := s.store.Allow(s.ctx, "user-1", 2, 30*time.Millisecond)
		s.Require().NoError(err)
	}

	denied, err := s.store.Allow(s.ctx, "user-1", 2, 30*time.Millisecond)
	s.Require().NoError(err)
	s.False(denied.Allowed)

	time.Sleep(40 * time.Millisecond)

	allowed, err := s.store.Allow(s.ctx, "user-1", 2, 30*time.Millisecond)
	s.Require().NoError(err)
	s.True(allowed.Allowed)
}

func (s *InMemoryBucketStoreSuite) TestConcurrentAllowNeverOvercounts() {
	const limit = 50
	const attempts = 200

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.store.Allow(s.ctx, "user-1", limit, time.Minute)
			s.Require().NoError(err)
			if result.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(limit, allowed)
}

// ============================================================================
// Reset
// ============================================================================

func (s *InMemoryBucketStoreSuite) TestResetClearsWindow() {
	_, err := s.store.Allow(s.ctx, "user-1", 1, time.Minute)
	s.Require().NoError(err)

	denied, err := s.store.Allow(s.ctx, "user-1", 1, time.Minute)
	s.Require().NoError(err)
	s.False(denied.Allowed)

	s.Require().NoError(s.store.Reset(s.ctx, "user-1"))

	allowed, err := s.store.Allow(s.ctx, "user-1", 1, time.Minute)
	s.Require().NoError(err)
	s.True(allowed.Allowed)
}
