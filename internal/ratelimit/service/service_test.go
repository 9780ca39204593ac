package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"verigate/internal/ratelimit/models"
	"verigate/internal/ratelimit/store/bucket"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
)

// ============================================================================
// Test Suite Setup
// ============================================================================

type RateLimitServiceSuite struct {
	suite.Suite
	ctx     context.Context
	service *Service
	userID  id.UserID
}

func TestRateLimitServiceSuite(t *testing.T) {
	suite.Run(t, new(RateLimitServiceSuite))
}

func (s *RateLimitServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.userID = id.NewUserID()
	s.service = NewService(bucket.NewInMemoryBucketStore(), Limits{
		GeneralWindow: time.Minute,
		GeneralMax:    3,
		UploadWindow:  time.Minute,
		UploadMax:     1,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

// ============================================================================
// Check
// ============================================================================

func (s *RateLimitServiceSuite) TestAllowsUpToLimit() {
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.service.Check(s.ctx, s.userID, models.OperationGeneral))
	}
}

func (s *RateLimitServiceSuite) TestDeniesWithRetryAfter() {
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.service.Check(s.ctx, s.userID, models.OperationGeneral))
	}

	err := s.service.Check(s.ctx, s.userID, models.OperationGeneral)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))

	var dErr *dErrors.Error
	s.Require().True(errors.As(err, &dErr))
	s.NotEmpty(dErr.Meta["retry_after"])
}

func (s *RateLimitServiceSuite) TestOperationsHaveSeparateWindows() {
	s.Require().NoError(s.service.Check(s.ctx, s.userID, models.OperationUpload))

	err := s.service.Check(s.ctx, s.userID, models.OperationUpload)
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))

	// The general window is untouched by upload activity.
	s.NoError(s.service.Check(s.ctx, s.userID, models.OperationGeneral))
}

func (s *RateLimitServiceSuite) TestPrincipalsAreIsolated() {
	s.Require().NoError(s.service.Check(s.ctx, s.userID, models.OperationUpload))
	err := s.service.Check(s.ctx, s.userID, models.OperationUpload)
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))

	s.NoError(s.service.Check(s.ctx, id.NewUserID(), models.OperationUpload))
}

func (s *RateLimitServiceSuite) TestStoreFailureAllowsRequest() {
	svc := NewService(&failingStore{}, Limits{
		GeneralWindow: time.Minute,
		GeneralMax:    1,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	s.NoError(svc.Check(s.ctx, s.userID, models.OperationGeneral))
}

// ============================================================================
// Reset
// ============================================================================

func (s *RateLimitServiceSuite) TestResetReopensWindow() {
	s.Require().NoError(s.service.Check(s.ctx, s.userID, models.OperationUpload))
	err := s.service.Check(s.ctx, s.userID, models.OperationUpload)
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))

	s.Require().NoError(s.service.Reset(s.ctx, s.userID, models.OperationUpload))
	s.NoError(s.service.Check(s.ctx, s.userID, models.OperationUpload))
}

// ============================================================================
// Helpers
// ============================================================================

type failingStore struct{}

func (f *failingStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	return nil, errors.New("backend down")
}

func (f *failingStore) Reset(ctx context.Context, key string) error {
	return errors.New("backend down")
}
