package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"verigate/internal/ratelimit/metrics"
	"verigate/internal/ratelimit/models"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
)

// BucketStore abstracts the sliding-window backend.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
	Reset(ctx context.Context, key string) error
}

// Limits holds the per-operation window configuration.
type Limits struct {
	GeneralWindow time.Duration
	GeneralMax    int
	UploadWindow  time.Duration
	UploadMax     int
}

// Service enforces per-principal sliding-window rate limits.
type Service struct {
	store   BucketStore
	limits  Limits
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(store BucketStore, limits Limits, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, limits: limits, logger: logger, metrics: m}
}

// Check consumes one slot from the principal's window for the given
// operation. A denied check returns rate_limit_exceeded carrying a
// retry-after hint in seconds.
//
// A store failure allows the request through: the limiter protects
// downstream capacity and must not become an availability dependency.
func (s *Service) Check(ctx context.Context, userID id.UserID, op models.Operation) error {
	limit, window := s.limitFor(op)
	key := models.Key(userID.String(), op)

	result, err := s.store.Allow(ctx, key, limit, window)
	if err != nil {
		s.logger.WarnContext(ctx, "rate limit check failed, allowing request",
			"error", err, "operation", string(op))
		return nil
	}
	if s.metrics != nil {
		s.metrics.ObserveCheck(string(op), result.Allowed)
	}
	if result.Allowed {
		return nil
	}

	retryAfter := result.RetryAfter(time.Now())
	seconds := int(retryAfter/time.Second) + 1
	return dErrors.New(dErrors.CodeRateLimited,
		"too many requests, please try again later").
		WithMeta("retry_after", strconv.Itoa(seconds))
}

// Reset clears a principal's window for an operation. Administrative use.
func (s *Service) Reset(ctx context.Context, userID id.UserID, op models.Operation) error {
	return s.store.Reset(ctx, models.Key(userID.String(), op))
}

func (s *Service) limitFor(op models.Operation) (int, time.Duration) {
	if op == models.OperationUpload {
		return s.limits.UploadMax, s.limits.UploadWindow
	}
	return s.limits.GeneralMax, s.limits.GeneralWindow
}
