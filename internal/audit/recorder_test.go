package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "verigate/pkg/domain"
	"verigate/pkg/requestcontext"
)

// ============================================================================
// Test Suite Setup
// ============================================================================

type RecorderSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
}

func (s *RecorderSuite) newRecorder(store Store) *Recorder {
	return NewRecorder(store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// ============================================================================
// Record
// ============================================================================

func (s *RecorderSuite) TestPersistsEnqueuedRecords() {
	recorder := s.newRecorder(s.store)
	actor := id.NewUserID()

	recorder.Record(s.ctx, Record{
		ActorID:    actor,
		Action:     ActionCaseSubmitted,
		TargetType: TargetCase,
		TargetID:   "case-1",
	})
	recorder.Close()

	records, err := s.store.ListByActor(s.ctx, actor)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(ActionCaseSubmitted, records[0].Action)
	s.False(records[0].Timestamp.IsZero())
}

func (s *RecorderSuite) TestStampsRequestMetadataFromContext() {
	recorder := s.newRecorder(s.store)
	actor := id.NewUserID()

	ctx := requestcontext.WithRequestID(s.ctx, "req-42")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.7", "curl/8.0")
	ctx = requestcontext.WithTime(ctx, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	recorder.Record(ctx, Record{
		ActorID:    actor,
		Action:     ActionDocumentUploaded,
		TargetType: TargetDocument,
		TargetID:   "doc-1",
	})
	recorder.Close()

	records, err := s.store.ListByActor(s.ctx, actor)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal("req-42", records[0].RequestID)
	s.Equal("203.0.113.7", records[0].IP)
	s.Equal("curl/8.0", records[0].UserAgent)
	s.Equal(2026, records[0].Timestamp.Year())
}

func (s *RecorderSuite) TestPreservesPerTargetOrder() {
	recorder := s.newRecorder(s.store)
	actor := id.NewUserID()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		recorder.Record(s.ctx, Record{
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			ActorID:    actor,
			Action:     ActionStatusViewed,
			TargetType: TargetCase,
			TargetID:   "case-1",
		})
	}
	recorder.Close()

	records, err := s.store.ListByTarget(s.ctx, TargetCase, "case-1")
	s.Require().NoError(err)
	s.Require().Len(records, 5)
	// Newest first.
	for i := 1; i < len(records); i++ {
		s.True(records[i].Timestamp.Before(records[i-1].Timestamp))
	}
}

func (s *RecorderSuite) TestStoreFailureDoesNotBlockCaller() {
	recorder := s.newRecorder(&failingAuditStore{})

	// Must return immediately even though every append fails.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			recorder.Record(s.ctx, Record{
				ActorID:    id.NewUserID(),
				Action:     ActionCaseSubmitted,
				TargetType: TargetCase,
				TargetID:   "case-1",
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("Record blocked on a failing store")
	}
	recorder.Close()
}

func (s *RecorderSuite) TestCloseDrainsInbox() {
	slow := &slowAuditStore{inner: s.store}
	recorder := s.newRecorder(slow)
	actor := id.NewUserID()

	for i := 0; i < 20; i++ {
		recorder.Record(s.ctx, Record{
			ActorID:    actor,
			Action:     ActionStatusViewed,
			TargetType: TargetCase,
			TargetID:   "case-1",
		})
	}
	recorder.Close()

	records, err := s.store.ListByActor(s.ctx, actor)
	s.Require().NoError(err)
	s.Len(records, 20)
}

// ============================================================================
// Helpers
// ============================================================================

type failingAuditStore struct{}

func (f *failingAuditStore) Append(ctx context.Context, record Record) error {
	return errors.New("store down")
}

func (f *failingAuditStore) ListByTarget(ctx context.Context, targetType TargetType, targetID string) ([]Record, error) {
	return nil, errors.New("store down")
}

func (f *failingAuditStore) ListByActor(ctx context.Context, actorID id.UserID) ([]Record, error) {
	return nil, errors.New("store down")
}

type slowAuditStore struct {
	mu    sync.Mutex
	inner *InMemoryStore
}

func (s *slowAuditStore) Append(ctx context.Context, record Record) error {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Append(ctx, record)
}

func (s *slowAuditStore) ListByTarget(ctx context.Context, targetType TargetType, targetID string) ([]Record, error) {
	return s.inner.ListByTarget(ctx, targetType, targetID)
}

func (s *slowAuditStore) ListByActor(ctx context.Context, actorID id.UserID) ([]Record, error) {
	return s.inner.ListByActor(ctx, actorID)
}
