package kyc

import (
	"context"
	"sort"
	"sync"
	"time"

	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

// InMemoryStore keeps verification cases in memory for tests and degraded
// local runs.
type InMemoryStore struct {
	mu    sync.RWMutex
	cases map[id.CaseID]*VerificationCase
	// failing simulates backend outage for degraded-path tests.
	failing bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{cases: make(map[id.CaseID]*VerificationCase)}
}

// SetFailing toggles simulated unavailability.
func (s *InMemoryStore) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func (s *InMemoryStore) Create(ctx context.Context, c *VerificationCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return sentinel.ErrUnavailable
	}
	if _, exists := s.cases[c.ID]; exists {
		return sentinel.ErrConflict
	}
	s.cases[c.ID] = copyCase(c)
	return nil
}

func (s *InMemoryStore) FindByID(ctx context.Context, caseID id.CaseID) (*VerificationCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return nil, sentinel.ErrUnavailable
	}
	c, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyCase(c), nil
}

func (s *InMemoryStore) FindLatestByUser(ctx context.Context, userID id.UserID) (*VerificationCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return nil, sentinel.ErrUnavailable
	}
	var latest *VerificationCase
	for _, c := range s.cases {
		if c.UserID != userID {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return copyCase(latest), nil
}

func (s *InMemoryStore) FindOpenByUser(ctx context.Context, userID id.UserID) (*VerificationCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return nil, sentinel.ErrUnavailable
	}
	for _, c := range s.cases {
		if c.UserID == userID && c.Status.IsOpen() {
			return copyCase(c), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindValidApprovalByUser(ctx context.Context, userID id.UserID, at time.Time) (*VerificationCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return nil, sentinel.ErrUnavailable
	}
	for _, c := range s.cases {
		if c.UserID == userID && c.ApprovalValid(at) {
			return copyCase(c), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Update(ctx context.Context, c *VerificationCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return sentinel.ErrUnavailable
	}
	if _, exists := s.cases[c.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.cases[c.ID] = copyCase(c)
	return nil
}

func (s *InMemoryStore) List(ctx context.Context, filter ListFilter) ([]CaseSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return nil, sentinel.ErrUnavailable
	}

	matched := s.matching(filter)
	sortSummaries(matched, filter)

	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return matched[start:end], nil
}

func (s *InMemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return 0, sentinel.ErrUnavailable
	}
	return len(s.matching(filter)), nil
}

// matching must be called while holding s.mu.
func (s *InMemoryStore) matching(filter ListFilter) []CaseSummary {
	var out []CaseSummary
	for _, c := range s.cases {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if !filter.UserID.IsNil() && c.UserID != filter.UserID {
			continue
		}
		if filter.RiskTier != "" && c.RiskTier != filter.RiskTier {
			continue
		}
		out = append(out, summarize(c))
	}
	return out
}

func sortSummaries(summaries []CaseSummary, filter ListFilter) {
	less := func(a, b CaseSummary) bool { return a.CreatedAt.Before(b.CreatedAt) }
	switch filter.SortBy {
	case "updated_at":
		less = func(a, b CaseSummary) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case "status":
		less = func(a, b CaseSummary) bool { return a.Status < b.Status }
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if filter.SortDesc {
			return less(summaries[j], summaries[i])
		}
		return less(summaries[i], summaries[j])
	})
}

func summarize(c *VerificationCase) CaseSummary {
	summary := CaseSummary{
		ID:        c.ID,
		UserID:    c.UserID,
		Status:    c.Status,
		RiskTier:  c.RiskTier,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.ReviewedBy != nil {
		reviewer := *c.ReviewedBy
		summary.ReviewedBy = &reviewer
	}
	return summary
}

func copyCase(c *VerificationCase) *VerificationCase {
	dup := *c
	dup.Steps = append([]Step(nil), c.Steps...)
	if c.ReviewedBy != nil {
		reviewer := *c.ReviewedBy
		dup.ReviewedBy = &reviewer
	}
	if c.ReviewedAt != nil {
		at := *c.ReviewedAt
		dup.ReviewedAt = &at
	}
	if c.ExpiresAt != nil {
		at := *c.ExpiresAt
		dup.ExpiresAt = &at
	}
	return &dup
}
