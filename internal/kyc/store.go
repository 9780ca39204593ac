package kyc

import (
	"context"
	"time"

	id "verigate/pkg/domain"
)

// Store persists verification cases and their checklists.
//
// Not-found conditions return sentinel.ErrNotFound; infrastructure failures
// return sentinel.ErrUnavailable so services can map them to coded errors.
type Store interface {
	Create(ctx context.Context, c *VerificationCase) error
	FindByID(ctx context.Context, caseID id.CaseID) (*VerificationCase, error)
	// FindLatestByUser returns the user's most recently created case.
	FindLatestByUser(ctx context.Context, userID id.UserID) (*VerificationCase, error)
	// FindOpenByUser returns the user's pending or under_review case, if any.
	FindOpenByUser(ctx context.Context, userID id.UserID) (*VerificationCase, error)
	// FindValidApprovalByUser returns the user's approved case still valid at
	// the given instant, if any.
	FindValidApprovalByUser(ctx context.Context, userID id.UserID, at time.Time) (*VerificationCase, error)
	Update(ctx context.Context, c *VerificationCase) error
	List(ctx context.Context, filter ListFilter) ([]CaseSummary, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}
