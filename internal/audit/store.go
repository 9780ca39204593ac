package audit

import (
	"context"

	id "verigate/pkg/domain"
)

// Store persists audit records. Append-only: records are never updated or
// deleted through this interface.
type Store interface {
	Append(ctx context.Context, record Record) error
	ListByTarget(ctx context.Context, targetType TargetType, targetID string) ([]Record, error)
	ListByActor(ctx context.Context, actorID id.UserID) ([]Record, error)
}
