package identity

import (
	"context"
	"time"

	id "verigate/pkg/domain"
)

// Store is the durable-store boundary for principals.
//
// FindByID returns sentinel.ErrNotFound when the principal does not exist and
// sentinel.ErrUnavailable (possibly wrapped) when the store cannot answer;
// the Loader's fail-closed-versus-degrade split depends on that distinction.
type Store interface {
	FindByID(ctx context.Context, userID id.UserID) (*Principal, error)
	// TouchActivity refreshes last-activity metadata as a login side effect.
	// Best-effort: failures are logged by the caller, not surfaced.
	TouchActivity(ctx context.Context, userID id.UserID, at time.Time) error
}
