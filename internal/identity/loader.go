package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"verigate/internal/token"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/sentinel"
)

// RouteClass splits endpoints by how they behave when the durable store
// cannot be reached.
//
// Critical covers identity-verification and administrative endpoints: these
// fail closed with service_unavailable because authorization there must never
// run on stale or fallback identity. Standard covers everything else: those
// requests are served with a degraded least-privilege principal built from
// token claims alone. The asymmetry is deliberate.
type RouteClass int

const (
	RouteStandard RouteClass = iota
	RouteCritical
)

// Loader resolves verified token claims into a live Principal.
type Loader struct {
	store        Store
	logger       *slog.Logger
	storeTimeout time.Duration
}

func NewLoader(store Store, logger *slog.Logger, storeTimeout time.Duration) *Loader {
	return &Loader{store: store, logger: logger, storeTimeout: storeTimeout}
}

// Load fetches the current principal state for verified claims, refreshing
// last-activity metadata as a side effect. Outcomes:
//
//  1. store reachable, principal active: live principal.
//  2. store reachable, principal suspended/locked: account_inactive carrying
//     the status for caller display.
//  3. store unreachable or query timed out: service_unavailable on critical
//     routes, degraded principal on standard routes.
func (l *Loader) Load(ctx context.Context, claims *token.Claims, class RouteClass) (*Principal, error) {
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	loadCtx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	p, err := l.store.FindByID(loadCtx, userID)
	switch {
	case err == nil:
		if !p.IsActive() {
			return nil, dErrors.New(dErrors.CodeAccountInactive,
				"account "+p.AccountStatus.String()+", contact support").
				WithMeta("account_status", p.AccountStatus.String())
		}
		// Login bookkeeping is best-effort; a failed touch never blocks the request.
		if touchErr := l.store.TouchActivity(loadCtx, userID, time.Now()); touchErr != nil {
			l.logger.WarnContext(ctx, "failed to refresh principal activity",
				"user_id", userID,
				"error", touchErr,
			)
		}
		return p, nil

	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeUnauthorized, "unknown principal")

	default:
		// Store unreachable, query failed, or the timeout above fired.
		if class == RouteCritical {
			l.logger.ErrorContext(ctx, "principal store unavailable on critical route",
				"user_id", userID,
				"error", err,
			)
			return nil, dErrors.New(dErrors.CodeUnavailable,
				"identity validation required for this operation, retry later").
				WithMeta("retry_after", "30")
		}

		l.logger.WarnContext(ctx, "serving degraded principal from token claims",
			"user_id", userID,
			"error", err,
		)
		return &Principal{
			ID:            userID,
			Email:         claims.Email,
			Role:          id.RoleUser,
			AccountStatus: id.AccountActive,
			Degraded:      true,
		}, nil
	}
}
