package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"verigate/internal/identity"
	ratelimit "verigate/internal/ratelimit/models"
	ratelimitservice "verigate/internal/ratelimit/service"
	"verigate/internal/token"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/httputil"
	"verigate/pkg/requestcontext"
)

type principalKey struct{}

// PrincipalFrom returns the resolved principal for the request, or nil.
func PrincipalFrom(ctx context.Context) *identity.Principal {
	if p, ok := ctx.Value(principalKey{}).(*identity.Principal); ok {
		return p
	}
	return nil
}

// RequireAuth verifies the bearer token and resolves the principal through
// the loader. The route class decides what happens when the principal store
// is down: critical routes fail closed, standard routes get a degraded
// least-privilege principal.
func RequireAuth(verifier *token.Service, loader *identity.Loader, logger *slog.Logger, class identity.RouteClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				logger.WarnContext(ctx, "unauthorized access, missing bearer token",
					"request_id", requestcontext.RequestID(ctx))
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized,
					"missing or invalid Authorization header"))
				return
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access, token rejected",
					"request_id", requestcontext.RequestID(ctx),
					"error", err)
				httputil.WriteError(w, err)
				return
			}

			principal, err := loader.Load(ctx, claims, class)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}

			ctx = context.WithValue(ctx, principalKey{}, principal)
			ctx = requestcontext.WithPrincipal(ctx, &requestcontext.AuthPrincipal{
				UserID:   principal.ID,
				Role:     principal.Role,
				Degraded: principal.Degraded,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit consumes one slot from the principal's window for the operation.
// Runs after RequireAuth; requests without a principal pass through and are
// rejected by the handler's own auth check.
func RateLimit(limiter *ratelimitservice.Service, op ratelimit.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := requestcontext.UserID(ctx)
			if userID.IsNil() {
				next.ServeHTTP(w, r)
				return
			}
			if err := limiter.Check(ctx, userID, op); err != nil {
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
