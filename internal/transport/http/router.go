// Package httptransport is the HTTP boundary: routing, authentication
// middleware, request/response shapes and the handlers that bridge them to
// the domain services.
package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"verigate/internal/identity"
	platformmetrics "verigate/internal/platform/metrics"
	ratelimit "verigate/internal/ratelimit/models"
	ratelimitservice "verigate/internal/ratelimit/service"
	"verigate/internal/token"
	dErrors "verigate/pkg/domain-errors"
	"verigate/pkg/platform/httputil"
	"verigate/pkg/platform/middleware/metadata"
)

// Middlewares bundles the per-class stacks handlers mount their routes
// under. Standard tolerates a degraded principal, Critical fails closed when
// the principal store is down, Upload is Critical plus the tighter upload
// rate-limit window.
type Middlewares struct {
	Standard []func(http.Handler) http.Handler
	Critical []func(http.Handler) http.Handler
	Upload   []func(http.Handler) http.Handler
}

// Deps bundles everything the router wires together.
type Deps struct {
	Logger      *slog.Logger
	Verifier    *token.Service
	Loader      *identity.Loader
	Limiter     *ratelimitservice.Service
	HTTPMetrics *platformmetrics.Metrics
	Cases       *CaseHandler
	Documents   *DocumentHandler
}

// NewRouter mounts all endpoints. Health and metrics stay outside the auth
// stack; everything under /kyc requires a bearer token and fails closed when
// the principal store is down. Only the session view is served degraded.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(metadata.Capture)
	r.Use(instrument(d.HTTPMetrics))

	r.Get("/healthz", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	standardAuth := RequireAuth(d.Verifier, d.Loader, d.Logger, identity.RouteStandard)
	criticalAuth := RequireAuth(d.Verifier, d.Loader, d.Logger, identity.RouteCritical)
	generalLimit := RateLimit(d.Limiter, ratelimit.OperationGeneral)
	uploadLimit := RateLimit(d.Limiter, ratelimit.OperationUpload)

	mw := Middlewares{
		Standard: []func(http.Handler) http.Handler{standardAuth, generalLimit},
		Critical: []func(http.Handler) http.Handler{criticalAuth, generalLimit},
		Upload:   []func(http.Handler) http.Handler{criticalAuth, uploadLimit},
	}
	r.With(mw.Standard...).Get("/session", handleSession)
	d.Cases.Register(r, mw)
	d.Documents.Register(r, mw)

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSession returns the caller's resolved principal. It is not a
// verification endpoint, so an outage serves the degraded least-privilege
// view instead of failing closed.
func handleSession(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())
	if p == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPrincipal(p))
}

// statusWriter captures the response status for metric labels.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// instrument records request count and latency labeled by the matched chi
// route pattern, keeping label cardinality bounded regardless of path
// parameters.
func instrument(m *platformmetrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}
