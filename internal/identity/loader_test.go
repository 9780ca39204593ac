package identity

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"verigate/internal/token"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
)

// ============================================================================
// Test Suite Setup
// ============================================================================

type LoaderSuite struct {
	suite.Suite
	ctx    context.Context
	store  *InMemoryStore
	loader *Loader

	principal *Principal
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderSuite))
}

func (s *LoaderSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.loader = NewLoader(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Second)

	s.principal = &Principal{
		ID:            id.NewUserID(),
		Email:         "ada@example.test",
		Role:          id.RoleKYCReviewer,
		AccountStatus: id.AccountActive,
	}
	s.store.Seed(s.principal)
}

func (s *LoaderSuite) claimsFor(p *Principal) *token.Claims {
	return &token.Claims{UserID: p.ID.String(), Email: p.Email}
}

// ============================================================================
// Live Store
// ============================================================================

func (s *LoaderSuite) TestLoadsLivePrincipal() {
	p, err := s.loader.Load(s.ctx, s.claimsFor(s.principal), RouteCritical)

	s.Require().NoError(err)
	s.Equal(s.principal.ID, p.ID)
	s.Equal(id.RoleKYCReviewer, p.Role)
	s.False(p.Degraded)
}

func (s *LoaderSuite) TestRefreshesActivityOnLoad() {
	_, err := s.loader.Load(s.ctx, s.claimsFor(s.principal), RouteStandard)
	s.Require().NoError(err)

	stored, err := s.store.FindByID(s.ctx, s.principal.ID)
	s.Require().NoError(err)
	s.WithinDuration(time.Now(), stored.LastActivityAt, 5*time.Second)
}

func (s *LoaderSuite) TestRejectsSuspendedAccount() {
	s.principal.AccountStatus = id.AccountSuspended
	s.store.Seed(s.principal)

	_, err := s.loader.Load(s.ctx, s.claimsFor(s.principal), RouteStandard)

	s.True(dErrors.HasCode(err, dErrors.CodeAccountInactive))
	var de *dErrors.Error
	s.Require().ErrorAs(err, &de)
	s.Equal("suspended", de.Meta["account_status"])
}

func (s *LoaderSuite) TestRejectsLockedAccount() {
	s.principal.AccountStatus = id.AccountLocked
	s.store.Seed(s.principal)

	_, err := s.loader.Load(s.ctx, s.claimsFor(s.principal), RouteCritical)

	s.True(dErrors.HasCode(err, dErrors.CodeAccountInactive))
}

func (s *LoaderSuite) TestRejectsUnknownPrincipal() {
	ghost := &Principal{ID: id.NewUserID()}

	_, err := s.loader.Load(s.ctx, s.claimsFor(ghost), RouteStandard)

	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *LoaderSuite) TestRejectsMalformedClaims() {
	_, err := s.loader.Load(s.ctx, &token.Claims{UserID: "not-a-uuid"}, RouteStandard)

	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

// ============================================================================
// Store Unavailable
// ============================================================================

func (s *LoaderSuite) TestCriticalRouteFailsClosed() {
	s.store.SetFailing(true)

	_, err := s.loader.Load(s.ctx, s.claimsFor(s.principal), RouteCritical)

	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	var de *dErrors.Error
	s.Require().ErrorAs(err, &de)
	s.Equal("30", de.Meta["retry_after"])
}

func (s *LoaderSuite) TestStandardRouteDegrades() {
	s.store.SetFailing(true)

	p, err := s.loader.Load(s.ctx, s.claimsFor(s.principal), RouteStandard)

	s.Require().NoError(err)
	s.True(p.Degraded)
	s.Equal(s.principal.ID, p.ID)
	s.Equal(s.principal.Email, p.Email)
	// The stored role is unknowable; the degraded principal carries the
	// least privileged one regardless of what the token's subject holds.
	s.Equal(id.RoleUser, p.Role)
	s.Equal(id.AccountActive, p.AccountStatus)
}
