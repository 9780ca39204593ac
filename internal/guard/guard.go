// Package guard holds the composable authorization checks applied after a
// principal is resolved. The checks are order-independent and pure: each one
// inspects the principal and the target, returning a coded error on denial.
package guard

import (
	"strings"

	"verigate/internal/identity"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
)

// RequireRole fails with insufficient_role unless the principal's role is in
// the allow-list. The error reports required versus actual so the caller can
// self-correct, and nothing more.
func RequireRole(p *identity.Principal, allowed ...id.Role) error {
	for _, role := range allowed {
		if p.Role == role {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, role := range allowed {
		names[i] = role.String()
	}
	required := strings.Join(names, " or ")
	return dErrors.New(dErrors.CodeInsufficientRole,
		"access denied, required role: "+required).
		WithMeta("required_role", required).
		WithMeta("actual_role", p.Role.String())
}

// RequireReviewer fails unless the principal may decide verification cases.
func RequireReviewer(p *identity.Principal) error {
	return RequireRole(p, id.RoleKYCReviewer, id.RoleAdmin, id.RoleSuperAdmin)
}

// RequireAdmin fails unless the principal holds an administrative role.
func RequireAdmin(p *identity.Principal) error {
	return RequireRole(p, id.RoleAdmin, id.RoleSuperAdmin)
}

// RequireOwnership fails with ownership_required unless the principal owns
// the resource. Administrative roles override ownership universally.
func RequireOwnership(p *identity.Principal, ownerID id.UserID) error {
	if p.ID == ownerID || p.Role.IsAdministrative() {
		return nil
	}
	return dErrors.New(dErrors.CodeOwnershipRequired,
		"access denied, you can only access your own resources")
}
