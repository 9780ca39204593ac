package domain

import dErrors "verigate/pkg/domain-errors"

// Role classifies a Principal's authority. The set is closed: construct via
// ParseRole at trust boundaries to enforce the allowlist.
type Role string

const (
	RoleUser        Role = "user"
	RoleAdmin       Role = "admin"
	RoleSuperAdmin  Role = "super_admin"
	RoleKYCReviewer Role = "kyc_reviewer"
)

var validRoles = map[Role]bool{
	RoleUser:        true,
	RoleAdmin:       true,
	RoleSuperAdmin:  true,
	RoleKYCReviewer: true,
}

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !validRoles[r] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

func (r Role) String() string { return string(r) }

// IsAdministrative reports whether the role carries the universal admin
// override used by ownership checks.
func (r Role) IsAdministrative() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// CanReview reports whether the role may decide verification cases.
// Administrative roles satisfy reviewer-level requirements.
func (r Role) CanReview() bool {
	return r == RoleKYCReviewer || r.IsAdministrative()
}

// AccountStatus is the lifecycle state of a Principal's account. Principals
// are never deleted; they move between these soft states.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountLocked    AccountStatus = "locked"
)

var validAccountStatuses = map[AccountStatus]bool{
	AccountActive:    true,
	AccountSuspended: true,
	AccountLocked:    true,
}

// ParseAccountStatus constructs an AccountStatus from external input.
func ParseAccountStatus(s string) (AccountStatus, error) {
	st := AccountStatus(s)
	if !validAccountStatuses[st] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid account status")
	}
	return st, nil
}

func (s AccountStatus) String() string { return string(s) }
