package identity

import (
	"time"

	id "verigate/pkg/domain"
)

// Principal is an authenticated actor. Created at registration (outside this
// system), mutated by login and status-change events, never deleted.
type Principal struct {
	ID               id.UserID
	Email            string
	Username         string
	FirstName        string
	LastName         string
	Role             id.Role
	AccountStatus    id.AccountStatus
	EmailVerified    bool
	TwoFactorEnabled bool
	LastActivityAt   time.Time

	// Degraded marks a principal reconstructed from token claims alone while
	// the durable store was unreachable. Degraded principals carry the least
	// privileged role and are flagged for downstream audit.
	Degraded bool
}

// IsActive reports whether the account may be served at all.
func (p *Principal) IsActive() bool {
	return p.AccountStatus == id.AccountActive
}
