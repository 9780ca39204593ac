package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, name := range []string{"user", "admin", "super_admin", "kyc_reviewer"} {
		role, err := ParseRole(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, role.String())
	}

	_, err := ParseRole("root")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestRoleAuthority(t *testing.T) {
	assert.False(t, RoleUser.IsAdministrative())
	assert.False(t, RoleKYCReviewer.IsAdministrative())
	assert.True(t, RoleAdmin.IsAdministrative())
	assert.True(t, RoleSuperAdmin.IsAdministrative())

	assert.False(t, RoleUser.CanReview())
	assert.True(t, RoleKYCReviewer.CanReview())
	assert.True(t, RoleAdmin.CanReview())
	assert.True(t, RoleSuperAdmin.CanReview())
}

func TestParseAccountStatus(t *testing.T) {
	for _, name := range []string{"active", "suspended", "locked"} {
		status, err := ParseAccountStatus(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, status.String())
	}

	_, err := ParseAccountStatus("banned")
	assert.Error(t, err)
}
