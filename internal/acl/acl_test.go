package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "verigate/pkg/domain"
)

// TestEvaluate_FailClosed validates the deny-by-default invariant: without a
// policy or a matching grant, every request is denied.
func TestEvaluate_FailClosed(t *testing.T) {
	owner := id.NewUserID()

	t.Run("no policy denies everyone", func(t *testing.T) {
		subject := Subject{UserID: owner, Role: id.RoleSuperAdmin}
		assert.False(t, Evaluate(nil, subject, PermissionRead))
		assert.False(t, Evaluate(nil, subject, PermissionWrite))
	})

	t.Run("private policy denies strangers", func(t *testing.T) {
		policy := &Policy{Owner: owner, Visibility: VisibilityPrivate}
		stranger := Subject{UserID: id.NewUserID(), Role: id.RoleUser}
		assert.False(t, Evaluate(policy, stranger, PermissionRead))
	})

	t.Run("unauthenticated subject denied on private objects", func(t *testing.T) {
		policy := &Policy{Owner: owner, Visibility: VisibilityPrivate}
		assert.False(t, Evaluate(policy, Subject{}, PermissionRead))
	})
}

func TestEvaluate_Owner(t *testing.T) {
	owner := id.NewUserID()
	policy := &Policy{Owner: owner, Visibility: VisibilityPrivate}
	subject := Subject{UserID: owner, Role: id.RoleUser}

	assert.True(t, Evaluate(policy, subject, PermissionRead))
	assert.True(t, Evaluate(policy, subject, PermissionWrite))
}

func TestEvaluate_PublicVisibility(t *testing.T) {
	policy := &Policy{Owner: id.NewUserID(), Visibility: VisibilityPublic}

	t.Run("anyone may read", func(t *testing.T) {
		assert.True(t, Evaluate(policy, Subject{}, PermissionRead))
	})

	t.Run("write still requires a grant", func(t *testing.T) {
		stranger := Subject{UserID: id.NewUserID(), Role: id.RoleUser}
		assert.False(t, Evaluate(policy, stranger, PermissionWrite))
	})
}

func TestEvaluate_Rules(t *testing.T) {
	owner := id.NewUserID()
	reader := id.NewUserID()

	policy := &Policy{
		Owner:      owner,
		Visibility: VisibilityPrivate,
		Rules: []Rule{
			{Group: Group{Type: GroupOwner, ID: reader.String()}, Permission: PermissionRead},
			{Group: Group{Type: GroupRole, ID: id.RoleKYCReviewer.String()}, Permission: PermissionWrite},
		},
	}

	t.Run("user grant matches by id", func(t *testing.T) {
		subject := Subject{UserID: reader, Role: id.RoleUser}
		assert.True(t, Evaluate(policy, subject, PermissionRead))
		assert.False(t, Evaluate(policy, subject, PermissionWrite))
	})

	t.Run("role grant matches by role", func(t *testing.T) {
		subject := Subject{UserID: id.NewUserID(), Role: id.RoleKYCReviewer}
		assert.True(t, Evaluate(policy, subject, PermissionWrite))
	})

	t.Run("write grant satisfies read", func(t *testing.T) {
		subject := Subject{UserID: id.NewUserID(), Role: id.RoleKYCReviewer}
		assert.True(t, Evaluate(policy, subject, PermissionRead))
	})

	t.Run("read grant does not satisfy write", func(t *testing.T) {
		subject := Subject{UserID: reader, Role: id.RoleUser}
		assert.False(t, Evaluate(policy, subject, PermissionWrite))
	})
}

func TestNewDocumentPolicy(t *testing.T) {
	owner := id.NewUserID()
	policy := NewDocumentPolicy(owner)

	t.Run("uploader reads and writes", func(t *testing.T) {
		subject := Subject{UserID: owner, Role: id.RoleUser}
		assert.True(t, Evaluate(policy, subject, PermissionRead))
		assert.True(t, Evaluate(policy, subject, PermissionWrite))
	})

	t.Run("reviewer and admin read only", func(t *testing.T) {
		for _, role := range []id.Role{id.RoleKYCReviewer, id.RoleAdmin, id.RoleSuperAdmin} {
			subject := Subject{UserID: id.NewUserID(), Role: role}
			assert.True(t, Evaluate(policy, subject, PermissionRead), role)
			assert.False(t, Evaluate(policy, subject, PermissionWrite), role)
		}
	})

	t.Run("other users denied", func(t *testing.T) {
		subject := Subject{UserID: id.NewUserID(), Role: id.RoleUser}
		assert.False(t, Evaluate(policy, subject, PermissionRead))
	})
}
