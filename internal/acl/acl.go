// Package acl implements the access policy attached to stored objects.
//
// Evaluation is fail-closed: an object with no policy is unreachable by
// everyone, including its nominal owner, and any malformed input denies.
package acl

import (
	id "verigate/pkg/domain"
)

// Permission forms a two-level lattice: write subsumes read.
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
)

// Satisfies reports whether a granted permission covers the requested one.
func (granted Permission) Satisfies(requested Permission) bool {
	if granted == requested {
		return true
	}
	return granted == PermissionWrite && requested == PermissionRead
}

// Visibility is the policy's baseline exposure.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// GroupType selects how a rule's group matches a principal.
type GroupType string

const (
	// GroupOwner matches the principal whose id equals the group ID.
	GroupOwner GroupType = "owner"
	// GroupRole matches any principal holding the role named by the group ID.
	GroupRole GroupType = "role"
)

// Group identifies who a rule applies to.
type Group struct {
	Type GroupType
	// ID is a user id for GroupOwner and a role name for GroupRole.
	ID string
}

// Rule grants one permission to one group.
type Rule struct {
	Group      Group
	Permission Permission
}

// Policy governs access to a single stored object.
type Policy struct {
	Owner      id.UserID
	Visibility Visibility
	Rules      []Rule
}

// Subject is the accessor being evaluated. A zero UserID means an
// unauthenticated caller.
type Subject struct {
	UserID id.UserID
	Role   id.Role
}

// Evaluate decides whether the subject may perform the requested action.
//
// Decision order: no policy denies; public objects allow read to anyone;
// everything else requires an identified subject; the owner is allowed
// unconditionally; otherwise the first matching rule whose permission
// satisfies the request allows. No match denies.
func Evaluate(policy *Policy, subject Subject, requested Permission) bool {
	if policy == nil {
		return false
	}
	if policy.Visibility == VisibilityPublic && requested == PermissionRead {
		return true
	}
	if subject.UserID.IsNil() {
		return false
	}
	if subject.UserID == policy.Owner {
		return true
	}
	for _, rule := range policy.Rules {
		if !rule.Permission.Satisfies(requested) {
			continue
		}
		switch rule.Group.Type {
		case GroupOwner:
			if rule.Group.ID == subject.UserID.String() {
				return true
			}
		case GroupRole:
			if rule.Group.ID == subject.Role.String() {
				return true
			}
		}
	}
	return false
}

// NewDocumentPolicy builds the standard policy for an uploaded verification
// document: private to the uploader, readable by reviewers and admins.
func NewDocumentPolicy(owner id.UserID) *Policy {
	return &Policy{
		Owner:      owner,
		Visibility: VisibilityPrivate,
		Rules: []Rule{
			{Group: Group{Type: GroupOwner, ID: owner.String()}, Permission: PermissionRead},
			{Group: Group{Type: GroupRole, ID: id.RoleKYCReviewer.String()}, Permission: PermissionRead},
			{Group: Group{Type: GroupRole, ID: id.RoleAdmin.String()}, Permission: PermissionRead},
			{Group: Group{Type: GroupRole, ID: id.RoleSuperAdmin.String()}, Permission: PermissionRead},
		},
	}
}
