// Package objectstore is the boundary to opaque blob storage. Documents are
// stored behind locators; access policies live in object metadata so the
// engine can evaluate them without touching the bytes.
package objectstore

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"

	"verigate/internal/acl"
)

// Store persists opaque objects and their access policies.
//
// SetPolicy must be visible to subsequent GetPolicy calls before the caller
// treats an upload as complete; an object without a policy is unreachable.
type Store interface {
	// Put stores the bytes and returns an opaque locator.
	Put(ctx context.Context, data []byte) (string, error)
	// Get returns the bytes behind a locator.
	Get(ctx context.Context, locator string) ([]byte, error)
	// Delete removes the object and its policy.
	Delete(ctx context.Context, locator string) error
	// SetPolicy attaches the access policy to an object.
	SetPolicy(ctx context.Context, locator string, policy *acl.Policy) error
	// GetPolicy returns the policy attached to an object, or
	// sentinel.ErrNotFound when the object has none.
	GetPolicy(ctx context.Context, locator string) (*acl.Policy, error)
}
