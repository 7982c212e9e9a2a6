// Package identity defines the identity and tenant-membership domain model.
//
// Identities are owned by the external identity provider; tenant data only
// references them by id. Membership is the join table between the two and
// must stay consistent with both sides (see service.BulkUserService).
package identity

import "time"

// Identity is an account managed by the external identity provider.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Disabled  bool      `json:"disabled,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Membership maps an identity to its owning tenant.
// Invariant: at most one tenant per identity.
type Membership struct {
	IdentityID string `json:"identity_id"`
	TenantID   string `json:"tenant"`
}

// PrivilegeTier is the authorization level a user record holds within its tenant.
type PrivilegeTier string

const (
	TierOwner  PrivilegeTier = "OWNER"
	TierAdmin  PrivilegeTier = "ADMIN"
	TierMember PrivilegeTier = "MEMBER"
	// TierNone is the resolved tier when no user record exists for the
	// identity in the tenant. It is never stored.
	TierNone PrivilegeTier = "NONE"
)

// Admin reports whether the tier may perform privileged bulk operations.
func (t PrivilegeTier) Admin() bool {
	return t == TierOwner || t == TierAdmin
}

// BulkError is a per-item failure from a provider bulk operation,
// positioned by index into the submitted id slice.
type BulkError struct {
	Index int    `json:"index"`
	Err   string `json:"error"`
}

// BulkResult is the per-id outcome summary of a provider bulk operation.
// A single-id failure never fails the whole call; callers reconcile using
// FailedIndexes.
type BulkResult struct {
	SuccessCount int         `json:"success_count"`
	FailureCount int         `json:"failure_count"`
	Errors       []BulkError `json:"errors,omitempty"`
}

// FailedIndexes returns the set of indexes whose per-id operation failed.
func (r *BulkResult) FailedIndexes() map[int]bool {
	if len(r.Errors) == 0 {
		return nil
	}
	failed := make(map[int]bool, len(r.Errors))
	for _, e := range r.Errors {
		failed[e.Index] = true
	}
	return failed
}

// UpdateRequest holds the identity fields an admin may change on the provider.
type UpdateRequest struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}
