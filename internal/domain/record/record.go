// Package record defines the tenant-scoped user record model.
package record

import "github.com/rosterhub/rosterhub/internal/domain/identity"

// UserRecord is a tenant-scoped profile keyed by identity id. The field set
// is declared by the tenant's schema descriptor; AccountType is the one
// field every tenant carries.
type UserRecord struct {
	IdentityID  string                 `json:"-"`
	AccountType identity.PrivilegeTier `json:"accountType"`
	Fields      map[string]any         `json:"-"`
}

// Profile is the caller-facing projection of a listed user: the provider
// email joined with the tenant record fields.
type Profile struct {
	ID     string         `json:"id"`
	Email  string         `json:"email"`
	Fields map[string]any `json:"fields,omitempty"`
}
