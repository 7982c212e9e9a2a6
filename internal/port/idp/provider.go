// Package idp defines the identity provider port (interface).
package idp

import (
	"context"

	"github.com/rosterhub/rosterhub/internal/domain/identity"
)

// Provider is the port interface for the external identity provider's
// account-lifecycle admin API.
type Provider interface {
	// GetByEmail returns the identity registered under email, or an error
	// wrapping domain.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*identity.Identity, error)

	// List returns up to limit identities.
	List(ctx context.Context, limit int) ([]identity.Identity, error)

	// Create provisions a new identity. When req.ID is empty the provider
	// assigns one; the created identity is returned.
	Create(ctx context.Context, id, email, password string) (*identity.Identity, error)

	// Update changes identity fields (email and/or password).
	Update(ctx context.Context, id string, req identity.UpdateRequest) error

	// Delete removes a single identity.
	Delete(ctx context.Context, id string) error

	// BulkDelete removes up to 1000 identities, reporting per-index
	// outcomes. A per-id failure does not fail the call.
	BulkDelete(ctx context.Context, ids []string) (*identity.BulkResult, error)
}
