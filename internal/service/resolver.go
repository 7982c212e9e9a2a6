package service

import (
	"context"
	"fmt"

	"github.com/rosterhub/rosterhub/internal/domain"
	domdocstore "github.com/rosterhub/rosterhub/internal/domain/docstore"
	"github.com/rosterhub/rosterhub/internal/domain/identity"
	"github.com/rosterhub/rosterhub/internal/port/docstore"
)

// TenantResolver maps a caller identity to its owning tenant and privilege
// tier. Lookups always hit the store; resolution results are never cached
// across requests so privilege revocations take effect immediately.
type TenantResolver struct {
	store docstore.Store
}

// NewTenantResolver creates a new TenantResolver.
func NewTenantResolver(store docstore.Store) *TenantResolver {
	return &TenantResolver{store: store}
}

// ResolveTenant returns the tenant owning the given identity.
// Returns domain.ErrNotFound when the identity has no membership yet
// (e.g. mid-provisioning).
func (r *TenantResolver) ResolveTenant(ctx context.Context, identityID string) (string, error) {
	doc, err := r.store.Get(ctx, domdocstore.MembershipRef(identityID))
	if err != nil {
		return "", fmt.Errorf("resolve tenant for %s: %w", identityID, err)
	}
	tenantID, _ := doc.Fields["tenant"].(string)
	if tenantID == "" {
		return "", fmt.Errorf("membership for %s has no tenant: %w", identityID, domain.ErrNotFound)
	}
	return tenantID, nil
}

// ResolvePrivilege returns the identity's privilege tier within the tenant.
// An absent user record resolves to TierNone, not an error.
func (r *TenantResolver) ResolvePrivilege(ctx context.Context, tenantID, identityID string) (identity.PrivilegeTier, error) {
	doc, err := r.store.Get(ctx, domdocstore.UserRecordRef(tenantID, identityID))
	if err != nil {
		if isNotFound(err) {
			return identity.TierNone, nil
		}
		return identity.TierNone, fmt.Errorf("resolve privilege for %s: %w", identityID, err)
	}
	tier, _ := doc.Fields["accountType"].(string)
	switch identity.PrivilegeTier(tier) {
	case identity.TierOwner, identity.TierAdmin, identity.TierMember:
		return identity.PrivilegeTier(tier), nil
	}
	return identity.TierNone, nil
}

// MembershipDirectory returns the full identity→tenant mapping from one
// collection snapshot.
func (r *TenantResolver) MembershipDirectory(ctx context.Context) (map[string]string, error) {
	docs, err := r.store.CollectionGet(ctx, domdocstore.MembershipCollection)
	if err != nil {
		return nil, fmt.Errorf("membership directory: %w", err)
	}
	dir := make(map[string]string, len(docs))
	for _, doc := range docs {
		if tenantID, ok := doc.Fields["tenant"].(string); ok {
			dir[doc.Ref.ID] = tenantID
		}
	}
	return dir, nil
}
