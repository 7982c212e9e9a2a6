package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rosterhub/rosterhub/internal/domain"
)

// AccessGuard authorizes privileged operations against the tenant boundary.
// It composes tenant resolution with a membership check over the requested
// target set. The guard has no side effects.
type AccessGuard struct {
	resolver *TenantResolver
}

// NewAccessGuard creates a new AccessGuard.
func NewAccessGuard(resolver *TenantResolver) *AccessGuard {
	return &AccessGuard{resolver: resolver}
}

// Authorize checks that the caller may run a privileged operation against
// targetIDs and returns the caller's tenant for downstream scoping.
//
// Fails domain.ErrUnauthenticated when callerID is empty and
// domain.ErrPermissionDenied when the caller has no tenant, is not an
// OWNER or ADMIN, or any target belongs to another tenant. The target
// check is all-or-nothing: the first mismatch aborts the whole request.
func (g *AccessGuard) Authorize(ctx context.Context, callerID string, targetIDs []string) (string, error) {
	if callerID == "" {
		return "", fmt.Errorf("no caller identity: %w", domain.ErrUnauthenticated)
	}

	tenantID, err := g.resolver.ResolveTenant(ctx, callerID)
	if err != nil {
		if isNotFound(err) {
			// A caller without a tenant is indistinguishable from one
			// probing another tenant's data.
			return "", fmt.Errorf("caller %s has no tenant: %w", callerID, domain.ErrPermissionDenied)
		}
		return "", err
	}

	tier, err := g.resolver.ResolvePrivilege(ctx, tenantID, callerID)
	if err != nil {
		return "", err
	}
	if !tier.Admin() {
		return "", fmt.Errorf("caller %s is not an admin: %w", callerID, domain.ErrPermissionDenied)
	}

	if len(targetIDs) > 0 {
		dir, err := g.resolver.MembershipDirectory(ctx)
		if err != nil {
			return "", err
		}
		for _, id := range targetIDs {
			if dir[id] != tenantID {
				slog.Warn("cross-tenant target rejected",
					"caller", callerID, "target", id, "tenant", tenantID)
				return "", fmt.Errorf("target %s is outside tenant %s: %w", id, tenantID, domain.ErrPermissionDenied)
			}
		}
	}

	return tenantID, nil
}

// AuthorizeMember checks that the caller is an authenticated member of some
// tenant and returns that tenant. Unlike Authorize it requires no admin
// tier; it gates read paths that any signed-in tenant member may use.
func (g *AccessGuard) AuthorizeMember(ctx context.Context, callerID string) (string, error) {
	if callerID == "" {
		return "", fmt.Errorf("no caller identity: %w", domain.ErrUnauthenticated)
	}

	tenantID, err := g.resolver.ResolveTenant(ctx, callerID)
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("caller %s has no tenant: %w", callerID, domain.ErrPermissionDenied)
		}
		return "", err
	}
	return tenantID, nil
}

// isNotFound reports whether err wraps domain.ErrNotFound.
func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
