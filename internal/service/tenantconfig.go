package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rosterhub/rosterhub/internal/domain"
	domdocstore "github.com/rosterhub/rosterhub/internal/domain/docstore"
	"github.com/rosterhub/rosterhub/internal/domain/tenant"
	"github.com/rosterhub/rosterhub/internal/port/cache"
	"github.com/rosterhub/rosterhub/internal/port/docstore"
)

// TenantConfigService reads and updates per-tenant configuration.
//
// Config documents are served through a short-TTL cache; the cache is
// invalidated on update. The default credential is always read fresh from
// the store.
type TenantConfigService struct {
	store docstore.Store
	guard *AccessGuard
	cache cache.Cache
	ttl   time.Duration
}

// NewTenantConfigService creates a new TenantConfigService. A nil cache
// disables caching.
func NewTenantConfigService(store docstore.Store, guard *AccessGuard, c cache.Cache, ttl time.Duration) *TenantConfigService {
	return &TenantConfigService{store: store, guard: guard, cache: c, ttl: ttl}
}

func configCacheKey(tenantID string) string {
	return "tenantconfig:" + tenantID
}

// GetFor returns the tenant's config document for an authenticated member
// of that tenant. This is the caller-facing read path; internal reads use
// Get directly.
func (s *TenantConfigService) GetFor(ctx context.Context, callerID, tenantID string) (*tenant.Config, error) {
	callerTenant, err := s.guard.AuthorizeMember(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if callerTenant != tenantID {
		return nil, fmt.Errorf("tenant %s is not the caller's tenant: %w", tenantID, domain.ErrPermissionDenied)
	}
	return s.Get(ctx, tenantID)
}

// Get returns the tenant's config document.
func (s *TenantConfigService) Get(ctx context.Context, tenantID string) (*tenant.Config, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, configCacheKey(tenantID)); err == nil && ok {
			var cfg tenant.Config
			if err := json.Unmarshal(data, &cfg); err == nil {
				return &cfg, nil
			}
		}
	}

	doc, err := s.store.Get(ctx, domdocstore.TenantRef(tenantID))
	if err != nil {
		return nil, fmt.Errorf("tenant config %s: %w", tenantID, err)
	}

	cfg, err := decodeConfig(doc.Fields)
	if err != nil {
		return nil, fmt.Errorf("tenant config %s: %w", tenantID, err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(cfg); err == nil {
			_ = s.cache.Set(ctx, configCacheKey(tenantID), data, s.ttl)
		}
	}
	return cfg, nil
}

// Update replaces the tenant's config document. Only the caller's own
// tenant may be updated.
func (s *TenantConfigService) Update(ctx context.Context, callerID, tenantID string, fields map[string]any) error {
	callerTenant, err := s.guard.Authorize(ctx, callerID, nil)
	if err != nil {
		return err
	}
	if callerTenant != tenantID {
		return fmt.Errorf("tenant %s is not the caller's tenant: %w", tenantID, domain.ErrPermissionDenied)
	}
	if _, err := decodeConfig(fields); err != nil {
		return err
	}

	if err := s.store.Set(ctx, domdocstore.TenantRef(tenantID), fields); err != nil {
		return fmt.Errorf("update tenant config %s: %w", tenantID, err)
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, configCacheKey(tenantID))
	}
	slog.Info("tenant config updated", "tenant", tenantID, "caller", callerID)
	return nil
}

// DefaultCredential returns the tenant's shared default credential,
// read fresh from the store on every call.
func (s *TenantConfigService) DefaultCredential(ctx context.Context, tenantID string) (string, error) {
	doc, err := s.store.Get(ctx, domdocstore.DefaultCredentialRef(tenantID))
	if err != nil {
		return "", fmt.Errorf("default credential for %s: %w", tenantID, err)
	}
	password, _ := doc.Fields["password"].(string)
	if password == "" {
		return "", fmt.Errorf("tenant %s has no default credential: %w", tenantID, domain.ErrNotFound)
	}
	return password, nil
}

// decodeConfig round-trips raw document fields into a typed Config so
// malformed schema descriptors are caught before use.
func decodeConfig(fields map[string]any) (*tenant.Config, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	var cfg tenant.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: malformed tenant config: %v", domain.ErrInvalidArgument, err)
	}
	return &cfg, nil
}
