package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	rhotel "github.com/rosterhub/rosterhub/internal/adapter/otel"
	"github.com/rosterhub/rosterhub/internal/domain"
	domdocstore "github.com/rosterhub/rosterhub/internal/domain/docstore"
	"github.com/rosterhub/rosterhub/internal/domain/identity"
	"github.com/rosterhub/rosterhub/internal/domain/record"
	"github.com/rosterhub/rosterhub/internal/port/docstore"
	"github.com/rosterhub/rosterhub/internal/port/idp"
)

// defaultResetConcurrency bounds the parallel provider calls during a
// password reset fan-out.
const defaultResetConcurrency = 16

// BulkUserService runs the privileged user-lifecycle operations: admin
// checks, bulk deletion with store reconciliation, password resets, email
// changes, listing, provisioning, and provisioning cleanup.
//
// Every mutating operation authorizes through the AccessGuard first, so a
// request can never touch identities outside the caller's tenant.
type BulkUserService struct {
	provider idp.Provider
	guard    *AccessGuard
	resolver *TenantResolver
	writer   *BatchWriter
	store    docstore.Store
	tenants  *TenantConfigService

	listLimit        int
	resetConcurrency int
	metrics          *rhotel.Metrics
}

// NewBulkUserService creates a new BulkUserService.
func NewBulkUserService(
	provider idp.Provider,
	guard *AccessGuard,
	resolver *TenantResolver,
	writer *BatchWriter,
	store docstore.Store,
	tenants *TenantConfigService,
	listLimit int,
) *BulkUserService {
	if listLimit <= 0 {
		listLimit = 1000
	}
	return &BulkUserService{
		provider:         provider,
		guard:            guard,
		resolver:         resolver,
		writer:           writer,
		store:            store,
		tenants:          tenants,
		listLimit:        listLimit,
		resetConcurrency: defaultResetConcurrency,
	}
}

// SetMetrics attaches metric instruments. Safe to leave unset.
func (s *BulkUserService) SetMetrics(m *rhotel.Metrics) {
	s.metrics = m
}

// DeleteReport is the outcome of a bulk deletion: the provider-side per-id
// results plus the store-side reconciliation report.
type DeleteReport struct {
	Requested int                      `json:"requested"`
	Deleted   int                      `json:"deleted"`
	Failures  []identity.BulkError     `json:"failures,omitempty"`
	Store     domdocstore.CommitReport `json:"store"`
}

// CheckIsAdmin reports whether the identity registered under email holds
// an admin tier in its tenant. Any authenticated caller may ask; unknown
// emails and identities without a tenant or record resolve to false, not
// an error.
func (s *BulkUserService) CheckIsAdmin(ctx context.Context, callerID, email string) (bool, error) {
	if callerID == "" {
		return false, fmt.Errorf("no caller identity: %w", domain.ErrUnauthenticated)
	}
	if email == "" {
		return false, fmt.Errorf("email is required: %w", domain.ErrInvalidArgument)
	}

	ident, err := s.provider.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	tenantID, err := s.resolver.ResolveTenant(ctx, ident.ID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	tier, err := s.resolver.ResolvePrivilege(ctx, tenantID, ident.ID)
	if err != nil {
		return false, err
	}
	return tier.Admin(), nil
}

// DeleteUsers removes the target identities from the provider and
// reconciles the tenant store: only ids whose provider deletion succeeded
// get their user record deleted. Store deletions go through the bounded
// batch writer, so groups committed before a store failure stay applied.
func (s *BulkUserService) DeleteUsers(ctx context.Context, callerID string, targetIDs []string) (*DeleteReport, error) {
	if len(targetIDs) == 0 {
		return nil, fmt.Errorf("no target ids: %w", domain.ErrInvalidArgument)
	}

	tenantID, err := s.guard.Authorize(ctx, callerID, targetIDs)
	if err != nil {
		return nil, err
	}

	ctx, span := rhotel.StartBulkOpSpan(ctx, "delete_users", tenantID, len(targetIDs))
	defer span.End()
	start := time.Now()

	result, err := s.provider.BulkDelete(ctx, targetIDs)
	if err != nil {
		return nil, fmt.Errorf("bulk delete: %w", err)
	}

	failed := result.FailedIndexes()
	intents := make([]domdocstore.MutationIntent, 0, len(targetIDs))
	for i, id := range targetIDs {
		if failed[i] {
			continue
		}
		intents = append(intents, domdocstore.MutationIntent{
			Op:  domdocstore.OpDelete,
			Ref: domdocstore.UserRecordRef(tenantID, id),
		})
	}

	report, commitErr := s.writer.Commit(ctx, intents)
	s.recordDuration(ctx, "delete_users", start)

	slog.Info("bulk delete finished",
		"tenant", tenantID,
		"caller", callerID,
		"requested", len(targetIDs),
		"deleted", result.SuccessCount,
		"failed", result.FailureCount,
		"records_applied", report.Applied)

	out := &DeleteReport{
		Requested: len(targetIDs),
		Deleted:   result.SuccessCount,
		Failures:  result.Errors,
		Store:     report,
	}
	if commitErr != nil {
		return out, fmt.Errorf("reconcile records: %w", commitErr)
	}
	return out, nil
}

// ResetPasswords sets every target identity's password back to the
// tenant's shared default credential, fanning the provider calls out in
// parallel. The credential is returned to the caller; it is never logged.
func (s *BulkUserService) ResetPasswords(ctx context.Context, callerID string, targetIDs []string) (string, *identity.BulkResult, error) {
	if len(targetIDs) == 0 {
		return "", nil, fmt.Errorf("no target ids: %w", domain.ErrInvalidArgument)
	}

	tenantID, err := s.guard.Authorize(ctx, callerID, targetIDs)
	if err != nil {
		return "", nil, err
	}

	password, err := s.tenants.DefaultCredential(ctx, tenantID)
	if err != nil {
		return "", nil, err
	}

	ctx, span := rhotel.StartBulkOpSpan(ctx, "reset_passwords", tenantID, len(targetIDs))
	defer span.End()
	start := time.Now()

	var mu sync.Mutex
	result := &identity.BulkResult{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.resetConcurrency)
	for i, id := range targetIDs {
		g.Go(func() error {
			err := s.provider.Update(gctx, id, identity.UpdateRequest{Password: password})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.FailureCount++
				result.Errors = append(result.Errors, identity.BulkError{Index: i, Err: err.Error()})
				return nil
			}
			result.SuccessCount++
			return nil
		})
	}
	// Per-id failures are collected, never propagated.
	_ = g.Wait()

	s.recordDuration(ctx, "reset_passwords", start)
	slog.Info("password reset finished",
		"tenant", tenantID,
		"caller", callerID,
		"requested", len(targetIDs),
		"reset", result.SuccessCount,
		"failed", result.FailureCount)

	return password, result, nil
}

// SetEmail changes one target identity's sign-in email.
func (s *BulkUserService) SetEmail(ctx context.Context, callerID, targetID, email string) error {
	if targetID == "" || email == "" {
		return fmt.Errorf("target id and email are required: %w", domain.ErrInvalidArgument)
	}

	tenantID, err := s.guard.Authorize(ctx, callerID, []string{targetID})
	if err != nil {
		return err
	}

	if err := s.provider.Update(ctx, targetID, identity.UpdateRequest{Email: email}); err != nil {
		return fmt.Errorf("set email for %s: %w", targetID, err)
	}
	slog.Info("email updated", "tenant", tenantID, "caller", callerID, "target", targetID)
	return nil
}

// ListUsers returns the caller's tenant users: the provider listing joined
// with the tenant's user records, restricted to identities whose membership
// points at the caller's tenant.
func (s *BulkUserService) ListUsers(ctx context.Context, callerID string) ([]record.Profile, error) {
	tenantID, err := s.guard.Authorize(ctx, callerID, nil)
	if err != nil {
		return nil, err
	}

	identities, err := s.provider.List(ctx, s.listLimit)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	dir, err := s.resolver.MembershipDirectory(ctx)
	if err != nil {
		return nil, err
	}

	records, err := s.store.CollectionGet(ctx, domdocstore.UserDataCollection(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list user records: %w", err)
	}
	fieldsByID := make(map[string]map[string]any, len(records))
	for _, doc := range records {
		fieldsByID[doc.Ref.ID] = doc.Fields
	}

	profiles := make([]record.Profile, 0, len(identities))
	for _, ident := range identities {
		if dir[ident.ID] != tenantID {
			continue
		}
		profiles = append(profiles, record.Profile{
			ID:     ident.ID,
			Email:  ident.Email,
			Fields: fieldsByID[ident.ID],
		})
	}
	return profiles, nil
}

// ProvisionUser creates a new identity on the provider with the tenant's
// default credential and writes the membership and user record in one
// atomic group. Record fields are validated against the tenant's schema
// before anything is created.
func (s *BulkUserService) ProvisionUser(ctx context.Context, callerID, email string, fields map[string]any) (*identity.Identity, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", domain.ErrInvalidArgument)
	}

	tenantID, err := s.guard.Authorize(ctx, callerID, nil)
	if err != nil {
		return nil, err
	}

	cfg, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateRecord(fields); err != nil {
		return nil, err
	}

	password, err := s.tenants.DefaultCredential(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	ident, err := s.provider.Create(ctx, "", email, password)
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}

	recordFields := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		recordFields[k] = v
	}
	recordFields["accountType"] = string(identity.TierMember)

	intents := []domdocstore.MutationIntent{
		{
			Op:     domdocstore.OpSet,
			Ref:    domdocstore.MembershipRef(ident.ID),
			Fields: map[string]any{"tenant": tenantID},
		},
		{
			Op:     domdocstore.OpSet,
			Ref:    domdocstore.UserRecordRef(tenantID, ident.ID),
			Fields: recordFields,
		},
	}
	if _, err := s.writer.Commit(ctx, intents); err != nil {
		// The identity exists but the tenant records do not; the user can
		// clean this up through DeleteFailedProvisioning.
		return ident, fmt.Errorf("write tenant records for %s: %w", ident.ID, err)
	}

	slog.Info("user provisioned", "tenant", tenantID, "caller", callerID, "identity", ident.ID)
	return ident, nil
}

// DeleteFailedProvisioning removes the caller's own identity from the
// provider, but only when provisioning never completed: the caller must be
// deleting itself and must have no membership document. An identity with a
// membership is a live tenant user and stays.
func (s *BulkUserService) DeleteFailedProvisioning(ctx context.Context, callerID, targetID string) error {
	if callerID == "" {
		return fmt.Errorf("no caller identity: %w", domain.ErrUnauthenticated)
	}
	if targetID == "" {
		return fmt.Errorf("target id is required: %w", domain.ErrInvalidArgument)
	}
	if callerID != targetID {
		return fmt.Errorf("caller %s may only delete itself: %w", callerID, domain.ErrPermissionDenied)
	}

	if _, err := s.resolver.ResolveTenant(ctx, targetID); err == nil {
		return fmt.Errorf("identity %s has a tenant membership: %w", targetID, domain.ErrPermissionDenied)
	} else if !isNotFound(err) {
		return err
	}

	if err := s.provider.Delete(ctx, targetID); err != nil {
		return fmt.Errorf("delete identity %s: %w", targetID, err)
	}
	slog.Info("failed provisioning cleaned up", "identity", targetID)
	return nil
}

func (s *BulkUserService) recordDuration(ctx context.Context, op string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.BulkOpDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("operation", op)))
}
