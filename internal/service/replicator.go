package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	rhotel "github.com/rosterhub/rosterhub/internal/adapter/otel"
	domdocstore "github.com/rosterhub/rosterhub/internal/domain/docstore"
	"github.com/rosterhub/rosterhub/internal/port/docstore"
	"github.com/rosterhub/rosterhub/internal/port/messagequeue"
)

// Replicator mirrors writes on one watched source collection into a
// per-tenant destination sub-collection. It consumes the document change
// feed, so delivery is at-least-once: Set is a full replace and Delete is
// idempotent, which makes redelivered events converge on the same state.
type Replicator struct {
	store docstore.Store
	queue messagequeue.Queue

	sourceCollection string
	destCollection   string
	defaultTenant    string

	metrics *rhotel.Metrics
}

// NewReplicator creates a Replicator mirroring sourceCollection into
// tenants/<tenant>/<destCollection>. defaultTenant receives documents that
// carry no tenant field of their own.
func NewReplicator(store docstore.Store, queue messagequeue.Queue, sourceCollection, destCollection, defaultTenant string) (*Replicator, error) {
	if sourceCollection == "" || destCollection == "" || defaultTenant == "" {
		return nil, fmt.Errorf("replicator: source, destination and default tenant are all required")
	}
	return &Replicator{
		store:            store,
		queue:            queue,
		sourceCollection: sourceCollection,
		destCollection:   destCollection,
		defaultTenant:    defaultTenant,
	}, nil
}

// SetMetrics attaches metric instruments. Safe to leave unset.
func (r *Replicator) SetMetrics(m *rhotel.Metrics) {
	r.metrics = m
}

// Start subscribes to the change feed and begins mirroring. The returned
// cancel function stops the subscription.
func (r *Replicator) Start(ctx context.Context) (func(), error) {
	cancel, err := r.queue.Subscribe(ctx, messagequeue.SubjectDocChangedAll, r.handleMessage)
	if err != nil {
		return nil, fmt.Errorf("subscribe change feed: %w", err)
	}
	slog.Info("replicator started",
		"source", r.sourceCollection,
		"destination", r.destCollection,
		"default_tenant", r.defaultTenant)
	return cancel, nil
}

// handleMessage decodes one change event and mirrors it if it belongs to
// the watched source collection. Returning an error triggers redelivery.
func (r *Replicator) handleMessage(ctx context.Context, subject string, data []byte) error {
	var event domdocstore.ChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		// A malformed event can never succeed; redelivering it would wedge
		// the subject. Log and drop.
		slog.Error("replicator: dropping malformed change event", "subject", subject, "error", err)
		return nil
	}
	return r.OnChange(ctx, event)
}

// OnChange mirrors a single change event. Events for other collections are
// ignored. A nil After mirrors the deletion; deleting an already-absent
// replica is a no-op, not an error.
func (r *Replicator) OnChange(ctx context.Context, event domdocstore.ChangeEvent) error {
	if event.Ref.Collection != r.sourceCollection {
		return nil
	}

	ctx, span := rhotel.StartReplicationSpan(ctx, event.Ref.Collection, event.Ref.ID)
	defer span.End()

	dest := r.destRef(event)

	if event.After == nil {
		err := r.store.Delete(ctx, dest)
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("delete replica %s: %w", dest.Path(), err)
		}
		if r.metrics != nil {
			r.metrics.DocsReplicaDeleted.Add(ctx, 1)
		}
		slog.Info("replica deleted", "source", event.Ref.Path(), "destination", dest.Path())
		return nil
	}

	// Full replace: the latest After wins regardless of redelivery order
	// for the same id.
	if err := r.store.Set(ctx, dest, event.After); err != nil {
		return fmt.Errorf("mirror %s to %s: %w", event.Ref.Path(), dest.Path(), err)
	}
	if r.metrics != nil {
		r.metrics.DocsReplicated.Add(ctx, 1)
	}
	slog.Info("document mirrored", "source", event.Ref.Path(), "destination", dest.Path())
	return nil
}

// destRef resolves the destination reference for an event. The tenant comes
// from the document's own "tenant" field (After first, Before for deletes),
// falling back to the configured default.
func (r *Replicator) destRef(event domdocstore.ChangeEvent) domdocstore.Ref {
	tenantID := docTenant(event.After)
	if tenantID == "" {
		tenantID = docTenant(event.Before)
	}
	if tenantID == "" {
		tenantID = r.defaultTenant
	}
	return domdocstore.Ref{
		Collection: domdocstore.TenantSubCollection(tenantID, r.destCollection),
		ID:         event.Ref.ID,
	}
}

func docTenant(fields map[string]any) string {
	if fields == nil {
		return ""
	}
	tenantID, _ := fields["tenant"].(string)
	return strings.TrimSpace(tenantID)
}
