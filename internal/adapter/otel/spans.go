package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "rosterhub"

// StartBulkOpSpan starts a span for a privileged bulk user operation.
func StartBulkOpSpan(ctx context.Context, op, tenantID string, targets int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "bulkop",
		trace.WithAttributes(
			attribute.String("bulkop.name", op),
			attribute.String("tenant.id", tenantID),
			attribute.Int("bulkop.targets", targets),
		),
	)
}

// StartReplicationSpan starts a span for one change-event replication.
func StartReplicationSpan(ctx context.Context, collection, docID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "replicate",
		trace.WithAttributes(
			attribute.String("doc.collection", collection),
			attribute.String("doc.id", docID),
		),
	)
}
