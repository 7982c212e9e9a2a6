package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "rosterhub"

// Metrics holds all Rosterhub metric instruments.
type Metrics struct {
	BatchGroupsCommitted metric.Int64Counter
	BatchGroupsFailed    metric.Int64Counter
	IntentsApplied       metric.Int64Counter
	DocsReplicated       metric.Int64Counter
	DocsReplicaDeleted   metric.Int64Counter
	BulkOpDuration       metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.BatchGroupsCommitted, err = meter.Int64Counter("rosterhub.batch.groups_committed",
		metric.WithDescription("Number of atomic batch groups committed"))
	if err != nil {
		return nil, err
	}

	m.BatchGroupsFailed, err = meter.Int64Counter("rosterhub.batch.groups_failed",
		metric.WithDescription("Number of atomic batch groups that failed to commit"))
	if err != nil {
		return nil, err
	}

	m.IntentsApplied, err = meter.Int64Counter("rosterhub.batch.intents_applied",
		metric.WithDescription("Number of mutation intents applied to the store"))
	if err != nil {
		return nil, err
	}

	m.DocsReplicated, err = meter.Int64Counter("rosterhub.replicator.docs_mirrored",
		metric.WithDescription("Number of documents mirrored into tenant collections"))
	if err != nil {
		return nil, err
	}

	m.DocsReplicaDeleted, err = meter.Int64Counter("rosterhub.replicator.docs_deleted",
		metric.WithDescription("Number of mirrored documents deleted"))
	if err != nil {
		return nil, err
	}

	m.BulkOpDuration, err = meter.Float64Histogram("rosterhub.bulkop.duration_seconds",
		metric.WithDescription("Bulk user operation duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
