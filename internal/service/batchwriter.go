package service

import (
	"context"
	"fmt"
	"log/slog"

	rhotel "github.com/rosterhub/rosterhub/internal/adapter/otel"
	domdocstore "github.com/rosterhub/rosterhub/internal/domain/docstore"
	"github.com/rosterhub/rosterhub/internal/port/docstore"
)

// BatchWriter commits an unbounded sequence of mutation intents as a series
// of atomic groups no larger than the configured cap.
//
// Groups commit sequentially: each must fully commit or fail before the
// next begins, which preserves intent-submission order across group
// boundaries and gives a deterministic applied count on partial failure.
// There is no rollback across groups; a group that commits stays applied
// even when a later group fails.
type BatchWriter struct {
	store   docstore.Store
	cap     int
	metrics *rhotel.Metrics
}

// NewBatchWriter creates a BatchWriter with the given per-group cap.
// The cap must be positive and strictly below the store's hard
// per-transaction write limit.
func NewBatchWriter(store docstore.Store, groupCap int) (*BatchWriter, error) {
	if groupCap <= 0 {
		return nil, fmt.Errorf("batch cap must be positive, got %d", groupCap)
	}
	if groupCap >= docstore.HardWriteLimit {
		return nil, fmt.Errorf("batch cap %d must stay below the store write limit %d", groupCap, docstore.HardWriteLimit)
	}
	return &BatchWriter{store: store, cap: groupCap}, nil
}

// SetMetrics attaches metric instruments. Nil metrics are allowed.
func (w *BatchWriter) SetMetrics(m *rhotel.Metrics) {
	w.metrics = m
}

// Cap returns the per-group write cap.
func (w *BatchWriter) Cap() int {
	return w.cap
}

// Commit applies the intents in submission order. On a group failure the
// remaining groups are abandoned and the report counts exactly the intents
// in groups committed before the failure.
func (w *BatchWriter) Commit(ctx context.Context, intents []domdocstore.MutationIntent) (domdocstore.CommitReport, error) {
	report := domdocstore.CommitReport{Total: len(intents)}

	batch := w.store.NewBatch()
	rounds := 0
	for _, intent := range intents {
		switch intent.Op {
		case domdocstore.OpSet:
			batch.Set(intent.Ref, intent.Fields)
		case domdocstore.OpDelete:
			batch.Delete(intent.Ref)
		default:
			return report, fmt.Errorf("unknown mutation op %q", intent.Op)
		}

		if batch.Len() >= w.cap {
			slog.Debug("committing intermediate batch group", "round", rounds+1, "size", batch.Len())
			if err := w.commitGroup(ctx, batch); err != nil {
				return report, fmt.Errorf("commit group %d: %w", rounds+1, err)
			}
			report.Applied += w.cap
			rounds++
			batch = w.store.NewBatch()
		}
	}

	if batch.Len() > 0 {
		final := batch.Len()
		slog.Debug("committing final batch group", "round", rounds+1, "size", final)
		if err := w.commitGroup(ctx, batch); err != nil {
			return report, fmt.Errorf("commit group %d: %w", rounds+1, err)
		}
		report.Applied += final
	}

	report.Succeeded = true
	return report, nil
}

func (w *BatchWriter) commitGroup(ctx context.Context, batch docstore.Batch) error {
	size := batch.Len()
	if err := batch.Commit(ctx); err != nil {
		if w.metrics != nil {
			w.metrics.BatchGroupsFailed.Add(ctx, 1)
		}
		return err
	}
	if w.metrics != nil {
		w.metrics.BatchGroupsCommitted.Add(ctx, 1)
		w.metrics.IntentsApplied.Add(ctx, int64(size))
	}
	return nil
}
