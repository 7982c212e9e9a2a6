// Package docstore defines the document store port (interface).
package docstore

import (
	"context"

	"github.com/rosterhub/rosterhub/internal/domain/docstore"
)

// HardWriteLimit is the store's documented per-transaction write ceiling.
// Exceeding it is a fatal, non-recoverable error for that group; the batch
// writer keeps a safety margin below it.
const HardWriteLimit = 500

// Store is the port interface for the transactional document database.
type Store interface {
	// Get returns the document at ref, or domain.ErrNotFound wrapped in the
	// returned error when it does not exist.
	Get(ctx context.Context, ref docstore.Ref) (*docstore.Document, error)

	// Set fully replaces the document at ref with fields, creating it if absent.
	Set(ctx context.Context, ref docstore.Ref, fields map[string]any) error

	// Delete removes the document at ref. Deleting an absent document is a no-op.
	Delete(ctx context.Context, ref docstore.Ref) error

	// CollectionGet returns a snapshot of all documents in the collection.
	CollectionGet(ctx context.Context, collection string) ([]docstore.Document, error)

	// NewBatch returns an empty atomic batch. Queued writes are applied
	// all-or-nothing on Commit.
	NewBatch() Batch
}

// Batch is an atomic group of queued writes. A batch is single-use: after
// Commit it must not be reused.
type Batch interface {
	// Set queues a full-replace write.
	Set(ref docstore.Ref, fields map[string]any)

	// Delete queues a delete.
	Delete(ref docstore.Ref)

	// Len reports the number of queued writes.
	Len() int

	// Commit applies all queued writes as a unit. On error nothing in the
	// batch was applied.
	Commit(ctx context.Context) error
}
