package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosterhub/rosterhub/internal/domain"
	domdocstore "github.com/rosterhub/rosterhub/internal/domain/docstore"
	portdocstore "github.com/rosterhub/rosterhub/internal/port/docstore"
	"github.com/rosterhub/rosterhub/internal/port/messagequeue"
)

// Store implements docstore.Store over a single JSONB documents table.
//
// Writes to watched collections publish a before/after change event to the
// queue after the transaction commits, which is what feeds the replicator.
type Store struct {
	pool    *pgxpool.Pool
	queue   messagequeue.Queue
	watched map[string]bool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, watched: make(map[string]bool)}
}

// WatchCollections attaches a change feed: every committed write to one of
// the named collections publishes a ChangeEvent on the queue.
func (s *Store) WatchCollections(queue messagequeue.Queue, collections ...string) {
	s.queue = queue
	for _, c := range collections {
		s.watched[c] = true
	}
}

func (s *Store) Get(ctx context.Context, ref domdocstore.Ref) (*domdocstore.Document, error) {
	var fieldsJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT fields FROM documents WHERE collection = $1 AND doc_id = $2`,
		ref.Collection, ref.ID,
	).Scan(&fieldsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get %s: %w", ref.Path(), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", ref.Path(), err)
	}

	doc := &domdocstore.Document{Ref: ref}
	if err := json.Unmarshal(fieldsJSON, &doc.Fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref.Path(), err)
	}
	return doc, nil
}

func (s *Store) Set(ctx context.Context, ref domdocstore.Ref, fields map[string]any) error {
	events, err := s.applyInTx(ctx, []writeOp{{op: domdocstore.OpSet, ref: ref, fields: fields}})
	if err != nil {
		return fmt.Errorf("set %s: %w", ref.Path(), err)
	}
	s.publish(ctx, events)
	return nil
}

func (s *Store) Delete(ctx context.Context, ref domdocstore.Ref) error {
	events, err := s.applyInTx(ctx, []writeOp{{op: domdocstore.OpDelete, ref: ref}})
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref.Path(), err)
	}
	s.publish(ctx, events)
	return nil
}

func (s *Store) CollectionGet(ctx context.Context, collection string) ([]domdocstore.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc_id, fields FROM documents WHERE collection = $1 ORDER BY doc_id ASC`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []domdocstore.Document
	for rows.Next() {
		var id string
		var fieldsJSON []byte
		if err := rows.Scan(&id, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc := domdocstore.Document{Ref: domdocstore.Ref{Collection: collection, ID: id}}
		if err := json.Unmarshal(fieldsJSON, &doc.Fields); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// NewBatch returns an empty atomic batch over this store.
func (s *Store) NewBatch() portdocstore.Batch {
	return &batch{store: s}
}

// writeOp is one pending write inside a transaction.
type writeOp struct {
	op     domdocstore.Op
	ref    domdocstore.Ref
	fields map[string]any
}

// applyInTx applies all ops in one transaction, snapshotting the before
// state of watched documents. The returned events are only valid once the
// transaction committed, which is the case when err is nil.
func (s *Store) applyInTx(ctx context.Context, ops []writeOp) ([]domdocstore.ChangeEvent, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var events []domdocstore.ChangeEvent
	for _, op := range ops {
		var before map[string]any
		if s.watched[op.ref.Collection] {
			before, err = readBefore(ctx, tx, op.ref)
			if err != nil {
				return nil, err
			}
		}

		switch op.op {
		case domdocstore.OpSet:
			fieldsJSON, err := json.Marshal(op.fields)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", op.ref.Path(), err)
			}
			_, err = tx.Exec(ctx,
				`INSERT INTO documents (collection, doc_id, fields)
				 VALUES ($1, $2, $3)
				 ON CONFLICT (collection, doc_id)
				 DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()`,
				op.ref.Collection, op.ref.ID, fieldsJSON)
			if err != nil {
				return nil, fmt.Errorf("upsert %s: %w", op.ref.Path(), err)
			}
		case domdocstore.OpDelete:
			_, err = tx.Exec(ctx,
				`DELETE FROM documents WHERE collection = $1 AND doc_id = $2`,
				op.ref.Collection, op.ref.ID)
			if err != nil {
				return nil, fmt.Errorf("delete %s: %w", op.ref.Path(), err)
			}
		default:
			return nil, fmt.Errorf("unknown op %q for %s", op.op, op.ref.Path())
		}

		if s.watched[op.ref.Collection] {
			events = append(events, domdocstore.ChangeEvent{
				ID:     uuid.NewString(),
				Ref:    op.ref,
				Before: before,
				After:  op.fields, // nil for deletes
			})
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return events, nil
}

func readBefore(ctx context.Context, tx pgx.Tx, ref domdocstore.Ref) (map[string]any, error) {
	var fieldsJSON []byte
	err := tx.QueryRow(ctx,
		`SELECT fields FROM documents WHERE collection = $1 AND doc_id = $2 FOR UPDATE`,
		ref.Collection, ref.ID,
	).Scan(&fieldsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read before %s: %w", ref.Path(), err)
	}
	var before map[string]any
	if err := json.Unmarshal(fieldsJSON, &before); err != nil {
		return nil, fmt.Errorf("decode before %s: %w", ref.Path(), err)
	}
	return before, nil
}

// publish sends change events for committed writes. A publish failure is
// logged, not returned: the write already committed and must not be rolled
// back on account of the feed.
func (s *Store) publish(ctx context.Context, events []domdocstore.ChangeEvent) {
	if s.queue == nil {
		return
	}
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			slog.Error("encode change event", "ref", event.Ref.Path(), "error", err)
			continue
		}
		subject := messagequeue.ChangeSubject(event.Ref.Collection, event.Ref.ID)
		if err := s.queue.Publish(ctx, subject, data); err != nil {
			slog.Error("publish change event", "subject", subject, "error", err)
		}
	}
}

// batch is an atomic group of queued writes applied in one transaction.
type batch struct {
	store *Store
	ops   []writeOp
}

func (b *batch) Set(ref domdocstore.Ref, fields map[string]any) {
	b.ops = append(b.ops, writeOp{op: domdocstore.OpSet, ref: ref, fields: fields})
}

func (b *batch) Delete(ref domdocstore.Ref) {
	b.ops = append(b.ops, writeOp{op: domdocstore.OpDelete, ref: ref})
}

func (b *batch) Len() int { return len(b.ops) }

func (b *batch) Commit(ctx context.Context) error {
	if len(b.ops) > portdocstore.HardWriteLimit {
		return fmt.Errorf("batch of %d exceeds the %d write limit", len(b.ops), portdocstore.HardWriteLimit)
	}
	events, err := b.store.applyInTx(ctx, b.ops)
	if err != nil {
		return err
	}
	b.store.publish(ctx, events)
	return nil
}
