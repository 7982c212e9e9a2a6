package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rosterhub/rosterhub/internal/domain"
	domdocstore "github.com/rosterhub/rosterhub/internal/domain/docstore"
	"github.com/rosterhub/rosterhub/internal/domain/identity"
	portdocstore "github.com/rosterhub/rosterhub/internal/port/docstore"
	"github.com/rosterhub/rosterhub/internal/port/messagequeue"
)

// mockStore is an in-memory docstore.Store. Batches commit atomically and
// the store records every committed group size, so tests can assert the
// bounded grouping behavior. Setting failCommitAt to N makes the Nth
// batch commit (1-based) fail without applying.
type mockStore struct {
	mu           sync.Mutex
	docs         map[string]map[string]any
	groupSizes   []int
	failCommitAt int
	commits      int
}

func newMockStore() *mockStore {
	return &mockStore{docs: make(map[string]map[string]any)}
}

func (s *mockStore) put(ref domdocstore.Ref, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[ref.Path()] = fields
}

func (s *mockStore) has(ref domdocstore.Ref) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[ref.Path()]
	return ok
}

func (s *mockStore) Get(_ context.Context, ref domdocstore.Ref) (*domdocstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.docs[ref.Path()]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", ref.Path(), domain.ErrNotFound)
	}
	return &domdocstore.Document{Ref: ref, Fields: fields}, nil
}

func (s *mockStore) Set(_ context.Context, ref domdocstore.Ref, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[ref.Path()] = fields
	return nil
}

func (s *mockStore) Delete(_ context.Context, ref domdocstore.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, ref.Path())
	return nil
}

func (s *mockStore) CollectionGet(_ context.Context, collection string) ([]domdocstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var docs []domdocstore.Document
	prefix := collection + "/"
	for path, fields := range s.docs {
		id, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(id, "/") {
			continue
		}
		docs = append(docs, domdocstore.Document{
			Ref:    domdocstore.Ref{Collection: collection, ID: id},
			Fields: fields,
		})
	}
	return docs, nil
}

func (s *mockStore) NewBatch() portdocstore.Batch {
	return &mockBatch{store: s}
}

type batchOp struct {
	op     domdocstore.Op
	ref    domdocstore.Ref
	fields map[string]any
}

type mockBatch struct {
	store *mockStore
	ops   []batchOp
}

func (b *mockBatch) Set(ref domdocstore.Ref, fields map[string]any) {
	b.ops = append(b.ops, batchOp{op: domdocstore.OpSet, ref: ref, fields: fields})
}

func (b *mockBatch) Delete(ref domdocstore.Ref) {
	b.ops = append(b.ops, batchOp{op: domdocstore.OpDelete, ref: ref})
}

func (b *mockBatch) Len() int { return len(b.ops) }

func (b *mockBatch) Commit(context.Context) error {
	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
	if s.failCommitAt > 0 && s.commits == s.failCommitAt {
		return fmt.Errorf("commit %d: simulated store failure", s.commits)
	}
	for _, op := range b.ops {
		switch op.op {
		case domdocstore.OpSet:
			s.docs[op.ref.Path()] = op.fields
		case domdocstore.OpDelete:
			delete(s.docs, op.ref.Path())
		}
	}
	s.groupSizes = append(s.groupSizes, len(b.ops))
	return nil
}

// mockProvider is an in-memory idp.Provider. Per-id failures for bulk and
// update calls are injected through failDelete and failUpdate.
type mockProvider struct {
	mu         sync.Mutex
	identities map[string]identity.Identity
	failDelete map[string]bool
	failUpdate map[string]bool
	updates    map[string]identity.UpdateRequest
	nextID     int
}

func newMockProvider(idents ...identity.Identity) *mockProvider {
	p := &mockProvider{
		identities: make(map[string]identity.Identity),
		failDelete: make(map[string]bool),
		failUpdate: make(map[string]bool),
		updates:    make(map[string]identity.UpdateRequest),
	}
	for _, id := range idents {
		p.identities[id.ID] = id
	}
	return p
}

func (p *mockProvider) GetByEmail(_ context.Context, email string) (*identity.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ident := range p.identities {
		if ident.Email == email {
			return &ident, nil
		}
	}
	return nil, fmt.Errorf("email %s: %w", email, domain.ErrNotFound)
}

func (p *mockProvider) List(_ context.Context, limit int) ([]identity.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]identity.Identity, 0, len(p.identities))
	for _, ident := range p.identities {
		if len(out) == limit {
			break
		}
		out = append(out, ident)
	}
	return out, nil
}

func (p *mockProvider) Create(_ context.Context, id, email, _ string) (*identity.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id == "" {
		p.nextID++
		id = fmt.Sprintf("generated-%d", p.nextID)
	}
	ident := identity.Identity{ID: id, Email: email}
	p.identities[id] = ident
	return &ident, nil
}

func (p *mockProvider) Update(_ context.Context, id string, req identity.UpdateRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failUpdate[id] {
		return fmt.Errorf("update %s: %w", id, domain.ErrUpstream)
	}
	if _, ok := p.identities[id]; !ok {
		return fmt.Errorf("identity %s: %w", id, domain.ErrNotFound)
	}
	p.updates[id] = req
	ident := p.identities[id]
	if req.Email != "" {
		ident.Email = req.Email
	}
	p.identities[id] = ident
	return nil
}

func (p *mockProvider) Delete(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failDelete[id] {
		return fmt.Errorf("delete %s: %w", id, domain.ErrUpstream)
	}
	delete(p.identities, id)
	return nil
}

func (p *mockProvider) BulkDelete(_ context.Context, ids []string) (*identity.BulkResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := &identity.BulkResult{}
	for i, id := range ids {
		if p.failDelete[id] {
			result.FailureCount++
			result.Errors = append(result.Errors, identity.BulkError{Index: i, Err: "simulated provider failure"})
			continue
		}
		delete(p.identities, id)
		result.SuccessCount++
	}
	return result, nil
}

// mockQueue captures published messages and lets tests drive subscribed
// handlers directly through deliver.
type mockQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
	handlers  []messagequeue.Handler
}

func newMockQueue() *mockQueue {
	return &mockQueue{published: make(map[string][][]byte)}
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published[subject] = append(q.published[subject], data)
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, _ string, handler messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
	return func() {}, nil
}

func (q *mockQueue) deliver(ctx context.Context, subject string, data []byte) error {
	q.mu.Lock()
	handlers := append([]messagequeue.Handler(nil), q.handlers...)
	q.mu.Unlock()
	for _, h := range handlers {
		if err := h(ctx, subject, data); err != nil {
			return err
		}
	}
	return nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

// seedTenantUser writes the membership and user record documents that make
// identityID a user of tenantID at the given tier.
func seedTenantUser(s *mockStore, tenantID, identityID string, tier identity.PrivilegeTier) {
	s.put(domdocstore.MembershipRef(identityID), map[string]any{"tenant": tenantID})
	s.put(domdocstore.UserRecordRef(tenantID, identityID), map[string]any{"accountType": string(tier)})
}

func seedDefaultCredential(s *mockStore, tenantID, password string) {
	s.put(domdocstore.DefaultCredentialRef(tenantID), map[string]any{"password": password})
}

var testCacheTTL = 5 * time.Minute
