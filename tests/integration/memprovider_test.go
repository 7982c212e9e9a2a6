//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rosterhub/rosterhub/internal/domain"
	"github.com/rosterhub/rosterhub/internal/domain/identity"
)

// memProvider is an in-memory identity provider so integration tests
// exercise the real store and services without a live provider API.
type memProvider struct {
	mu         sync.Mutex
	identities map[string]identity.Identity
	nextID     int
}

func newMemProvider() *memProvider {
	return &memProvider{identities: make(map[string]identity.Identity)}
}

// reset replaces all provider state with the given identities.
func (p *memProvider) reset(ids ...identity.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identities = make(map[string]identity.Identity, len(ids))
	for _, id := range ids {
		p.identities[id.ID] = id
	}
}

func (p *memProvider) GetByEmail(_ context.Context, email string) (*identity.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.identities {
		if id.Email == email {
			ident := id
			return &ident, nil
		}
	}
	return nil, fmt.Errorf("email %s: %w", email, domain.ErrNotFound)
}

func (p *memProvider) List(_ context.Context, limit int) ([]identity.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]identity.Identity, 0, len(p.identities))
	for _, id := range p.identities {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (p *memProvider) Create(_ context.Context, id, email, _ string) (*identity.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id == "" {
		p.nextID++
		id = fmt.Sprintf("it-generated-%d", p.nextID)
	}
	ident := identity.Identity{ID: id, Email: email}
	p.identities[id] = ident
	return &ident, nil
}

func (p *memProvider) Update(_ context.Context, id string, req identity.UpdateRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ident, ok := p.identities[id]
	if !ok {
		return fmt.Errorf("identity %s: %w", id, domain.ErrNotFound)
	}
	if req.Email != "" {
		ident.Email = req.Email
	}
	p.identities[id] = ident
	return nil
}

func (p *memProvider) Delete(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.identities[id]; !ok {
		return fmt.Errorf("identity %s: %w", id, domain.ErrNotFound)
	}
	delete(p.identities, id)
	return nil
}

func (p *memProvider) BulkDelete(_ context.Context, ids []string) (*identity.BulkResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := &identity.BulkResult{}
	for i, id := range ids {
		if _, ok := p.identities[id]; !ok {
			result.FailureCount++
			result.Errors = append(result.Errors, identity.BulkError{Index: i, Err: "not found"})
			continue
		}
		delete(p.identities, id)
		result.SuccessCount++
	}
	return result, nil
}
