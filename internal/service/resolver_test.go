package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rosterhub/rosterhub/internal/domain"
	domdocstore "github.com/rosterhub/rosterhub/internal/domain/docstore"
	"github.com/rosterhub/rosterhub/internal/domain/identity"
)

func TestResolveTenant(t *testing.T) {
	store := newMockStore()
	seedTenantUser(store, "lwhs", "alice", identity.TierAdmin)
	resolver := NewTenantResolver(store)

	tenantID, err := resolver.ResolveTenant(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ResolveTenant: %v", err)
	}
	if tenantID != "lwhs" {
		t.Errorf("tenant = %q, want %q", tenantID, "lwhs")
	}
}

func TestResolveTenantNoMembership(t *testing.T) {
	resolver := NewTenantResolver(newMockStore())

	_, err := resolver.ResolveTenant(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestResolveTenantEmptyField(t *testing.T) {
	store := newMockStore()
	store.put(domdocstore.MembershipRef("bob"), map[string]any{"tenant": ""})
	resolver := NewTenantResolver(store)

	_, err := resolver.ResolveTenant(context.Background(), "bob")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestResolvePrivilege(t *testing.T) {
	store := newMockStore()
	seedTenantUser(store, "lwhs", "alice", identity.TierOwner)
	seedTenantUser(store, "lwhs", "bob", identity.TierMember)
	store.put(domdocstore.UserRecordRef("lwhs", "carol"), map[string]any{"accountType": "SUPERUSER"})
	resolver := NewTenantResolver(store)

	tests := []struct {
		id   string
		want identity.PrivilegeTier
	}{
		{"alice", identity.TierOwner},
		{"bob", identity.TierMember},
		{"carol", identity.TierNone}, // unrecognized tier value
		{"ghost", identity.TierNone}, // no record at all
	}
	for _, tt := range tests {
		tier, err := resolver.ResolvePrivilege(context.Background(), "lwhs", tt.id)
		if err != nil {
			t.Fatalf("ResolvePrivilege(%s): %v", tt.id, err)
		}
		if tier != tt.want {
			t.Errorf("ResolvePrivilege(%s) = %s, want %s", tt.id, tier, tt.want)
		}
	}
}

func TestMembershipDirectory(t *testing.T) {
	store := newMockStore()
	seedTenantUser(store, "lwhs", "alice", identity.TierAdmin)
	seedTenantUser(store, "acme", "dave", identity.TierMember)
	resolver := NewTenantResolver(store)

	dir, err := resolver.MembershipDirectory(context.Background())
	if err != nil {
		t.Fatalf("MembershipDirectory: %v", err)
	}
	if len(dir) != 2 {
		t.Fatalf("directory size = %d, want 2", len(dir))
	}
	if dir["alice"] != "lwhs" || dir["dave"] != "acme" {
		t.Errorf("directory = %v", dir)
	}
}
