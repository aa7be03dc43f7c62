package authz_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/oncosaferx/authcore/internal/authz"
	"github.com/oncosaferx/authcore/internal/registry"
	"github.com/oncosaferx/authcore/internal/shared"
	_ "github.com/oncosaferx/authcore/testing"
)

type stubBindings struct {
	roles map[string][]string
}

func (s *stubBindings) ActiveRoleNames(ctx context.Context, userID, tenantID string) ([]string, error) {
	return s.roles[tenantID+"/"+userID], nil
}

func newResolver(t *testing.T, bindings authz.BindingSource, cache authz.Cache) (*authz.Resolver, *registry.Registry) {
	t.Helper()
	reg, err := registry.NewRegistry(registry.NewMemoryRoleStore())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return authz.NewResolver(reg, bindings, cache, authz.ResolverConfig{CacheTTL: time.Minute}, nil), reg
}

func TestResolveTransitiveClosure(t *testing.T) {
	bindings := &stubBindings{roles: map[string][]string{
		"tenant-a/dr-lee": {"RESIDENT_PHYSICIAN"},
	}}
	resolver, _ := newResolver(t, bindings, nil)
	ctx := context.Background()

	set, err := resolver.Resolve(ctx, "dr-lee", "tenant-a")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Direct grant plus the CLINICAL_USER and READONLY_USER chains.
	for _, perm := range []string{
		shared.PermClinicalOrderEntry,
		shared.PermClinicalDecisionSupport,
		shared.PermPatientMedHistory,
		shared.PermPatientView,
	} {
		if !set.Has(perm) {
			t.Fatalf("expected %s in effective set %v", perm, set.Slice())
		}
	}
	if set.Has(shared.PermAdminUserManagement) {
		t.Fatalf("resident must not hold admin permissions")
	}
	if set.Has(shared.PermClinicalProtocolOverride) {
		t.Fatalf("resident must not hold attending-only permissions")
	}
}

func TestHasPermission(t *testing.T) {
	bindings := &stubBindings{roles: map[string][]string{
		"tenant-a/dr-lee": {"RESIDENT_PHYSICIAN"},
	}}
	resolver, _ := newResolver(t, bindings, nil)
	ctx := context.Background()

	ok, err := resolver.HasPermission(ctx, "dr-lee", "tenant-a", shared.PermClinicalDecisionSupport)
	if err != nil {
		t.Fatalf("has permission: %v", err)
	}
	if !ok {
		t.Fatalf("expected clinical decision support to be granted")
	}

	ok, err = resolver.HasPermission(ctx, "dr-lee", "tenant-a", shared.PermAdminUserManagement)
	if err != nil {
		t.Fatalf("has permission: %v", err)
	}
	if ok {
		t.Fatalf("expected admin user management to be denied")
	}
}

func TestResolveDiamondInheritance(t *testing.T) {
	bindings := &stubBindings{roles: map[string][]string{
		"tenant-a/charge": {"CHARGE_PROVIDER"},
	}}
	resolver, reg := newResolver(t, bindings, nil)
	ctx := context.Background()

	// NURSE and RESIDENT_PHYSICIAN both inherit CLINICAL_USER.
	if _, err := reg.CreateCustomRole(ctx, registry.Role{
		Name:     "CHARGE_PROVIDER",
		Level:    72,
		TenantID: "tenant-a",
		Inherits: []string{"NURSE", "RESIDENT_PHYSICIAN"},
	}); err != nil {
		t.Fatalf("create custom role: %v", err)
	}

	set, err := resolver.Resolve(ctx, "charge", "tenant-a")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, perm := range []string{shared.PermPatientEdit, shared.PermClinicalOrderEntry, shared.PermPatientView} {
		if !set.Has(perm) {
			t.Fatalf("expected %s via diamond inheritance, got %v", perm, set.Slice())
		}
	}

	// Slice is a set: the shared branch contributes each permission once.
	seen := map[string]bool{}
	for _, p := range set.Slice() {
		if seen[p] {
			t.Fatalf("duplicate permission %s", p)
		}
		seen[p] = true
	}
}

func TestResolveSkipsUnknownAssignedRole(t *testing.T) {
	bindings := &stubBindings{roles: map[string][]string{
		"tenant-a/ghost": {"DELETED_ROLE", "READONLY_USER"},
	}}
	resolver, _ := newResolver(t, bindings, nil)

	set, err := resolver.Resolve(context.Background(), "ghost", "tenant-a")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !set.Has(shared.PermPatientView) {
		t.Fatalf("expected surviving role to still resolve")
	}
}

func TestResolveEmptyAssignments(t *testing.T) {
	resolver, _ := newResolver(t, &stubBindings{roles: map[string][]string{}}, nil)

	set, err := resolver.Resolve(context.Background(), "nobody", "tenant-a")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(set) != 0 {
		t.Fatalf("expected empty set, got %v", set.Slice())
	}
}

func TestMaxLevel(t *testing.T) {
	bindings := &stubBindings{roles: map[string][]string{
		"tenant-a/dr-kim": {"NURSE", "ATTENDING_PHYSICIAN"},
	}}
	resolver, _ := newResolver(t, bindings, nil)

	level, err := resolver.MaxLevel(context.Background(), "dr-kim", "tenant-a")
	if err != nil {
		t.Fatalf("max level: %v", err)
	}
	if level != 80 {
		t.Fatalf("expected level 80, got %d", level)
	}

	level, err = resolver.MaxLevel(context.Background(), "nobody", "tenant-a")
	if err != nil {
		t.Fatalf("max level: %v", err)
	}
	if level != 0 {
		t.Fatalf("expected level 0 for no assignments, got %d", level)
	}
}

func TestInvalidateDropsCachedSet(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := authz.NewRedisCache(client)

	bindings := &stubBindings{roles: map[string][]string{
		"tenant-a/dr-lee": {"READONLY_USER"},
	}}
	resolver, _ := newResolver(t, bindings, cache)
	ctx := context.Background()

	set, err := resolver.Resolve(ctx, "dr-lee", "tenant-a")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if set.Has(shared.PermClinicalOrderEntry) {
		t.Fatalf("unexpected permission before assignment change")
	}

	// The assignment changes underneath; the cached view still answers until
	// it is invalidated.
	bindings.roles["tenant-a/dr-lee"] = []string{"RESIDENT_PHYSICIAN"}

	set, err = resolver.Resolve(ctx, "dr-lee", "tenant-a")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if set.Has(shared.PermClinicalOrderEntry) {
		t.Fatalf("expected stale cached view before invalidation")
	}

	if err := resolver.Invalidate(ctx, "dr-lee", "tenant-a"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	set, err = resolver.Resolve(ctx, "dr-lee", "tenant-a")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !set.Has(shared.PermClinicalOrderEntry) {
		t.Fatalf("expected fresh view after invalidation, got %v", set.Slice())
	}
}
