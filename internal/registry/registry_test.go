package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/oncosaferx/authcore/internal/registry"
	"github.com/oncosaferx/authcore/internal/shared"
	_ "github.com/oncosaferx/authcore/testing"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.NewRegistry(registry.NewMemoryRoleStore())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return reg
}

func TestBuiltinRoles(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	role, err := reg.GetRole(ctx, "", "RESIDENT_PHYSICIAN")
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	if role.Level != 70 {
		t.Fatalf("expected level 70, got %d", role.Level)
	}
	if len(role.Inherits) != 1 || role.Inherits[0] != "CLINICAL_USER" {
		t.Fatalf("unexpected inheritance: %v", role.Inherits)
	}

	if _, err := reg.GetRole(ctx, "", "NO_SUCH_ROLE"); !errors.Is(err, shared.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestRegisterRoleRejectsDuplicates(t *testing.T) {
	reg := newRegistry(t)

	err := reg.RegisterRole(registry.Role{Name: "NURSE", Level: 60})
	if !errors.Is(err, shared.ErrDuplicateRole) {
		t.Fatalf("expected ErrDuplicateRole, got %v", err)
	}
}

func TestRegisterRoleRejectsUnknownPermission(t *testing.T) {
	reg := newRegistry(t)

	err := reg.RegisterRole(registry.Role{Name: "BOGUS", Level: 5, Permissions: []string{"no.such_permission"}})
	if err == nil {
		t.Fatalf("expected error for unknown permission")
	}
}

func TestCreateCustomRole(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	role, err := reg.CreateCustomRole(ctx, registry.Role{
		Name:        "ONCOLOGY_PHARMACIST",
		Level:       76,
		TenantID:    "tenant-a",
		Inherits:    []string{"PHARMACIST"},
		Permissions: []string{shared.PermClinicalProtocolOverride},
	})
	if err != nil {
		t.Fatalf("create custom role: %v", err)
	}

	got, err := reg.GetRole(ctx, "tenant-a", role.Name)
	if err != nil {
		t.Fatalf("get custom role: %v", err)
	}
	if got.Level != 76 {
		t.Fatalf("expected level 76, got %d", got.Level)
	}

	// The role is tenant-scoped; another tenant cannot see it.
	if _, err := reg.GetRole(ctx, "tenant-b", role.Name); !errors.Is(err, shared.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound for other tenant, got %v", err)
	}
}

func TestCreateCustomRoleValidation(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	if _, err := reg.CreateCustomRole(ctx, registry.Role{
		Name: "X", Level: 10, TenantID: "tenant-a",
		Permissions: []string{"made.up"},
	}); err == nil {
		t.Fatalf("expected unknown permission to be rejected")
	}

	if _, err := reg.CreateCustomRole(ctx, registry.Role{
		Name: "TENANT_ADMIN", Level: 10, TenantID: "tenant-a",
	}); !errors.Is(err, shared.ErrDuplicateRole) {
		t.Fatalf("expected builtin shadowing to be rejected, got %v", err)
	}

	if _, err := reg.CreateCustomRole(ctx, registry.Role{
		Name: "SELF_REF", Level: 10, TenantID: "tenant-a",
		Inherits: []string{"SELF_REF"},
	}); err == nil {
		t.Fatalf("expected self inheritance to be rejected")
	}

	if _, err := reg.CreateCustomRole(ctx, registry.Role{
		Name: "ORPHAN", Level: 10, TenantID: "tenant-a",
		Inherits: []string{"MISSING_PARENT"},
	}); !errors.Is(err, shared.ErrRoleNotFound) {
		t.Fatalf("expected unknown parent to be rejected, got %v", err)
	}
}

func TestPermissionCatalog(t *testing.T) {
	reg := newRegistry(t)

	if !reg.KnownPermission(shared.PermClinicalDecisionSupport) {
		t.Fatalf("expected %s in catalog", shared.PermClinicalDecisionSupport)
	}
	if reg.KnownPermission("not.a_permission") {
		t.Fatalf("unexpected permission in catalog")
	}

	admin := reg.ListPermissionsByCategory(shared.CategoryAdmin)
	if len(admin) != 3 {
		t.Fatalf("expected 3 admin permissions, got %d", len(admin))
	}
	for i := 1; i < len(admin); i++ {
		if admin[i-1] >= admin[i] {
			t.Fatalf("expected sorted keys, got %v", admin)
		}
	}

	all := reg.ListPermissions()
	if len(all) == 0 {
		t.Fatalf("expected non-empty catalog")
	}
}
