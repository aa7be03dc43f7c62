package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/oncosaferx/authcore/internal/shared"
)

// Registry resolves role definitions. Built-in roles live in an immutable
// table constructed once at startup; tenant-scoped custom roles are looked
// up through a separate RoleStore and never mixed into the built-in table.
type Registry struct {
	builtin map[string]Role
	perms   map[string]Permission
	store   RoleStore
}

// NewRegistry constructs a Registry with the built-in role table loaded.
// The store holds tenant-scoped custom roles and may be nil when custom
// roles are disabled.
func NewRegistry(store RoleStore) (*Registry, error) {
	r := &Registry{
		builtin: make(map[string]Role),
		perms:   make(map[string]Permission, len(permissionCatalog)),
		store:   store,
	}
	for _, p := range permissionCatalog {
		r.perms[p.Key] = p
	}
	for _, role := range builtinRoles() {
		if err := r.RegisterRole(role); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RegisterRole adds a role to the built-in table. Used during startup;
// redefining an existing name fails with ErrDuplicateRole.
func (r *Registry) RegisterRole(role Role) error {
	name := strings.TrimSpace(role.Name)
	if name == "" {
		return fmt.Errorf("registry: role name required")
	}
	if _, ok := r.builtin[name]; ok {
		return fmt.Errorf("registry: %q: %w", name, shared.ErrDuplicateRole)
	}
	for _, perm := range role.Permissions {
		if _, ok := r.perms[perm]; !ok {
			return fmt.Errorf("registry: role %q grants unknown permission %q", name, perm)
		}
	}
	role.Name = name
	r.builtin[name] = role
	return nil
}

// GetRole fetches a role by name, preferring the built-in table and falling
// back to the tenant's custom role store.
func (r *Registry) GetRole(ctx context.Context, tenantID, name string) (Role, error) {
	if role, ok := r.builtin[name]; ok {
		return role, nil
	}
	if r.store != nil && tenantID != "" {
		role, err := r.store.Get(ctx, tenantID, name)
		if err == nil {
			return role, nil
		}
		if err != shared.ErrRoleNotFound {
			return Role{}, err
		}
	}
	return Role{}, fmt.Errorf("registry: %q: %w", name, shared.ErrRoleNotFound)
}

// HasBuiltin reports whether name is a built-in role.
func (r *Registry) HasBuiltin(name string) bool {
	_, ok := r.builtin[name]
	return ok
}

// CreateCustomRole persists a tenant-scoped role after validating that every
// permission exists and every inherited role resolves without a cycle.
func (r *Registry) CreateCustomRole(ctx context.Context, role Role) (Role, error) {
	if r.store == nil {
		return Role{}, fmt.Errorf("registry: custom role store not configured")
	}
	if role.TenantID == "" {
		return Role{}, fmt.Errorf("registry: custom role requires tenant id")
	}
	if r.HasBuiltin(role.Name) {
		return Role{}, fmt.Errorf("registry: %q: %w", role.Name, shared.ErrDuplicateRole)
	}
	for _, perm := range role.Permissions {
		if _, ok := r.perms[perm]; !ok {
			return Role{}, fmt.Errorf("registry: custom role %q grants unknown permission %q", role.Name, perm)
		}
	}
	if err := r.checkAcyclic(ctx, role); err != nil {
		return Role{}, err
	}
	if err := r.store.Create(ctx, role); err != nil {
		return Role{}, err
	}
	return role, nil
}

// DeleteCustomRole removes a tenant-scoped role from the store. Built-in
// roles cannot be deleted.
func (r *Registry) DeleteCustomRole(ctx context.Context, tenantID, name string) error {
	if r.store == nil {
		return fmt.Errorf("registry: custom role store not configured")
	}
	if r.HasBuiltin(name) {
		return fmt.Errorf("registry: %q is a built-in role", name)
	}
	return r.store.Delete(ctx, tenantID, name)
}

// checkAcyclic walks the inheritance edges of a candidate role and verifies
// that every ancestor exists and that the candidate never appears on its own
// ancestor chain.
func (r *Registry) checkAcyclic(ctx context.Context, candidate Role) error {
	seen := map[string]bool{candidate.Name: true}
	stack := append([]string(nil), candidate.Inherits...)
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if name == candidate.Name {
			return fmt.Errorf("registry: role %q inherits itself", candidate.Name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		parent, err := r.GetRole(ctx, candidate.TenantID, name)
		if err != nil {
			return fmt.Errorf("registry: role %q inherits unknown role %q: %w", candidate.Name, name, shared.ErrRoleNotFound)
		}
		stack = append(stack, parent.Inherits...)
	}
	return nil
}

// ListPermissionsByCategory returns the sorted permission keys in a category.
func (r *Registry) ListPermissionsByCategory(category string) []string {
	var keys []string
	for _, p := range r.perms {
		if p.Category == category {
			keys = append(keys, p.Key)
		}
	}
	sort.Strings(keys)
	return keys
}

// ListPermissions returns the full catalog sorted by key.
func (r *Registry) ListPermissions() []Permission {
	out := make([]Permission, 0, len(r.perms))
	for _, p := range r.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// KnownPermission reports whether key exists in the catalog.
func (r *Registry) KnownPermission(key string) bool {
	_, ok := r.perms[key]
	return ok
}
