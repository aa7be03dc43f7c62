package authz

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/oncosaferx/authcore/internal/registry"
	"github.com/oncosaferx/authcore/internal/shared"
)

// BindingSource supplies the currently valid role names assigned to a
// (user, tenant) pair. Expired assignments are excluded by the source.
type BindingSource interface {
	ActiveRoleNames(ctx context.Context, userID, tenantID string) ([]string, error)
}

// PermissionSet is the effective permission set for a principal.
type PermissionSet map[string]struct{}

// Has reports whether the set contains the permission.
func (ps PermissionSet) Has(perm string) bool {
	_, ok := ps[perm]
	return ok
}

// Slice returns the sorted permission keys.
func (ps PermissionSet) Slice() []string {
	out := make([]string, 0, len(ps))
	for p := range ps {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ResolverConfig tunes cache behaviour.
type ResolverConfig struct {
	// CacheTTL bounds how long a computed set may be served without
	// recomputation.
	CacheTTL time.Duration
	// InvalidateMargin re-invalidates once more after this delay to close
	// the window where a concurrent reader repopulates a stale entry
	// between the assignment write and the first invalidation. Zero
	// disables the second pass.
	InvalidateMargin time.Duration
}

// Resolver computes, caches and invalidates effective permission sets.
// Resolution is idempotent and side-effect-free, so concurrent misses need
// no locking; singleflight merely collapses duplicate recomputes.
type Resolver struct {
	registry *registry.Registry
	bindings BindingSource
	cache    Cache
	cfg      ResolverConfig
	group    singleflight.Group
	logger   *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(reg *registry.Registry, bindings BindingSource, cache Cache, cfg ResolverConfig, logger *slog.Logger) *Resolver {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{registry: reg, bindings: bindings, cache: cache, cfg: cfg, logger: logger}
}

// Resolve returns the transitive union of direct and inherited permissions
// over the principal's currently valid assignments.
func (r *Resolver) Resolve(ctx context.Context, userID, tenantID string) (PermissionSet, error) {
	if r.cache != nil {
		perms, ok, err := r.cache.Get(ctx, userID, tenantID)
		if err != nil {
			r.logger.Warn("permission cache read failed", slog.Any("error", err))
		} else if ok {
			return fromSlice(perms), nil
		}
	}

	key := tenantID + "/" + userID
	v, err, _ := r.group.Do(key, func() (any, error) {
		set, err := r.compute(ctx, userID, tenantID)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			// The write uses a detached context so a caller abandoning the
			// request never leaves the cache half-written.
			if err := r.cache.Put(context.WithoutCancel(ctx), userID, tenantID, set.Slice(), r.cfg.CacheTTL); err != nil {
				r.logger.Warn("permission cache write failed", slog.Any("error", err))
			}
		}
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(PermissionSet), nil
}

// HasPermission reports whether the principal holds the permission. A cache
// miss triggers a synchronous resolve and never surfaces as an error.
func (r *Resolver) HasPermission(ctx context.Context, userID, tenantID, perm string) (bool, error) {
	set, err := r.Resolve(ctx, userID, tenantID)
	if err != nil {
		return false, err
	}
	return set.Has(perm), nil
}

// Roles returns the resolved role definitions directly assigned to the
// principal. Uncached; assignment reads are cheap relative to the full
// permission expansion.
func (r *Resolver) Roles(ctx context.Context, userID, tenantID string) ([]registry.Role, error) {
	names, err := r.bindings.ActiveRoleNames(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	roles := make([]registry.Role, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		role, err := r.registry.GetRole(ctx, tenantID, name)
		if err != nil {
			if errors.Is(err, shared.ErrRoleNotFound) {
				r.logger.Warn("assignment references unknown role",
					slog.String("role", name), slog.String("tenant", tenantID))
				continue
			}
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// MaxLevel returns the highest privilege level among the principal's
// assigned roles, or zero when none are assigned.
func (r *Resolver) MaxLevel(ctx context.Context, userID, tenantID string) (int, error) {
	roles, err := r.Roles(ctx, userID, tenantID)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, role := range roles {
		if role.Level > max {
			max = role.Level
		}
	}
	return max, nil
}

// Invalidate drops the cached set for the key. Called by the assignment
// manager after its write is durable; the optional delayed second pass
// closes the stale-repopulation race described in the concurrency model.
func (r *Resolver) Invalidate(ctx context.Context, userID, tenantID string) error {
	if r.cache == nil {
		return nil
	}
	detached := context.WithoutCancel(ctx)
	err := r.cache.Invalidate(detached, userID, tenantID)
	if r.cfg.InvalidateMargin > 0 {
		go func() {
			time.Sleep(r.cfg.InvalidateMargin)
			if err := r.cache.Invalidate(detached, userID, tenantID); err != nil {
				r.logger.Warn("delayed cache invalidation failed", slog.Any("error", err))
			}
		}()
	}
	return err
}

// compute walks the assigned roles and their inheritance closure.
func (r *Resolver) compute(ctx context.Context, userID, tenantID string) (PermissionSet, error) {
	roles, err := r.Roles(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	set := make(PermissionSet)
	memo := make(map[string]PermissionSet)
	for _, role := range roles {
		expanded, err := r.expand(ctx, tenantID, role, memo, map[string]bool{})
		if err != nil {
			return nil, err
		}
		for p := range expanded {
			set[p] = struct{}{}
		}
	}
	return set, nil
}

// expand performs a depth-first union over inheritance edges, memoized per
// role name within a single resolve so diamond inheritance is visited once.
func (r *Resolver) expand(ctx context.Context, tenantID string, role registry.Role, memo map[string]PermissionSet, path map[string]bool) (PermissionSet, error) {
	if cached, ok := memo[role.Name]; ok {
		return cached, nil
	}
	if path[role.Name] {
		// Acyclicity is enforced at role creation; a cycle here means
		// corrupted registry data. Stop rather than recurse forever.
		return PermissionSet{}, nil
	}
	path[role.Name] = true
	defer delete(path, role.Name)

	set := make(PermissionSet, len(role.Permissions))
	for _, p := range role.Permissions {
		set[p] = struct{}{}
	}
	for _, parentName := range role.Inherits {
		parent, err := r.registry.GetRole(ctx, tenantID, parentName)
		if err != nil {
			if errors.Is(err, shared.ErrRoleNotFound) {
				r.logger.Warn("role inherits unknown role",
					slog.String("role", role.Name), slog.String("parent", parentName))
				continue
			}
			return nil, err
		}
		expanded, err := r.expand(ctx, tenantID, parent, memo, path)
		if err != nil {
			return nil, err
		}
		for p := range expanded {
			set[p] = struct{}{}
		}
	}
	memo[role.Name] = set
	return set, nil
}

func fromSlice(perms []string) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}
