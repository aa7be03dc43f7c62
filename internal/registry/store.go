package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oncosaferx/authcore/internal/shared"
)

// RoleStore persists tenant-scoped custom roles.
type RoleStore interface {
	Create(ctx context.Context, role Role) error
	Get(ctx context.Context, tenantID, name string) (Role, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Role, error)
	Delete(ctx context.Context, tenantID, name string) error
}

// PGRoleStore implements RoleStore using PostgreSQL.
type PGRoleStore struct {
	pool *pgxpool.Pool
}

// NewPGRoleStore constructs a PostgreSQL-backed role store.
func NewPGRoleStore(pool *pgxpool.Pool) *PGRoleStore {
	return &PGRoleStore{pool: pool}
}

// Create inserts a custom role. A name collision within the tenant maps to
// ErrDuplicateRole.
func (s *PGRoleStore) Create(ctx context.Context, role Role) error {
	now := role.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO custom_roles (tenant_id, name, level, inherits, permissions, description, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		role.TenantID, role.Name, role.Level, role.Inherits, role.Permissions, role.Description, role.CreatedBy, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicateRole
		}
		return err
	}
	return nil
}

// Get fetches a custom role by tenant and name.
func (s *PGRoleStore) Get(ctx context.Context, tenantID, name string) (Role, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT tenant_id, name, level, inherits, permissions, description, created_by, created_at
		 FROM custom_roles WHERE tenant_id = $1 AND name = $2`,
		tenantID, name)
	var role Role
	err := row.Scan(&role.TenantID, &role.Name, &role.Level, &role.Inherits, &role.Permissions,
		&role.Description, &role.CreatedBy, &role.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrRoleNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// ListByTenant returns all custom roles for a tenant ordered by name.
func (s *PGRoleStore) ListByTenant(ctx context.Context, tenantID string) ([]Role, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT tenant_id, name, level, inherits, permissions, description, created_by, created_at
		 FROM custom_roles WHERE tenant_id = $1 ORDER BY name`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.TenantID, &role.Name, &role.Level, &role.Inherits, &role.Permissions,
			&role.Description, &role.CreatedBy, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Delete removes a custom role. Deleting an absent role is a no-op.
func (s *PGRoleStore) Delete(ctx context.Context, tenantID, name string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM custom_roles WHERE tenant_id = $1 AND name = $2`,
		tenantID, name)
	return err
}

var _ RoleStore = (*PGRoleStore)(nil)

// MemoryRoleStore is an in-memory RoleStore used in tests and single-node
// deployments without PostgreSQL.
type MemoryRoleStore struct {
	mu    sync.RWMutex
	roles map[string]Role
}

// NewMemoryRoleStore constructs an empty in-memory store.
func NewMemoryRoleStore() *MemoryRoleStore {
	return &MemoryRoleStore{roles: make(map[string]Role)}
}

func storeKey(tenantID, name string) string {
	return tenantID + "/" + name
}

// Create inserts a custom role.
func (s *MemoryRoleStore) Create(ctx context.Context, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storeKey(role.TenantID, role.Name)
	if _, ok := s.roles[key]; ok {
		return shared.ErrDuplicateRole
	}
	if role.CreatedAt.IsZero() {
		role.CreatedAt = time.Now().UTC()
	}
	s.roles[key] = role
	return nil
}

// Get fetches a custom role by tenant and name.
func (s *MemoryRoleStore) Get(ctx context.Context, tenantID, name string) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[storeKey(tenantID, name)]
	if !ok {
		return Role{}, shared.ErrRoleNotFound
	}
	return role, nil
}

// ListByTenant returns all custom roles for a tenant.
func (s *MemoryRoleStore) ListByTenant(ctx context.Context, tenantID string) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var roles []Role
	for _, role := range s.roles {
		if role.TenantID == tenantID {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

// Delete removes a custom role. Deleting an absent role is a no-op.
func (s *MemoryRoleStore) Delete(ctx context.Context, tenantID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, storeKey(tenantID, name))
	return nil
}

var _ RoleStore = (*MemoryRoleStore)(nil)
