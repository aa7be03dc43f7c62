package assignment

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for role assignments. The
// assignment manager exclusively owns these records.
type Repository interface {
	Create(ctx context.Context, a Assignment) error
	Delete(ctx context.Context, id string) error
	DeleteByRole(ctx context.Context, userID, tenantID, roleName string) ([]Assignment, error)
	ActiveByUser(ctx context.Context, userID, tenantID string) ([]Assignment, error)
	ActiveRoleNames(ctx context.Context, userID, tenantID string) ([]string, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a PostgreSQL repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create persists a new assignment.
func (r *PGRepository) Create(ctx context.Context, a Assignment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_assignments
		 (id, user_id, tenant_id, role_name, assigned_by, assigned_at, expires_at, reason, department, supervisor)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.UserID, a.TenantID, a.RoleName, a.AssignedBy, a.AssignedAt, a.ExpiresAt,
		a.Reason, a.Department, a.Supervisor)
	return err
}

// Delete removes a single assignment by id.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM role_assignments WHERE id = $1`, id)
	return err
}

// DeleteByRole removes every assignment matching the triple and returns the
// removed records so each revocation can be audited individually.
func (r *PGRepository) DeleteByRole(ctx context.Context, userID, tenantID, roleName string) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`DELETE FROM role_assignments
		 WHERE user_id = $1 AND tenant_id = $2 AND role_name = $3
		 RETURNING id, user_id, tenant_id, role_name, assigned_by, assigned_at, expires_at, reason, department, supervisor`,
		userID, tenantID, roleName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

// ActiveByUser returns the non-expired assignments for a (user, tenant).
func (r *PGRepository) ActiveByUser(ctx context.Context, userID, tenantID string) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, tenant_id, role_name, assigned_by, assigned_at, expires_at, reason, department, supervisor
		 FROM role_assignments
		 WHERE user_id = $1 AND tenant_id = $2 AND (expires_at IS NULL OR expires_at > NOW())`,
		userID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

// ActiveRoleNames returns the distinct role names currently bound to the
// (user, tenant) pair. Feeds the permission resolver.
func (r *PGRepository) ActiveRoleNames(ctx context.Context, userID, tenantID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT role_name FROM role_assignments
		 WHERE user_id = $1 AND tenant_id = $2 AND (expires_at IS NULL OR expires_at > NOW())`,
		userID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanAssignments(rows rowScanner) ([]Assignment, error) {
	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.TenantID, &a.RoleName, &a.AssignedBy,
			&a.AssignedAt, &a.ExpiresAt, &a.Reason, &a.Department, &a.Supervisor); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)

// MemoryRepository is an in-memory Repository used in tests.
type MemoryRepository struct {
	mu          sync.RWMutex
	assignments map[string]Assignment
	now         func() time.Time
}

// NewMemoryRepository constructs an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		assignments: make(map[string]Assignment),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a new assignment.
func (r *MemoryRepository) Create(ctx context.Context, a Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments[a.ID] = a
	return nil
}

// Delete removes a single assignment by id.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.assignments, id)
	return nil
}

// DeleteByRole removes every assignment matching the triple.
func (r *MemoryRepository) DeleteByRole(ctx context.Context, userID, tenantID, roleName string) ([]Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []Assignment
	for id, a := range r.assignments {
		if a.UserID == userID && a.TenantID == tenantID && a.RoleName == roleName {
			removed = append(removed, a)
			delete(r.assignments, id)
		}
	}
	return removed, nil
}

// ActiveByUser returns non-expired assignments for the pair.
func (r *MemoryRepository) ActiveByUser(ctx context.Context, userID, tenantID string) ([]Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.now()
	var out []Assignment
	for _, a := range r.assignments {
		if a.UserID == userID && a.TenantID == tenantID && a.Active(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

// ActiveRoleNames returns distinct active role names for the pair.
func (r *MemoryRepository) ActiveRoleNames(ctx context.Context, userID, tenantID string) ([]string, error) {
	active, err := r.ActiveByUser(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var names []string
	for _, a := range active {
		if !seen[a.RoleName] {
			seen[a.RoleName] = true
			names = append(names, a.RoleName)
		}
	}
	return names, nil
}

var _ Repository = (*MemoryRepository)(nil)
