package assignment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/oncosaferx/authcore/internal/audit"
	"github.com/oncosaferx/authcore/internal/authz"
	"github.com/oncosaferx/authcore/internal/registry"
	"github.com/oncosaferx/authcore/internal/shared"
)

// Service orchestrates role assignment, revocation and custom role
// creation, enforcing the privilege-escalation invariant on every path.
type Service struct {
	repo     Repository
	registry *registry.Registry
	resolver *authz.Resolver
	recorder *audit.Recorder
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, reg *registry.Registry, resolver *authz.Resolver, recorder *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		registry: reg,
		resolver: resolver,
		recorder: recorder,
		logger:   logger,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Assign binds roleName to (userID, tenantID). The assigner must hold
// admin.role_assignment and may only grant roles with a level strictly
// below their own effective maximum.
func (s *Service) Assign(ctx context.Context, userID, tenantID, roleName, assignedBy string, opts AssignOptions) (Assignment, error) {
	role, err := s.registry.GetRole(ctx, tenantID, roleName)
	if err != nil {
		return Assignment{}, err
	}

	if err := s.checkAssignerAuthority(ctx, tenantID, assignedBy, role, "assign:"+roleName); err != nil {
		return Assignment{}, err
	}

	a := Assignment{
		ID:         uuid.NewString(),
		UserID:     userID,
		TenantID:   tenantID,
		RoleName:   role.Name,
		AssignedBy: assignedBy,
		AssignedAt: s.now(),
		ExpiresAt:  opts.ExpiresAt,
		Reason:     opts.Reason,
		Department: opts.Department,
		Supervisor: opts.Supervisor,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Assignment{}, fmt.Errorf("assignment: create: %w", err)
	}

	// Invalidation runs only after the write is durable so a concurrent
	// reader cannot repopulate a pre-write view and have it stick.
	if err := s.resolver.Invalidate(ctx, userID, tenantID); err != nil {
		s.logger.Warn("cache invalidation failed after assign", slog.Any("error", err))
	}

	if err := s.audit(ctx, audit.EventRoleAssigned, assignedBy, tenantID, audit.OutcomeSuccess, "role:"+role.Name, map[string]string{
		"target_user": userID,
		"reason":      opts.Reason,
	}); err != nil {
		// Total audit failure aborts the mutation: undo the write.
		if delErr := s.repo.Delete(ctx, a.ID); delErr != nil {
			s.logger.Error("rollback after audit failure", slog.Any("error", delErr))
		}
		_ = s.resolver.Invalidate(ctx, userID, tenantID)
		return Assignment{}, err
	}
	return a, nil
}

// Revoke removes every assignment matching (userID, tenantID, roleName),
// audits each removed record individually, and reports whether anything was
// removed.
func (s *Service) Revoke(ctx context.Context, userID, tenantID, roleName, revokedBy, reason string) (bool, error) {
	granted, err := s.resolver.HasPermission(ctx, revokedBy, tenantID, shared.PermAdminRoleAssignment)
	if err != nil {
		return false, err
	}
	if !granted {
		return false, shared.ErrPermissionDenied
	}

	removed, err := s.repo.DeleteByRole(ctx, userID, tenantID, roleName)
	if err != nil {
		return false, fmt.Errorf("assignment: revoke: %w", err)
	}
	if len(removed) == 0 {
		return false, nil
	}

	if err := s.resolver.Invalidate(ctx, userID, tenantID); err != nil {
		s.logger.Warn("cache invalidation failed after revoke", slog.Any("error", err))
	}

	for _, a := range removed {
		if err := s.audit(ctx, audit.EventRoleRevoked, revokedBy, tenantID, audit.OutcomeSuccess, "role:"+a.RoleName, map[string]string{
			"target_user":   userID,
			"assignment_id": a.ID,
			"reason":        reason,
		}); err != nil {
			// Total audit failure aborts the mutation: restore every
			// assignment removed by this call.
			for _, restore := range removed {
				if createErr := s.repo.Create(ctx, restore); createErr != nil {
					s.logger.Error("rollback after audit failure", slog.Any("error", createErr))
				}
			}
			_ = s.resolver.Invalidate(ctx, userID, tenantID)
			return false, err
		}
	}
	return true, nil
}

// CreateCustomRole creates a tenant-scoped role. The creator must hold
// admin.role_assignment and the role's level must be strictly below the
// creator's effective maximum.
func (s *Service) CreateCustomRole(ctx context.Context, tenantID string, spec CustomRoleSpec, createdBy string) (registry.Role, error) {
	if err := s.validate.Struct(spec); err != nil {
		return registry.Role{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	spec.Name = strings.TrimSpace(spec.Name)

	probe := registry.Role{Name: spec.Name, Level: spec.Level}
	if err := s.checkAssignerAuthority(ctx, tenantID, createdBy, probe, "create_custom_role:"+spec.Name); err != nil {
		return registry.Role{}, err
	}

	role, err := s.registry.CreateCustomRole(ctx, registry.Role{
		Name:        spec.Name,
		Level:       spec.Level,
		Inherits:    spec.Inherits,
		Permissions: spec.Permissions,
		Description: spec.Description,
		TenantID:    tenantID,
		CreatedBy:   createdBy,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return registry.Role{}, err
	}

	if err := s.audit(ctx, audit.EventCustomRoleCreated, createdBy, tenantID, audit.OutcomeSuccess, "role:"+role.Name, map[string]string{
		"level": fmt.Sprintf("%d", role.Level),
	}); err != nil {
		// Total audit failure aborts the mutation: undo the write.
		if delErr := s.registry.DeleteCustomRole(ctx, tenantID, role.Name); delErr != nil {
			s.logger.Error("rollback after audit failure", slog.Any("error", delErr))
		}
		return registry.Role{}, err
	}
	return role, nil
}

// checkAssignerAuthority enforces the two-part authority rule: the actor
// needs admin.role_assignment, and the granted level must be strictly below
// the actor's own effective maximum. Equal levels fail.
func (s *Service) checkAssignerAuthority(ctx context.Context, tenantID, actor string, role registry.Role, resource string) error {
	granted, err := s.resolver.HasPermission(ctx, actor, tenantID, shared.PermAdminRoleAssignment)
	if err != nil {
		return err
	}
	if !granted {
		if err := s.audit(ctx, audit.EventAuthorizationDenied, actor, tenantID, audit.OutcomeDenied, resource, nil); err != nil {
			return err
		}
		return shared.ErrPermissionDenied
	}

	maxLevel, err := s.resolver.MaxLevel(ctx, actor, tenantID)
	if err != nil {
		return err
	}
	if role.Level >= maxLevel {
		if err := s.audit(ctx, audit.EventPrivilegeEscalation, actor, tenantID, audit.OutcomeDenied, resource, map[string]string{
			"role_level":     fmt.Sprintf("%d", role.Level),
			"assigner_level": fmt.Sprintf("%d", maxLevel),
		}); err != nil {
			return err
		}
		return shared.ErrInsufficientPrivilege
	}
	return nil
}

// ActiveRoleNames exposes the repository's binding view so the service can
// back the permission resolver directly.
func (s *Service) ActiveRoleNames(ctx context.Context, userID, tenantID string) ([]string, error) {
	return s.repo.ActiveRoleNames(ctx, userID, tenantID)
}

func (s *Service) audit(ctx context.Context, eventType, actor, tenantID, outcome, resource string, detail map[string]string) error {
	_, err := s.recorder.Record(ctx, audit.Event{
		Type:     eventType,
		Actor:    actor,
		TenantID: tenantID,
		Resource: resource,
		Outcome:  outcome,
		Detail:   detail,
	})
	return err
}
