package assignment

import "time"

// Assignment binds a role to a (user, tenant) pair. Multiple assignments
// per pair are allowed; the resolver unions their effective permissions.
type Assignment struct {
	ID         string
	UserID     string
	TenantID   string
	RoleName   string
	AssignedBy string
	AssignedAt time.Time
	ExpiresAt  *time.Time
	Reason     string
	Department string
	Supervisor string
}

// Active reports whether the assignment is valid at t.
func (a Assignment) Active(t time.Time) bool {
	return a.ExpiresAt == nil || a.ExpiresAt.After(t)
}

// AssignOptions enumerates the recognized assignment metadata fields.
type AssignOptions struct {
	ExpiresAt  *time.Time
	Reason     string
	Department string
	Supervisor string
}

// CustomRoleSpec describes a tenant-scoped role to create. Level is
// caller-supplied but must stay below the creator's effective maximum.
type CustomRoleSpec struct {
	Name        string   `json:"name" validate:"required,min=2,max=64"`
	Level       int      `json:"level" validate:"gte=0,lte=100"`
	Inherits    []string `json:"inherits"`
	Permissions []string `json:"permissions" validate:"required,min=1"`
	Description string   `json:"description" validate:"max=256"`
}
