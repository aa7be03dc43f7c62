package registry

import "time"

// Role is a named bundle of permissions with a privilege level and optional
// inheritance from other roles. Built-in roles have an empty TenantID;
// custom roles are tenant-scoped.
type Role struct {
	Name        string
	Level       int
	Inherits    []string
	Permissions []string
	TenantID    string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
}

// IsCustom reports whether the role is tenant-scoped.
func (r Role) IsCustom() bool {
	return r.TenantID != ""
}

// Permission describes an atomic capability. Immutable once defined.
type Permission struct {
	Key         string
	Category    string
	Description string
}
