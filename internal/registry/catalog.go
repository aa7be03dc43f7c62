package registry

import "github.com/oncosaferx/authcore/internal/shared"

// permissionCatalog is the static permission catalog. Entries are immutable;
// downstream compliance tooling depends on stable keys.
var permissionCatalog = []Permission{
	{Key: shared.PermPatientView, Category: shared.CategoryPatient, Description: "View patient demographics and records"},
	{Key: shared.PermPatientEdit, Category: shared.CategoryPatient, Description: "Edit patient records"},
	{Key: shared.PermPatientMedHistory, Category: shared.CategoryPatient, Description: "View patient medication history"},

	{Key: shared.PermClinicalDecisionSupport, Category: shared.CategoryClinical, Description: "Access clinical decision support"},
	{Key: shared.PermClinicalInteractionCheck, Category: shared.CategoryClinical, Description: "Run drug interaction checks"},
	{Key: shared.PermClinicalOrderEntry, Category: shared.CategoryClinical, Description: "Enter medication orders"},
	{Key: shared.PermClinicalOrderReview, Category: shared.CategoryClinical, Description: "Review and verify medication orders"},
	{Key: shared.PermClinicalProtocolOverride, Category: shared.CategoryClinical, Description: "Override protocol-level safety checks"},

	{Key: shared.PermAdminUserManagement, Category: shared.CategoryAdmin, Description: "Manage user accounts"},
	{Key: shared.PermAdminRoleAssignment, Category: shared.CategoryAdmin, Description: "Assign and revoke roles"},
	{Key: shared.PermAdminTenantSettings, Category: shared.CategoryAdmin, Description: "Change tenant settings"},

	{Key: shared.PermAuditView, Category: shared.CategoryAudit, Description: "View audit trail entries"},
	{Key: shared.PermAuditExport, Category: shared.CategoryAudit, Description: "Export audit trail data"},

	{Key: shared.PermSessionManageOwn, Category: shared.CategorySession, Description: "List and terminate own sessions"},
	{Key: shared.PermSessionManageAny, Category: shared.CategorySession, Description: "Terminate any session in the tenant"},
}

// builtinRoles returns the immutable built-in role table. Constructed fresh
// per registry so callers can never mutate shared state.
func builtinRoles() []Role {
	return []Role{
		{
			Name:        "READONLY_USER",
			Level:       10,
			Permissions: []string{shared.PermPatientView},
			Description: "Read-only access to patient records",
		},
		{
			Name:     "CLINICAL_USER",
			Level:    50,
			Inherits: []string{"READONLY_USER"},
			Permissions: []string{
				shared.PermClinicalDecisionSupport,
				shared.PermClinicalInteractionCheck,
				shared.PermPatientMedHistory,
				shared.PermSessionManageOwn,
			},
			Description: "Base clinical staff access",
		},
		{
			Name:        "NURSE",
			Level:       60,
			Inherits:    []string{"CLINICAL_USER"},
			Permissions: []string{shared.PermPatientEdit},
			Description: "Nursing staff",
		},
		{
			Name:        "RESIDENT_PHYSICIAN",
			Level:       70,
			Inherits:    []string{"CLINICAL_USER"},
			Permissions: []string{shared.PermClinicalOrderEntry},
			Description: "Resident physician under supervision",
		},
		{
			Name:        "PHARMACIST",
			Level:       75,
			Inherits:    []string{"CLINICAL_USER"},
			Permissions: []string{shared.PermClinicalOrderReview},
			Description: "Pharmacist order review",
		},
		{
			Name:        "ATTENDING_PHYSICIAN",
			Level:       80,
			Inherits:    []string{"RESIDENT_PHYSICIAN"},
			Permissions: []string{shared.PermClinicalProtocolOverride},
			Description: "Attending physician",
		},
		{
			Name:     "TENANT_ADMIN",
			Level:    90,
			Inherits: []string{"CLINICAL_USER"},
			Permissions: []string{
				shared.PermAdminUserManagement,
				shared.PermAdminRoleAssignment,
				shared.PermAdminTenantSettings,
				shared.PermAuditView,
				shared.PermSessionManageAny,
			},
			Description: "Tenant administrator",
		},
		{
			Name:        "SYSTEM_ADMIN",
			Level:       100,
			Inherits:    []string{"TENANT_ADMIN"},
			Permissions: []string{shared.PermAuditExport},
			Description: "Platform operator",
		},
	}
}
