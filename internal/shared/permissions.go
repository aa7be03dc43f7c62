package shared

// Permission catalog keys. The catalog is static registry data; keys are a
// compatibility contract with stored assignments and session snapshots.
const (
	PermPatientView       = "patient.view"
	PermPatientEdit       = "patient.edit"
	PermPatientMedHistory = "patient.medication_history"

	PermClinicalDecisionSupport  = "clinical.decision_support"
	PermClinicalInteractionCheck = "clinical.interaction_check"
	PermClinicalOrderEntry       = "clinical.order_entry"
	PermClinicalOrderReview      = "clinical.order_review"
	PermClinicalProtocolOverride = "clinical.protocol_override"

	PermAdminUserManagement = "admin.user_management"
	PermAdminRoleAssignment = "admin.role_assignment"
	PermAdminTenantSettings = "admin.tenant_settings"

	PermAuditView   = "audit.view"
	PermAuditExport = "audit.export"

	PermSessionManageOwn = "session.manage_own"
	PermSessionManageAny = "session.manage_any"
)

// Permission categories.
const (
	CategoryPatient  = "patient"
	CategoryClinical = "clinical"
	CategoryAdmin    = "admin"
	CategoryAudit    = "audit"
	CategorySession  = "session"
)
