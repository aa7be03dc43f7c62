package audit

import "time"

// Risk levels, ordered by severity.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Event types recorded by the core. The eventType→risk mapping is fixed at
// compile time; risk is never inferred at call time.
const (
	EventRoleAssigned             = "role_assigned"
	EventRoleRevoked              = "role_revoked"
	EventCustomRoleCreated        = "custom_role_created"
	EventPrivilegeEscalation      = "privilege_escalation_attempt"
	EventAuthorizationDenied      = "authorization_denied"
	EventSessionCreated           = "session_created"
	EventSessionExpired           = "session_expired"
	EventSessionInvalidated       = "session_invalidated"
	EventSessionIPChanged         = "session_ip_changed"
	EventSessionHijackingDetected = "session_hijacking_detected"
	EventConcurrentLimitExceeded  = "concurrent_limit_exceeded"
	EventBruteForceSuspected      = "brute_force_suspected"
)

// riskByEvent is the deterministic eventType→risk classification.
var riskByEvent = map[string]string{
	EventRoleAssigned:             RiskMedium,
	EventRoleRevoked:              RiskMedium,
	EventCustomRoleCreated:        RiskMedium,
	EventPrivilegeEscalation:      RiskHigh,
	EventAuthorizationDenied:      RiskMedium,
	EventSessionCreated:           RiskLow,
	EventSessionExpired:           RiskLow,
	EventSessionInvalidated:       RiskLow,
	EventSessionIPChanged:         RiskMedium,
	EventSessionHijackingDetected: RiskCritical,
	EventConcurrentLimitExceeded:  RiskMedium,
	EventBruteForceSuspected:      RiskHigh,
}

// categoryByEvent groups event types for downstream reporting.
var categoryByEvent = map[string]string{
	EventRoleAssigned:             "role_management",
	EventRoleRevoked:              "role_management",
	EventCustomRoleCreated:        "role_management",
	EventPrivilegeEscalation:      "authorization",
	EventAuthorizationDenied:      "authorization",
	EventSessionCreated:           "session",
	EventSessionExpired:           "session",
	EventSessionInvalidated:       "session",
	EventSessionIPChanged:         "session",
	EventSessionHijackingDetected: "session",
	EventConcurrentLimitExceeded:  "session",
	EventBruteForceSuspected:      "security",
}

// Retention periods in days by risk level. High-risk records keep the
// regulatory seven-year horizon.
var retentionByRisk = map[string]int{
	RiskLow:      365,
	RiskMedium:   1095,
	RiskHigh:     2555,
	RiskCritical: 2555,
}

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
	OutcomeFailure = "failure"
)

// Compliance flags.
const (
	FlagRegulatedData        = "regulated_data"
	FlagNotificationRequired = "notification_required"
)

// Event is the caller-facing description of a security-relevant occurrence.
// Actor and IP carry raw identifiers; the recorder hashes them before any
// sink sees the entry.
type Event struct {
	Type      string
	Actor     string
	TenantID  string
	SessionID string
	IP        string
	Resource  string
	Outcome   string
	Detail    map[string]string
}

// Entry is the persisted, immutable audit record. Field names are a
// compatibility contract for downstream compliance tooling.
type Entry struct {
	ID              string            `json:"id"`
	Timestamp       time.Time         `json:"timestamp"`
	EventType       string            `json:"eventType"`
	EventCategory   string            `json:"eventCategory"`
	RiskLevel       string            `json:"riskLevel"`
	ActorHash       string            `json:"actorHash"`
	TenantID        string            `json:"tenantId"`
	SessionID       string            `json:"sessionId,omitempty"`
	IPHash          string            `json:"ipHash,omitempty"`
	Resource        string            `json:"resource,omitempty"`
	Outcome         string            `json:"outcome"`
	ComplianceFlags []string          `json:"complianceFlags,omitempty"`
	RetentionDays   int               `json:"retentionDays"`
	Detail          map[string]string `json:"detail,omitempty"`
}

// classify fills the deterministic fields derived from the event type.
func classify(eventType string) (risk, category string, retention int, flags []string) {
	risk, ok := riskByEvent[eventType]
	if !ok {
		risk = RiskMedium
	}
	category, ok = categoryByEvent[eventType]
	if !ok {
		category = "general"
	}
	retention = retentionByRisk[risk]
	flags = append(flags, FlagRegulatedData)
	if risk == RiskCritical {
		flags = append(flags, FlagNotificationRequired)
	}
	return risk, category, retention, flags
}
