package session

import "time"

// Session is the authoritative per-login security record. The manager
// exclusively owns its mutation.
type Session struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	TenantID      string     `json:"tenant_id"`
	IssuedAt      time.Time  `json:"issued_at"`
	LastActivity  time.Time  `json:"last_activity"`
	ExpiresAt     time.Time  `json:"expires_at"`
	Fingerprint   string     `json:"fingerprint,omitempty"`
	LastIP        string     `json:"last_ip,omitempty"`
	Roles         []string   `json:"roles,omitempty"`
	Permissions   []string   `json:"permissions,omitempty"`
	AuthMethod    string     `json:"auth_method"`
	MFAVerifiedAt *time.Time `json:"mfa_verified_at,omitempty"`
}

// RequestContext carries the stable request signals used for fingerprinting
// plus the source IP, which is tracked separately from the fingerprint.
type RequestContext struct {
	IP             string
	UserAgent      string
	AcceptLanguage string
	AcceptEncoding string
}

// Invalidation reasons recorded in the audit trail.
const (
	ReasonLogout          = "logout"
	ReasonLogoutAll       = "logout_all"
	ReasonExpired         = "expired"
	ReasonIdleTimeout     = "idle_timeout"
	ReasonHijackSuspected = "hijack_suspected"
	ReasonEvicted         = "concurrency_evicted"
	ReasonTerminated      = "terminated_by_user"
)
