package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/oncosaferx/authcore/internal/audit"
	"github.com/oncosaferx/authcore/internal/authz"
	"github.com/oncosaferx/authcore/internal/observability"
	"github.com/oncosaferx/authcore/internal/shared"
)

// Config holds session security policy. The expiry tiers are operational
// tuning, not invariants, so every threshold is configurable.
type Config struct {
	IdleTimeout    time.Duration
	BaseMaxAge     time.Duration
	ElevatedMaxAge time.Duration
	AdminMaxAge    time.Duration
	ElevatedLevel  int
	AdminLevel     int
	MaxConcurrent  int
	MFAWindow      time.Duration
}

// Manager issues sessions, polices them against hijacking and
// over-concurrency, and expires them by elapsed time and privilege tier.
type Manager struct {
	store    *Store
	resolver *authz.Resolver
	recorder *audit.Recorder
	tokens   *TokenIssuer
	cfg      Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

// WithMetrics attaches a metrics collector.
func (m *Manager) WithMetrics(metrics *observability.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// NewManager constructs a Manager.
func NewManager(store *Store, resolver *authz.Resolver, recorder *audit.Recorder, tokens *TokenIssuer, cfg Config, logger *slog.Logger) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.BaseMaxAge <= 0 {
		cfg.BaseMaxAge = 8 * time.Hour
	}
	if cfg.ElevatedMaxAge <= 0 {
		cfg.ElevatedMaxAge = 12 * time.Hour
	}
	if cfg.AdminMaxAge <= 0 {
		cfg.AdminMaxAge = 24 * time.Hour
	}
	if cfg.ElevatedLevel <= 0 {
		cfg.ElevatedLevel = 80
	}
	if cfg.AdminLevel <= 0 {
		cfg.AdminLevel = 90
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.MFAWindow <= 0 {
		cfg.MFAWindow = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		resolver: resolver,
		recorder: recorder,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create issues a new session for an authenticated principal, snapshotting
// current roles and a bounded permission list, and returns the session with
// its signed token.
func (m *Manager) Create(ctx context.Context, userID, tenantID, authMethod string, rc RequestContext) (*Session, string, error) {
	roles, err := m.resolver.Roles(ctx, userID, tenantID)
	if err != nil {
		return nil, "", fmt.Errorf("session: resolve roles: %w", err)
	}
	permSet, err := m.resolver.Resolve(ctx, userID, tenantID)
	if err != nil {
		return nil, "", fmt.Errorf("session: resolve permissions: %w", err)
	}

	roleNames := make([]string, 0, len(roles))
	maxLevel := 0
	for _, role := range roles {
		roleNames = append(roleNames, role.Name)
		if role.Level > maxLevel {
			maxLevel = role.Level
		}
	}
	perms := permSet.Slice()
	if len(perms) > maxTokenPermissions {
		perms = perms[:maxTokenPermissions]
	}

	now := m.now()
	sess := &Session{
		ID:           newSessionID(),
		UserID:       userID,
		TenantID:     tenantID,
		IssuedAt:     now,
		LastActivity: now,
		ExpiresAt:    now.Add(m.maxAgeForLevel(maxLevel)),
		Fingerprint:  Fingerprint(rc),
		LastIP:       rc.IP,
		Roles:        roleNames,
		Permissions:  perms,
		AuthMethod:   authMethod,
	}

	if err := m.store.Save(ctx, sess, m.storeTTL(sess, now)); err != nil {
		return nil, "", fmt.Errorf("session: save: %w", err)
	}

	if err := m.enforceCeiling(ctx, userID, sess.ID); err != nil {
		m.logger.Warn("concurrency ceiling enforcement failed", slog.Any("error", err))
	}

	token, err := m.tokens.Issue(sess)
	if err != nil {
		return nil, "", fmt.Errorf("session: issue token: %w", err)
	}

	if _, err := m.recorder.Record(ctx, audit.Event{
		Type:      audit.EventSessionCreated,
		Actor:     userID,
		TenantID:  tenantID,
		SessionID: sess.ID,
		IP:        rc.IP,
		Outcome:   audit.OutcomeSuccess,
		Detail:    map[string]string{"auth_method": authMethod},
	}); err != nil {
		// Total audit failure aborts session issuance.
		_ = m.store.Delete(ctx, sess.ID, userID)
		return nil, "", err
	}
	return sess, token, nil
}

// ValidateAndRefresh checks the session against both expiry timers and the
// request fingerprint, updates activity state, and re-enforces the
// concurrency ceiling. A fingerprint mismatch after first-use binding
// destroys the session and returns ErrSessionSecurityViolation.
func (m *Manager) ValidateAndRefresh(ctx context.Context, sessionID string, rc RequestContext) (*Session, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := m.now()

	if now.After(sess.ExpiresAt) {
		m.destroy(ctx, sess, audit.EventSessionExpired, ReasonExpired, nil)
		return nil, shared.ErrSessionExpired
	}
	if now.Sub(sess.LastActivity) > m.cfg.IdleTimeout {
		m.destroy(ctx, sess, audit.EventSessionExpired, ReasonIdleTimeout, nil)
		return nil, shared.ErrSessionExpired
	}

	fp := Fingerprint(rc)
	if sess.Fingerprint == "" {
		// First use binds the fingerprint.
		sess.Fingerprint = fp
	} else if fp != sess.Fingerprint {
		m.metrics.RecordHijack()
		m.destroy(ctx, sess, audit.EventSessionHijackingDetected, ReasonHijackSuspected, map[string]string{
			"bound_fingerprint":   sess.Fingerprint,
			"request_fingerprint": fp,
		})
		return nil, shared.ErrSessionSecurityViolation
	}

	if rc.IP != "" && sess.LastIP != "" && rc.IP != sess.LastIP {
		if _, err := m.recorder.Record(ctx, audit.Event{
			Type:      audit.EventSessionIPChanged,
			Actor:     sess.UserID,
			TenantID:  sess.TenantID,
			SessionID: sess.ID,
			IP:        rc.IP,
			Outcome:   audit.OutcomeSuccess,
		}); err != nil {
			return nil, err
		}
	}
	if rc.IP != "" {
		sess.LastIP = rc.IP
	}

	sess.LastActivity = now
	if m.cfg.MFAWindow > 0 && sess.MFAVerifiedAt != nil && now.Sub(*sess.MFAVerifiedAt) > m.cfg.MFAWindow {
		// MFA freshness lapses independently of the session lifetime.
		sess.MFAVerifiedAt = nil
	}
	if err := m.store.Save(ctx, sess, m.storeTTL(sess, now)); err != nil {
		return nil, fmt.Errorf("session: refresh: %w", err)
	}

	if err := m.enforceCeiling(ctx, sess.UserID, sess.ID); err != nil {
		m.logger.Warn("concurrency ceiling enforcement failed", slog.Any("error", err))
	}
	return sess, nil
}

// Invalidate terminates a session. Idempotent: a missing session is not an
// error. The audit write is attempted even when the store delete fails, and
// the concurrency index entry is always removed.
func (m *Manager) Invalidate(ctx context.Context, sessionID, reason string) error {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		if err == shared.ErrSessionNotFound {
			return nil
		}
		return err
	}
	m.destroy(ctx, sess, audit.EventSessionInvalidated, reason, nil)
	return nil
}

// InvalidateAll terminates every session of the user except keepID.
func (m *Manager) InvalidateAll(ctx context.Context, userID, keepID, reason string) (int, error) {
	ids, err := m.store.UserSessionIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	terminated := 0
	for _, id := range ids {
		if id == keepID {
			continue
		}
		if err := m.Invalidate(ctx, id, reason); err != nil {
			return terminated, err
		}
		terminated++
	}
	return terminated, nil
}

// List returns the user's live sessions, least-recently-active first.
func (m *Manager) List(ctx context.Context, userID string) ([]*Session, error) {
	ids, err := m.store.UserSessionIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		sess, err := m.store.Get(ctx, id)
		if err != nil {
			if err == shared.ErrSessionNotFound {
				continue
			}
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// Get fetches a session without validating it.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	return m.store.Get(ctx, sessionID)
}

// MarkMFAVerified records a fresh step-up authentication on the session.
func (m *Manager) MarkMFAVerified(ctx context.Context, sessionID string) error {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	now := m.now()
	sess.MFAVerifiedAt = &now
	return m.store.Save(ctx, sess, m.storeTTL(sess, now))
}

// MFAFresh reports whether the session's step-up authentication is within
// the freshness window.
func (m *Manager) MFAFresh(sess *Session) bool {
	if sess == nil || sess.MFAVerifiedAt == nil {
		return false
	}
	return m.now().Sub(*sess.MFAVerifiedAt) <= m.cfg.MFAWindow
}

// IdleTimeout exposes the configured rolling timeout for cookie expiry.
func (m *Manager) IdleTimeout() time.Duration {
	return m.cfg.IdleTimeout
}

// destroy removes the session and writes exactly one audit entry for the
// termination. Store failures never suppress the audit write.
func (m *Manager) destroy(ctx context.Context, sess *Session, eventType, reason string, detail map[string]string) {
	if err := m.store.Delete(ctx, sess.ID, sess.UserID); err != nil {
		m.logger.Error("session delete failed", slog.String("session_id", sess.ID), slog.Any("error", err))
	}
	if detail == nil {
		detail = map[string]string{}
	}
	detail["reason"] = reason
	if _, err := m.recorder.Record(ctx, audit.Event{
		Type:      eventType,
		Actor:     sess.UserID,
		TenantID:  sess.TenantID,
		SessionID: sess.ID,
		IP:        sess.LastIP,
		Outcome:   audit.OutcomeSuccess,
		Detail:    detail,
	}); err != nil {
		m.logger.Error("session audit write failed", slog.String("session_id", sess.ID), slog.Any("error", err))
	}
}

// enforceCeiling evicts least-recently-active sessions beyond the
// configured maximum. The current session is never evicted. A concurrent
// eviction of the same id degrades to a no-op delete.
func (m *Manager) enforceCeiling(ctx context.Context, userID, keepID string) error {
	ids, err := m.store.UserSessionIDs(ctx, userID)
	if err != nil {
		return err
	}
	over := len(ids) - m.cfg.MaxConcurrent
	for _, id := range ids {
		if over <= 0 {
			break
		}
		if id == keepID {
			continue
		}
		sess, err := m.store.Get(ctx, id)
		if err != nil {
			if err == shared.ErrSessionNotFound {
				over--
				continue
			}
			return err
		}
		m.metrics.RecordEviction()
		m.destroy(ctx, sess, audit.EventConcurrentLimitExceeded, ReasonEvicted, nil)
		over--
	}
	return nil
}

func (m *Manager) maxAgeForLevel(level int) time.Duration {
	switch {
	case level >= m.cfg.AdminLevel:
		return m.cfg.AdminMaxAge
	case level >= m.cfg.ElevatedLevel:
		return m.cfg.ElevatedMaxAge
	default:
		return m.cfg.BaseMaxAge
	}
}

// storeTTL bounds the Redis TTL by both the rolling idle timeout and the
// absolute expiry; whichever fires first removes the key.
func (m *Manager) storeTTL(sess *Session, now time.Time) time.Duration {
	ttl := m.cfg.IdleTimeout
	if remaining := sess.ExpiresAt.Sub(now); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return ttl
}

// newSessionID returns an opaque identifier with 256 bits of entropy.
func newSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("session: entropy source unavailable: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
