package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied indicates the caller lacks a required permission.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInsufficientPrivilege indicates a privilege escalation attempt.
	ErrInsufficientPrivilege = errors.New("insufficient privilege")
	// ErrSessionSecurityViolation indicates suspected session hijacking.
	ErrSessionSecurityViolation = errors.New("session security violation")
	// ErrSessionExpired indicates a normally expired session.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionNotFound indicates the session no longer exists.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRoleNotFound indicates an unknown role name.
	ErrRoleNotFound = errors.New("role not found")
	// ErrDuplicateRole indicates a role name collision.
	ErrDuplicateRole = errors.New("duplicate role")
	// ErrValidation indicates a malformed request payload.
	ErrValidation = errors.New("validation failed")
)

// AuditWriteError reports that every configured audit sink rejected a write.
// It is fatal for the originating mutation; partial sink failures never
// surface as this error.
type AuditWriteError struct {
	Sinks []string
	Err   error
}

func (e *AuditWriteError) Error() string {
	return fmt.Sprintf("audit write failed on all sinks (%s): %v", strings.Join(e.Sinks, ", "), e.Err)
}

func (e *AuditWriteError) Unwrap() error {
	return e.Err
}
