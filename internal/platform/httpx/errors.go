// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/oncosaferx/authcore/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Authorization failures deliberately carry a generic detail so the response
// never reveals which permission or role was missing.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrPermissionDenied), errors.Is(err, shared.ErrInsufficientPrivilege):
		Problem(w, http.StatusForbidden, "Forbidden", "access denied")
	case errors.Is(err, shared.ErrSessionSecurityViolation),
		errors.Is(err, shared.ErrSessionExpired),
		errors.Is(err, shared.ErrSessionNotFound):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "session invalid, please re-authenticate")
	case errors.Is(err, shared.ErrRoleNotFound), errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicateRole):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
