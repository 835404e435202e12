package utils

import "errors"

// Admin auth errors. The string doubles as the API error code.
var (
	ErrUnauthenticated    = errors.New("UNAUTHENTICATED")
	ErrLegacySession      = errors.New("LEGACY_SESSION")
	ErrSessionRevoked     = errors.New("SESSION_REVOKED")
	ErrSessionExpired     = errors.New("SESSION_EXPIRED")
	ErrInvalidPassword    = errors.New("INVALID_PASSWORD")
	ErrPasswordRequired   = errors.New("PASSWORD_REQUIRED")
	ErrAdminNotFound      = errors.New("ADMIN_NOT_FOUND")
	ErrSessionNotFound    = errors.New("SESSION_NOT_FOUND")
	ErrTOTPNotEnrolled    = errors.New("TOTP_NOT_ENROLLED")
	ErrTOTPAlreadyEnabled = errors.New("TOTP_ALREADY_ENABLED")
	ErrInvalidCode        = errors.New("INVALID_CODE")
	ErrForbidden          = errors.New("FORBIDDEN")
)
