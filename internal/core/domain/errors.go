package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConfigMissing      = errors.New("signing secret not configured")
	ErrInvalidSession     = errors.New("invalid session")
	ErrMissingFields      = errors.New("missing required fields")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already in use")
	ErrEmailTaken         = errors.New("email already in use")

	// ErrAdminResetForbidden blocks an admin from resetting another admin's
	// password. Self-resets are allowed.
	ErrAdminResetForbidden = errors.New("password reset between administrators is not allowed")

	// ErrInsufficientPrivilege blocks an admin without the reset privilege
	// flag from resetting staff passwords.
	ErrInsufficientPrivilege = errors.New("insufficient privilege to reset staff passwords")

	// ErrInvalidOrExpiredToken covers bad signature, expiry and malformed
	// structure. ErrInvalidResetToken covers a well-formed token whose
	// action claim is not "reset".
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrInvalidResetToken     = errors.New("invalid token")

	ErrWeakPassword            = errors.New("password does not meet policy")
	ErrCurrentPasswordMismatch = errors.New("current password is incorrect")
)
