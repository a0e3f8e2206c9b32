package auth

import "errors"

// Sentinel errors returned by the auth service. Callers should use
// errors.Is for comparison.
var (
	// ErrInvalidCredentials is returned when username/password do not match.
	// Deliberately used instead of a more specific "not found" error so a
	// login handler never reveals whether a username exists.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrUserDisabled is returned when the user account is inactive.
	ErrUserDisabled = errors.New("auth: user account is disabled")

	// ErrAccountLocked is returned when a user's lockout window has not
	// yet elapsed.
	ErrAccountLocked = errors.New("auth: account is locked out")

	// ErrTokenExpired is returned when a JWT has expired.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrTokenInvalid is returned when a token cannot be parsed or verified.
	ErrTokenInvalid = errors.New("auth: token invalid")

	// ErrUnsupportedAlgorithm is returned when a JWT manager is configured
	// with a signing algorithm this directory does not implement. Only
	// RS256 is supported; HMAC (secret_key) configuration is accepted by
	// the config schema but rejected here.
	ErrUnsupportedAlgorithm = errors.New("auth: unsupported JWT signing algorithm")
)
