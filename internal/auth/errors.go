package auth

import "errors"

// Rejection kinds for the authentication flow. The transport collapses
// them all into one unauthorized status; they stay distinct here for
// logging and tests.
var (
	ErrMissingAuth     = errors.New("authorization header required")
	ErrMalformedAuth   = errors.New("malformed authorization header")
	ErrInvalidToken    = errors.New("invalid token")
	ErrUnknownSubject  = errors.New("unknown subject")
	ErrDeactivated     = errors.New("account is deactivated")
	ErrStaleCredential = errors.New("token predates credential change")
)
