package session

import (
	"errors"

	"github.com/popolling/server/internal/pkg/jwt"
)

// Rotation failures. Callers at the HTTP edge must collapse all of these into
// a single unauthenticated response.
var (
	ErrInvalidToken    = errors.New("session: invalid refresh token")
	ErrSessionNotFound = errors.New("session: not found")
	ErrSessionRevoked  = errors.New("session: revoked")
	ErrSessionExpired  = errors.New("session: expired")
	ErrTokenMismatch   = errors.New("session: token digest mismatch")
	ErrUnauthenticated = errors.New("session: no usable credentials")
	ErrSessionExists   = errors.New("session: id already exists")
)

// IsCredentialError reports whether err means the presented credentials are
// unusable. Anything else is a failure of the registry itself.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionRevoked) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrTokenMismatch) ||
		errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, jwt.ErrInvalidSignature) ||
		errors.Is(err, jwt.ErrExpired)
}
