package session

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/popolling/server/internal/models"
	"github.com/popolling/server/internal/pkg/jwt"
)

// Provenance describes the client a session was issued to.
type Provenance struct {
	UserAgent string
	IP        string
}

// HashToken returns the hex SHA-256 digest stored in place of a raw token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// TokenMatches compares raw against a stored digest in constant time.
func TokenMatches(raw, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(HashToken(raw)), []byte(digest)) == 1
}

// NewRecord builds the registry entry for a freshly signed refresh token. The
// id and expiry come from the token's own verified claims.
func NewRecord(raw string, claims *jwt.Claims, prov Provenance) *models.RefreshSession {
	rec := &models.RefreshSession{
		ID:        claims.SessionID(),
		UserID:    claims.UserID,
		TokenHash: HashToken(raw),
		UserAgent: truncate(strings.TrimSpace(prov.UserAgent), 512),
		IP:        truncate(strings.TrimSpace(prov.IP), 64),
	}
	if claims.IssuedAt != nil {
		rec.CreatedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		rec.ExpiresAt = claims.ExpiresAt.Time
	}
	return rec
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
