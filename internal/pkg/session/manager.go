package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/popolling/server/internal/models"
	"github.com/popolling/server/internal/pkg/jwt"
	"go.uber.org/zap"
)

// Pair is a freshly issued access/refresh token pair.
type Pair struct {
	Identity         jwt.Identity
	AccessToken      string
	RefreshToken     string
	SessionID        string
	RefreshExpiresAt time.Time
}

// Outcome tags the result of ValidateAccessOrRefresh.
type Outcome int

const (
	Rejected Outcome = iota
	Authenticated
	Rotated
)

func (o Outcome) String() string {
	switch o {
	case Authenticated:
		return "authenticated"
	case Rotated:
		return "rotated"
	default:
		return "rejected"
	}
}

// Result is what the auth gate acts on. Pair is set only when Outcome is
// Rotated; Err only when it is Rejected.
type Result struct {
	Outcome  Outcome
	Identity jwt.Identity
	Pair     *Pair
	Err      error
}

// Manager owns the token lifecycle: issuing pairs, rotating refresh tokens
// against the registry and revoking sessions.
type Manager struct {
	codec  *jwt.Codec
	store  Store
	logger *zap.Logger
}

func NewManager(codec *jwt.Codec, store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{codec: codec, store: store, logger: logger}
}

// Issue starts a new session lineage for id.
func (m *Manager) Issue(ctx context.Context, id jwt.Identity, prov Provenance) (*Pair, error) {
	pair, rec, err := m.newPair(id, prov)
	if err != nil {
		return nil, err
	}
	if err := m.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	m.logger.Debug("session issued", zap.String("user_id", id.UserID), zap.String("session_id", rec.ID))
	return pair, nil
}

// Rotate exchanges a refresh token for a new pair. The presented token is
// single-use: on success its session is revoked and linked to the new one.
func (m *Manager) Rotate(ctx context.Context, oldRaw string, prov Provenance) (*Pair, error) {
	claims, err := m.codec.VerifyRefresh(oldRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	old, err := m.store.Find(ctx, claims.SessionID())
	if err != nil {
		return nil, err
	}
	if old.Revoked {
		m.logger.Warn("revoked refresh token presented",
			zap.String("user_id", old.UserID),
			zap.String("session_id", old.ID),
			zap.String("replaced_by", old.ReplacedBy),
			zap.String("ip", prov.IP),
		)
		return nil, ErrSessionRevoked
	}
	if !m.codec.Now().Before(old.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	if !TokenMatches(oldRaw, old.TokenHash) {
		return nil, ErrTokenMismatch
	}

	pair, next, err := m.newPair(claims.Identity(), prov)
	if err != nil {
		return nil, err
	}
	if err := m.store.Rotate(ctx, old.ID, next); err != nil {
		return nil, err
	}
	m.logger.Debug("session rotated",
		zap.String("user_id", old.UserID),
		zap.String("from", old.ID),
		zap.String("to", next.ID),
	)
	return pair, nil
}

// ValidateAccessOrRefresh authenticates with the access token when it is
// valid, and otherwise falls back to rotating the refresh token.
func (m *Manager) ValidateAccessOrRefresh(ctx context.Context, access, refresh string, prov Provenance) Result {
	var accessErr error
	if access != "" {
		claims, err := m.codec.VerifyAccess(access)
		if err == nil {
			return Result{Outcome: Authenticated, Identity: claims.Identity()}
		}
		accessErr = err
	}
	if refresh == "" {
		if accessErr == nil {
			accessErr = ErrUnauthenticated
		}
		return Result{Outcome: Rejected, Err: accessErr}
	}
	pair, err := m.Rotate(ctx, refresh, prov)
	if err != nil {
		return Result{Outcome: Rejected, Err: err}
	}
	return Result{Outcome: Rotated, Identity: pair.Identity, Pair: pair}
}

// Revoke ends the session behind a refresh token. Unknown or already revoked
// sessions are not an error.
func (m *Manager) Revoke(ctx context.Context, refreshRaw string) error {
	claims, err := m.codec.VerifyRefresh(refreshRaw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	err = m.store.Revoke(ctx, claims.SessionID(), "")
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

// SessionIDOf extracts the session id from a refresh token, if it verifies.
func (m *Manager) SessionIDOf(refreshRaw string) string {
	claims, err := m.codec.VerifyRefresh(refreshRaw)
	if err != nil {
		return ""
	}
	return claims.SessionID()
}

func (m *Manager) ListSessions(ctx context.Context, userID string) ([]models.RefreshSession, error) {
	return m.store.ListActive(ctx, userID, m.codec.Now())
}

// RevokeSession revokes one of userID's own sessions.
func (m *Manager) RevokeSession(ctx context.Context, userID, sessionID string) error {
	s, err := m.store.Find(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.UserID != userID {
		return ErrSessionNotFound
	}
	return m.store.Revoke(ctx, sessionID, "")
}

// RevokeOtherSessions signs userID out everywhere except keepID.
func (m *Manager) RevokeOtherSessions(ctx context.Context, userID, keepID string) error {
	return m.store.RevokeAllForUser(ctx, userID, keepID)
}

// Sweep deletes sessions whose refresh token can no longer verify.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.store.PurgeExpired(ctx, m.codec.Now())
}

func (m *Manager) RefreshTTL() time.Duration { return m.codec.RefreshTTL() }

func (m *Manager) newPair(id jwt.Identity, prov Provenance) (*Pair, *models.RefreshSession, error) {
	sessionID := uuid.NewString()
	refresh, err := m.codec.SignRefresh(id, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("sign refresh token: %w", err)
	}
	access, err := m.codec.SignAccess(id)
	if err != nil {
		return nil, nil, fmt.Errorf("sign access token: %w", err)
	}
	claims, err := m.codec.VerifyRefresh(refresh)
	if err != nil {
		return nil, nil, fmt.Errorf("verify issued refresh token: %w", err)
	}
	rec := NewRecord(refresh, claims, prov)
	// iat is whole seconds; Rotate reuses CreatedAt as the predecessor's revoked_at.
	rec.CreatedAt = m.codec.Now()
	return &Pair{
		Identity:         id,
		AccessToken:      access,
		RefreshToken:     refresh,
		SessionID:        sessionID,
		RefreshExpiresAt: rec.ExpiresAt,
	}, rec, nil
}
