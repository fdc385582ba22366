package session

import (
	"context"
	"time"

	"github.com/popolling/server/internal/models"
)

// Store is the refresh session registry.
//
// Create fails with ErrSessionExists when the id is taken. Revoke is
// idempotent and the first non-empty replacedBy wins. Rotate must revoke oldID
// and insert next as one atomic step: of any number of concurrent calls for
// the same oldID exactly one succeeds and the rest get ErrSessionRevoked.
// The old session's revoked_at is next.CreatedAt, so a successor is never
// recorded as older than the revocation it replaced.
type Store interface {
	Create(ctx context.Context, s *models.RefreshSession) error
	Find(ctx context.Context, id string) (*models.RefreshSession, error)
	Revoke(ctx context.Context, id, replacedBy string) error
	Rotate(ctx context.Context, oldID string, next *models.RefreshSession) error
	ListActive(ctx context.Context, userID string, now time.Time) ([]models.RefreshSession, error)
	RevokeAllForUser(ctx context.Context, userID, exceptID string) error
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// rotationTime returns next.CreatedAt, stamping it from now when unset.
func rotationTime(next *models.RefreshSession, now func() time.Time) time.Time {
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now()
	}
	return next.CreatedAt
}
