package session

import (
	"context"
	"errors"
	"time"

	"github.com/popolling/server/internal/models"
	"gorm.io/gorm"
)

// GormStore persists sessions in the refresh_sessions table.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (g *GormStore) Create(ctx context.Context, s *models.RefreshSession) error {
	return duplicateAsExists(g.db.WithContext(ctx).Create(s).Error)
}

func (g *GormStore) Find(ctx context.Context, id string) (*models.RefreshSession, error) {
	var s models.RefreshSession
	if err := g.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (g *GormStore) Revoke(ctx context.Context, id, replacedBy string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.RefreshSession{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrSessionNotFound
		}
		if err := tx.Model(&models.RefreshSession{}).
			Where("id = ? AND revoked = ?", id, false).
			Updates(map[string]interface{}{"revoked": true, "revoked_at": g.now()}).Error; err != nil {
			return err
		}
		if replacedBy == "" {
			return nil
		}
		return tx.Model(&models.RefreshSession{}).
			Where("id = ? AND (replaced_by = '' OR replaced_by IS NULL)", id).
			Update("replaced_by", replacedBy).Error
	})
}

// Rotate relies on the conditional UPDATE taking the row lock: a concurrent
// rotation blocks on it and then matches zero rows.
func (g *GormStore) Rotate(ctx context.Context, oldID string, next *models.RefreshSession) error {
	at := rotationTime(next, g.now)
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshSession{}).
			Where("id = ? AND revoked = ?", oldID, false).
			Updates(map[string]interface{}{
				"revoked":     true,
				"revoked_at":  at,
				"replaced_by": next.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.RefreshSession{}).Where("id = ?", oldID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrSessionNotFound
			}
			return ErrSessionRevoked
		}
		return duplicateAsExists(tx.Create(next).Error)
	})
}

func duplicateAsExists(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSessionExists
	}
	return err
}

func (g *GormStore) ListActive(ctx context.Context, userID string, now time.Time) ([]models.RefreshSession, error) {
	var out []models.RefreshSession
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, now).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (g *GormStore) RevokeAllForUser(ctx context.Context, userID, exceptID string) error {
	q := g.db.WithContext(ctx).Model(&models.RefreshSession{}).
		Where("user_id = ? AND revoked = ?", userID, false)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	return q.Updates(map[string]interface{}{"revoked": true, "revoked_at": g.now()}).Error
}

func (g *GormStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res := g.db.WithContext(ctx).Where("expires_at <= ?", before).Delete(&models.RefreshSession{})
	return res.RowsAffected, res.Error
}
