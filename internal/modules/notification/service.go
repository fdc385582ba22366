package notification

import (
	"context"
	"errors"

	"github.com/popolling/server/internal/models"
	"github.com/popolling/server/internal/pkg/apperr"
	"github.com/popolling/server/internal/pkg/pagination"
	"github.com/popolling/server/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Publisher pushes a realtime event to a user's open connections.
type Publisher interface {
	Push(userID, event string, payload interface{})
}

// Event is the realtime event name for new notifications.
const Event = "notification"

type Service struct {
	db     *gorm.DB
	pub    Publisher
	logger *zap.Logger
}

func NewService(db *gorm.DB, pub Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, pub: pub, logger: logger}
}

// Notify records a notification for recipientID unless the actor is the
// recipient. It is best effort: failures are logged and never returned.
func (s *Service) Notify(ctx context.Context, recipientID, actorID string, typ models.NotificationType, message string) {
	if recipientID == "" || recipientID == actorID {
		return
	}
	n := models.NotificationModel{UserID: recipientID, Type: typ, Message: message}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		s.logger.Warn("notify failed",
			zap.String("recipient", recipientID),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
		return
	}
	if s.pub != nil {
		s.pub.Push(recipientID, Event, n)
	}
}

// List returns userID's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, q pagination.Query) ([]models.NotificationModel, response.Pagination, error) {
	var out []models.NotificationModel
	query := s.db.WithContext(ctx).Model(&models.NotificationModel{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC")
	meta, err := pagination.Paginate(query, q, &out)
	return out, meta, err
}

// MarkRead flags one notification as read. Only its recipient may do so.
func (s *Service) MarkRead(ctx context.Context, userID, id string) (*models.NotificationModel, error) {
	var n models.NotificationModel
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Forbidden("Forbidden")
		}
		return nil, err
	}
	if n.UserID != userID {
		return nil, apperr.Forbidden("Forbidden")
	}
	if n.Read {
		return &n, nil
	}
	if err := s.db.WithContext(ctx).Model(&n).Update("is_read", true).Error; err != nil {
		return nil, err
	}
	n.Read = true
	return &n, nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.NotificationModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.NotificationModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}
