package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/popolling/server/internal/models"
	"github.com/popolling/server/internal/modules/content/portfolio"
	"github.com/popolling/server/internal/pkg/apperr"
	"github.com/popolling/server/internal/pkg/jwt"
	"github.com/popolling/server/internal/pkg/pagination"
	"github.com/popolling/server/internal/pkg/response"
	"github.com/popolling/server/internal/pkg/toggle"
	"gorm.io/gorm"
)

type Notifier interface {
	Notify(ctx context.Context, recipientID, actorID string, typ models.NotificationType, message string)
}

type Service struct {
	db         *gorm.DB
	portfolios *portfolio.Service
	notifier   Notifier
}

func NewService(db *gorm.DB, portfolios *portfolio.Service, notifier Notifier) *Service {
	return &Service{db: db, portfolios: portfolios, notifier: notifier}
}

// ToggleFollow follows or unfollows targetID and reports whether actor
// follows them afterwards.
func (s *Service) ToggleFollow(ctx context.Context, actor jwt.Identity, targetID string) (bool, error) {
	if actor.UserID == targetID {
		return false, apperr.Validation("You cannot follow yourself")
	}
	var target models.UserModel
	err := s.db.WithContext(ctx).Select("id").First(&target, "id = ?", targetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, apperr.NotFound("User not found")
	}
	if err != nil {
		return false, err
	}

	added, err := toggle.Pair(ctx, s.db, &models.FollowModel{FollowerID: actor.UserID, FollowingID: targetID},
		"follower_id = ? AND following_id = ?", actor.UserID, targetID)
	if err != nil {
		return false, err
	}
	if added && s.notifier != nil {
		s.notifier.Notify(ctx, targetID, actor.UserID, models.NotificationFollow, fmt.Sprintf("%s started following you", actor.Username))
	}
	return added, nil
}

// Followers lists who follows userID, newest first.
func (s *Service) Followers(ctx context.Context, userID string, q pagination.Query) ([]models.UserBrief, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.FollowModel{}).
		Preload("Follower").
		Where("following_id = ?", userID).
		Order("created_at DESC")
	var edges []models.FollowModel
	pag, err := pagination.Paginate(tx, q, &edges)
	if err != nil {
		return nil, pag, err
	}
	out := make([]models.UserBrief, 0, len(edges))
	for _, e := range edges {
		if e.Follower != nil {
			out = append(out, e.Follower.Brief())
		}
	}
	return out, pag, nil
}

// Following lists who userID follows, newest first.
func (s *Service) Following(ctx context.Context, userID string, q pagination.Query) ([]models.UserBrief, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.FollowModel{}).
		Preload("Following").
		Where("follower_id = ?", userID).
		Order("created_at DESC")
	var edges []models.FollowModel
	pag, err := pagination.Paginate(tx, q, &edges)
	if err != nil {
		return nil, pag, err
	}
	out := make([]models.UserBrief, 0, len(edges))
	for _, e := range edges {
		if e.Following != nil {
			out = append(out, e.Following.Brief())
		}
	}
	return out, pag, nil
}

func (s *Service) SetPortfolioTags(ctx context.Context, userID, portfolioID string, tags []string) ([]string, error) {
	return s.portfolios.SetTags(ctx, userID, portfolioID, tags)
}
