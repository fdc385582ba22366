package interaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/popolling/server/internal/models"
	"github.com/popolling/server/internal/modules/content/portfolio"
	"github.com/popolling/server/internal/pkg/apperr"
	"github.com/popolling/server/internal/pkg/jwt"
	"github.com/popolling/server/internal/pkg/pagination"
	"github.com/popolling/server/internal/pkg/response"
	"github.com/popolling/server/internal/pkg/toggle"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db         *gorm.DB
	portfolios *portfolio.Service
	notifier   Notifier
}

func NewService(db *gorm.DB, portfolios *portfolio.Service, notifier Notifier) *Service {
	return &Service{db: db, portfolios: portfolios, notifier: notifier}
}

func (s *Service) notify(ctx context.Context, p *models.PortfolioModel, actor jwt.Identity, typ models.NotificationType, verb string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, p.UserID, actor.UserID, typ, fmt.Sprintf("%s %s your portfolio %q", actor.Username, verb, p.Title))
}

// ToggleLike likes or unlikes a portfolio and reports whether it is liked now.
func (s *Service) ToggleLike(ctx context.Context, actor jwt.Identity, portfolioID string) (bool, error) {
	p, err := s.portfolios.Lookup(ctx, portfolioID)
	if err != nil {
		return false, err
	}
	added, err := toggle.Pair(ctx, s.db, &models.LikeModel{PortfolioID: p.ID, UserID: actor.UserID},
		"portfolio_id = ? AND user_id = ?", p.ID, actor.UserID)
	if err != nil {
		return false, err
	}
	if added {
		s.notify(ctx, p, actor, models.NotificationLike, "liked")
	}
	return added, nil
}

func (s *Service) ToggleBookmark(ctx context.Context, actor jwt.Identity, portfolioID string) (bool, error) {
	p, err := s.portfolios.Lookup(ctx, portfolioID)
	if err != nil {
		return false, err
	}
	added, err := toggle.Pair(ctx, s.db, &models.BookmarkModel{PortfolioID: p.ID, UserID: actor.UserID},
		"portfolio_id = ? AND user_id = ?", p.ID, actor.UserID)
	if err != nil {
		return false, err
	}
	if added {
		s.notify(ctx, p, actor, models.NotificationBookmark, "bookmarked")
	}
	return added, nil
}

func (s *Service) ToggleCollaboration(ctx context.Context, actor jwt.Identity, portfolioID string) (bool, error) {
	p, err := s.portfolios.Lookup(ctx, portfolioID)
	if err != nil {
		return false, err
	}
	added, err := toggle.Pair(ctx, s.db, &models.CollaborationRequestModel{PortfolioID: p.ID, UserID: actor.UserID},
		"portfolio_id = ? AND user_id = ?", p.ID, actor.UserID)
	if err != nil {
		return false, err
	}
	if added {
		s.notify(ctx, p, actor, models.NotificationCollaborate, "wants to collaborate on")
	}
	return added, nil
}

func (s *Service) Comment(ctx context.Context, actor jwt.Identity, portfolioID, content string) (*models.CommentModel, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("Comment must not be empty")
	}
	p, err := s.portfolios.Lookup(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	c := models.CommentModel{PortfolioID: p.ID, UserID: actor.UserID, Content: content}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Preload("User").First(&c, "id = ?", c.ID).Error; err != nil {
		return nil, err
	}
	s.notify(ctx, p, actor, models.NotificationComment, "commented on")
	return &c, nil
}

// Comments lists a portfolio's comments, oldest first.
func (s *Service) Comments(ctx context.Context, portfolioID string, q pagination.Query) ([]models.CommentModel, response.Pagination, error) {
	if _, err := s.portfolios.Lookup(ctx, portfolioID); err != nil {
		return nil, response.Pagination{}, err
	}
	tx := s.db.WithContext(ctx).Model(&models.CommentModel{}).
		Preload("User").
		Where("portfolio_id = ?", portfolioID).
		Order("created_at ASC")
	var items []models.CommentModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

// DeleteComment removes a comment written by userID. Anything else is
// Forbidden, including a comment that does not exist.
func (s *Service) DeleteComment(ctx context.Context, userID, portfolioID, commentID string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND portfolio_id = ? AND user_id = ?", commentID, portfolioID, userID).
		Delete(&models.CommentModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Forbidden("You can only delete your own comments")
	}
	return nil
}

// Vote records or replaces the caller's scores for a portfolio.
func (s *Service) Vote(ctx context.Context, actor jwt.Identity, portfolioID string, dto *VoteDTO) (*models.VoteModel, error) {
	p, err := s.portfolios.Lookup(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	v := models.VoteModel{PortfolioID: p.ID, UserID: actor.UserID, Design: *dto.Design, Tech: *dto.Tech, Impact: *dto.Impact}
	db := s.db.WithContext(ctx)
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "portfolio_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"design", "tech", "impact", "updated_at"}),
	}).Create(&v).Error
	if err != nil {
		return nil, err
	}
	// On conflict the stored row keeps its original id.
	if err := db.Where("portfolio_id = ? AND user_id = ?", p.ID, actor.UserID).First(&v).Error; err != nil {
		return nil, err
	}
	s.notify(ctx, p, actor, models.NotificationVote, "rated")
	return &v, nil
}

// Bookmarks lists the portfolios userID bookmarked, newest first.
func (s *Service) Bookmarks(ctx context.Context, userID string, q pagination.Query) ([]models.BookmarkModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.BookmarkModel{}).
		Preload("Portfolio").
		Preload("Portfolio.User").
		Preload("Portfolio.Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	var items []models.BookmarkModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}
