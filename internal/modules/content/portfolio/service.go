package portfolio

import (
	"context"
	"errors"
	"strings"

	"github.com/popolling/server/internal/models"
	"github.com/popolling/server/internal/pkg/apperr"
	"github.com/popolling/server/internal/pkg/markdown"
	"github.com/popolling/server/internal/pkg/pagination"
	"github.com/popolling/server/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const countColumns = "portfolios.*, " +
	"(SELECT COUNT(*) FROM likes WHERE likes.portfolio_id = portfolios.id) AS like_count, " +
	"(SELECT COUNT(*) FROM comments WHERE comments.portfolio_id = portfolios.id) AS comment_count"

var (
	errNotOwner   = apperr.Forbidden("You do not own this portfolio")
	errEmptyTitle = apperr.Validation("Title must not be empty")
)

type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

func (s *Service) Create(ctx context.Context, userID string, dto *CreatePortfolioDTO) (*models.PortfolioModel, error) {
	if strings.TrimSpace(dto.Title) == "" {
		return nil, errEmptyTitle
	}
	p := models.PortfolioModel{
		UserID:        userID,
		Title:         strings.TrimSpace(dto.Title),
		Description:   dto.Description,
		TechStack:     cleanList(dto.TechStack),
		Link:          strings.TrimSpace(dto.Link),
		FeedbackFocus: strings.TrimSpace(dto.FeedbackFocus),
		Images:        toImages(dto.Images),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		if len(dto.Tags) > 0 {
			return replaceTags(tx, &p, dto.Tags)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("portfolio created", zap.String("portfolio_id", p.ID), zap.String("user_id", userID))
	return s.load(ctx, p.ID)
}

// List returns one page of portfolios, optionally restricted to a tag.
func (s *Service) List(ctx context.Context, q pagination.Query, lq ListQuery) ([]models.PortfolioModel, response.Pagination, error) {
	base := s.db.WithContext(ctx).Model(&models.PortfolioModel{})
	if tag := normalizeTag(lq.Tag); tag != "" {
		base = base.Where("portfolios.id IN (?)",
			s.db.Table("portfolio_tags").
				Select("portfolio_tags.portfolio_id").
				Joins("JOIN tags ON tags.id = portfolio_tags.tag_id").
				Where("tags.name = ?", tag))
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, response.Pagination{}, err
	}

	order := "portfolios.created_at DESC"
	if lq.Sort == SortPopular {
		order = "portfolios.view_count DESC, portfolios.created_at DESC"
	}
	var items []models.PortfolioModel
	err := withAssociations(base.Session(&gorm.Session{})).
		Select(countColumns).
		Order(order).
		Offset(q.Offset()).Limit(q.Size).
		Find(&items).Error
	if err != nil {
		return nil, response.Pagination{}, err
	}
	return items, pagination.Meta(total, q), nil
}

// Get loads the full detail view and counts the visit.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&models.PortfolioModel{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("Portfolio not found")
	}

	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &Detail{Portfolio: p}
	if d.DescriptionHTML, err = markdown.Render(p.Description); err != nil {
		s.logger.Warn("render description", zap.String("portfolio_id", id), zap.Error(err))
	}
	if err := db.Where("portfolio_id = ?", id).Order("created_at DESC").Find(&d.Likes).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("User").Where("portfolio_id = ?", id).Order("created_at ASC").Find(&d.Comments).Error; err != nil {
		return nil, err
	}
	if err := db.Where("portfolio_id = ?", id).Order("created_at ASC").Find(&d.Votes).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.VoteModel{}).Where("portfolio_id = ?", id).
		Select("COALESCE(AVG(design), 0) AS design, COALESCE(AVG(tech), 0) AS tech, " +
			"COALESCE(AVG(impact), 0) AS impact, COUNT(*) AS count").
		Scan(&d.Averages).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, dto *UpdatePortfolioDTO) (*models.PortfolioModel, error) {
	if dto.Title != nil && strings.TrimSpace(*dto.Title) == "" {
		return nil, errEmptyTitle
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := requireOwner(tx, userID, id)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if dto.Title != nil {
			updates["title"] = strings.TrimSpace(*dto.Title)
		}
		if dto.Description != nil {
			updates["description"] = *dto.Description
		}
		if dto.Link != nil {
			updates["link"] = strings.TrimSpace(*dto.Link)
		}
		if dto.FeedbackFocus != nil {
			updates["feedback_focus"] = strings.TrimSpace(*dto.FeedbackFocus)
		}
		if dto.TechStack != nil {
			p.TechStack = cleanList(dto.TechStack)
			if err := tx.Model(p).Select("tech_stack").Updates(p).Error; err != nil {
				return err
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(p).Updates(updates).Error; err != nil {
				return err
			}
		}
		if dto.Images != nil {
			if err := tx.Where("portfolio_id = ?", id).Delete(&models.PortfolioImage{}).Error; err != nil {
				return err
			}
			images := toImages(dto.Images)
			for i := range images {
				images[i].PortfolioID = id
			}
			if len(images) > 0 {
				if err := tx.Create(&images).Error; err != nil {
					return err
				}
			}
		}
		if dto.Tags != nil {
			return replaceTags(tx, p, dto.Tags)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Delete removes the portfolio together with everything attached to it.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := requireOwner(tx, userID, id)
		if err != nil {
			return err
		}
		children := []interface{}{
			&models.PortfolioImage{},
			&models.LikeModel{},
			&models.CommentModel{},
			&models.VoteModel{},
			&models.BookmarkModel{},
			&models.CollaborationRequestModel{},
		}
		for _, child := range children {
			if err := tx.Where("portfolio_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(p).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(p).Error
	})
}

// SetTags replaces the tag set of a portfolio owned by userID.
func (s *Service) SetTags(ctx context.Context, userID, id string, names []string) ([]string, error) {
	var p *models.PortfolioModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if p, err = requireOwner(tx, userID, id); err != nil {
			return err
		}
		return replaceTags(tx, p, names)
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		out = append(out, t.Name)
	}
	return out, nil
}

// Lookup loads the owner and title of a portfolio.
func (s *Service) Lookup(ctx context.Context, id string) (*models.PortfolioModel, error) {
	var p models.PortfolioModel
	err := s.db.WithContext(ctx).Select("id", "user_id", "title").First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Portfolio not found")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) load(ctx context.Context, id string) (*models.PortfolioModel, error) {
	var p models.PortfolioModel
	err := withAssociations(s.db.WithContext(ctx).Model(&models.PortfolioModel{})).
		Select(countColumns).
		Where("portfolios.id = ?", id).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Portfolio not found")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func withAssociations(tx *gorm.DB) *gorm.DB {
	return tx.Preload("User").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort ASC") }).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") })
}

// requireOwner reports Forbidden both for a missing portfolio and for one
// owned by someone else.
func requireOwner(tx *gorm.DB, userID, id string) (*models.PortfolioModel, error) {
	var p models.PortfolioModel
	err := tx.Where("id = ? AND user_id = ?", id, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNotOwner
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func replaceTags(tx *gorm.DB, p *models.PortfolioModel, names []string) error {
	unique := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := normalizeTag(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	if len(unique) > MaxTags {
		return apperr.Validation("Too many tags")
	}

	tags := make([]models.TagModel, 0, len(unique))
	for _, name := range unique {
		var tag models.TagModel
		if err := tx.Where(models.TagModel{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return err
		}
		tags = append(tags, tag)
	}
	assoc := tx.Model(p).Association("Tags")
	if len(tags) == 0 {
		if err := assoc.Clear(); err != nil {
			return err
		}
	} else if err := assoc.Replace(tags); err != nil {
		return err
	}
	p.Tags = tags
	return nil
}

func toImages(urls []string) []models.PortfolioImage {
	images := make([]models.PortfolioImage, 0, len(urls))
	for i, u := range cleanList(urls) {
		images = append(images, models.PortfolioImage{URL: u, Sort: i})
	}
	return images
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func normalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
