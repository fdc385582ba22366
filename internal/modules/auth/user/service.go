package user

import (
	"context"
	"errors"
	"strings"

	"github.com/popolling/server/internal/models"
	"github.com/popolling/server/internal/pkg/apperr"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const conflictMessage = "Username or email already exists"

// dummyHash keeps login timing similar for unknown emails.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("popolling-dummy-password"), bcrypt.MinCost)

// Service is the credential store.
type Service struct {
	db   *gorm.DB
	cost int
}

func NewService(db *gorm.DB, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{db: db, cost: bcryptCost}
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	return &u, nil
}

// Create registers a new account. Username or email collisions are Conflict.
func (s *Service) Create(ctx context.Context, username, email, password string) (*models.UserModel, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.Conflict(conflictMessage)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}
	u := models.UserModel{Username: username, Email: email, Password: string(hash)}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, apperr.FromDB(err, conflictMessage)
	}
	return &u, nil
}

// Authenticate checks email and password. Any mismatch is ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.UserModel, error) {
	var u models.UserModel
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id string, dto *UpdateProfileDTO) (*models.UserModel, error) {
	updates := map[string]interface{}{}
	if dto.Bio != nil {
		updates["bio"] = strings.TrimSpace(*dto.Bio)
	}
	if dto.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*dto.Avatar)
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.UserModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Profile(ctx context.Context, id string) (*Profile, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := &Profile{ID: u.ID, Username: u.Username, Bio: u.Bio, Avatar: u.Avatar}
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.FollowModel{}).Where("following_id = ?", id).Count(&p.FollowerCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.FollowModel{}).Where("follower_id = ?", id).Count(&p.FollowingCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.PortfolioModel{}).Where("user_id = ?", id).Count(&p.PortfolioCount).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
