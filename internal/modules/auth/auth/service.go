package auth

import (
	"context"
	"errors"

	"github.com/popolling/server/internal/models"
	"github.com/popolling/server/internal/modules/auth/user"
	"github.com/popolling/server/internal/pkg/apperr"
	"github.com/popolling/server/internal/pkg/jwt"
	"github.com/popolling/server/internal/pkg/session"
	"go.uber.org/zap"
)

var errBadCredentials = apperr.Unauthenticated("Invalid email or password")

type Service struct {
	users    *user.Service
	sessions *session.Manager
	logger   *zap.Logger
}

func NewService(users *user.Service, sessions *session.Manager, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, sessions: sessions, logger: logger}
}

func identityOf(u *models.UserModel) jwt.Identity {
	return jwt.Identity{UserID: u.ID, Username: u.Username, Email: u.Email}
}

// Register creates the account and starts its first session.
func (s *Service) Register(ctx context.Context, dto *RegisterDTO, prov session.Provenance) (*models.UserModel, *session.Pair, error) {
	u, err := s.users.Create(ctx, dto.Username, dto.Email, dto.Password)
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.sessions.Issue(ctx, identityOf(u), prov)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID), zap.String("username", u.Username))
	return u, pair, nil
}

func (s *Service) Login(ctx context.Context, dto *LoginDTO, prov session.Provenance) (*models.UserModel, *session.Pair, error) {
	u, err := s.users.Authenticate(ctx, dto.Email, dto.Password)
	if errors.Is(err, user.ErrInvalidCredentials) {
		s.logger.Debug("login failed", zap.String("ip", prov.IP))
		return nil, nil, errBadCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.sessions.Issue(ctx, identityOf(u), prov)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Refresh rotates the presented refresh token. Every session failure is
// reported as Unauthenticated.
func (s *Service) Refresh(ctx context.Context, raw string, prov session.Provenance) (*session.Pair, error) {
	if raw == "" {
		return nil, apperr.Unauthenticated("Unauthorized")
	}
	pair, err := s.sessions.Rotate(ctx, raw, prov)
	if err != nil {
		if session.IsCredentialError(err) {
			s.logger.Debug("refresh rejected", zap.String("ip", prov.IP), zap.Error(err))
			return nil, apperr.Wrap(apperr.KindUnauthenticated, "Unauthorized", err)
		}
		return nil, err
	}
	return pair, nil
}

// Logout revokes the session behind raw. Failures are logged only.
func (s *Service) Logout(ctx context.Context, raw string) {
	if raw == "" {
		return
	}
	if err := s.sessions.Revoke(ctx, raw); err != nil {
		s.logger.Debug("logout revoke failed", zap.Error(err))
	}
}

func (s *Service) Me(ctx context.Context, userID string) (*models.UserModel, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) Sessions(ctx context.Context, userID string) ([]models.RefreshSession, error) {
	return s.sessions.ListSessions(ctx, userID)
}

func (s *Service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	err := s.sessions.RevokeSession(ctx, userID, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return apperr.NotFound("Session not found")
	}
	return err
}

func (s *Service) RevokeOthers(ctx context.Context, userID, keepID string) error {
	return s.sessions.RevokeOtherSessions(ctx, userID, keepID)
}

// CurrentSessionID resolves the session a refresh token belongs to.
func (s *Service) CurrentSessionID(raw string) string {
	if raw == "" {
		return ""
	}
	return s.sessions.SessionIDOf(raw)
}
