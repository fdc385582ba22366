package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/popolling/server/internal/pkg/jwt"
	"github.com/popolling/server/internal/pkg/response"
	sessionpkg "github.com/popolling/server/internal/pkg/session"
	"go.uber.org/zap"
)

const (
	ContextKeyIdentity = "identity"
	ContextKeySID      = "session_id"
	// HeaderAccessToken carries a replacement access token after a
	// transparent refresh.
	HeaderAccessToken = "X-Access-Token"
)

// Identity is the authenticated caller attached to the request context.
type Identity = jwt.Identity

// Gate authenticates requests through the session manager. It never looks
// inside tokens itself.
type Gate struct {
	sessions *sessionpkg.Manager
	cookie   CookieOptions
	logger   *zap.Logger
}

func NewGate(sessions *sessionpkg.Manager, cookie CookieOptions, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{sessions: sessions, cookie: cookie, logger: logger}
}

// Auth rejects the request with 401 unless it carries a valid access token
// or a refresh token that can be rotated. Registry failures are 500. On rotation the new access token is
// returned in X-Access-Token and the refresh cookie is replaced.
func (g *Gate) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		res := g.sessions.ValidateAccessOrRefresh(c.Request.Context(), extractToken(c), RefreshTokenFromCookie(c), ProvenanceOf(c))
		switch res.Outcome {
		case sessionpkg.Authenticated:
			c.Set(ContextKeyIdentity, res.Identity)
		case sessionpkg.Rotated:
			c.Set(ContextKeyIdentity, res.Identity)
			c.Set(ContextKeySID, res.Pair.SessionID)
			c.Header(HeaderAccessToken, res.Pair.AccessToken)
			SetRefreshCookie(c, res.Pair.RefreshToken, g.cookie)
		default:
			if res.Err != nil && !sessionpkg.IsCredentialError(res.Err) {
				g.logger.Error("session registry failure",
					zap.String("path", c.Request.URL.Path),
					zap.Error(res.Err),
				)
				response.Error(c, res.Err)
				return
			}
			g.logRejection(c, res.Err)
			response.Unauthorized(c)
			return
		}
		c.Next()
	}
}

// OptionalAuth sets the identity when a valid access token is present but
// never rejects and never rotates.
func (g *Gate) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token != "" {
			res := g.sessions.ValidateAccessOrRefresh(c.Request.Context(), token, "", ProvenanceOf(c))
			if res.Outcome == sessionpkg.Authenticated {
				c.Set(ContextKeyIdentity, res.Identity)
			}
		}
		c.Next()
	}
}

func (g *Gate) logRejection(c *gin.Context, err error) {
	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.String("ip", c.ClientIP()),
		zap.Error(err),
	}
	if errors.Is(err, sessionpkg.ErrSessionRevoked) || errors.Is(err, sessionpkg.ErrTokenMismatch) {
		g.logger.Warn("auth rejected", fields...)
		return
	}
	g.logger.Debug("auth rejected", fields...)
}

// CurrentIdentity returns the authenticated identity, if any.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ContextKeyIdentity)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok && id.UserID != ""
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	id, _ := CurrentIdentity(c)
	return id.UserID
}

// CurrentSessionID returns the session id when this request rotated one.
func CurrentSessionID(c *gin.Context) string {
	return c.GetString(ContextKeySID)
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != ""
}

// ProvenanceOf describes the client making the request.
func ProvenanceOf(c *gin.Context) sessionpkg.Provenance {
	return sessionpkg.Provenance{UserAgent: c.Request.UserAgent(), IP: c.ClientIP()}
}

func extractToken(c *gin.Context) string {
	return NormalizeToken(c.GetHeader("Authorization"))
}

// NormalizeToken trims spaces and strips the Bearer scheme. Anything that is
// not a Bearer credential yields "".
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if len(token) < 7 || !strings.EqualFold(token[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(token[7:])
}
