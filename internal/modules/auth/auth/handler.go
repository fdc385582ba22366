package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/popolling/server/internal/middleware"
	"github.com/popolling/server/internal/pkg/response"
)

type Handler struct {
	svc    *Service
	cookie middleware.CookieOptions
}

func NewHandler(svc *Service, cookie middleware.CookieOptions) *Handler {
	return &Handler{svc: svc, cookie: cookie}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.POST("/register", h.register)
	a.POST("/login", h.login)
	a.POST("/refresh", h.refresh)
	a.POST("/logout", h.logout)

	authed := a.Group("", authMW)
	authed.GET("/me", h.me)
	authed.GET("/sessions", h.listSessions)
	authed.DELETE("/sessions/:id", h.revokeSession)
	authed.POST("/sessions/revoke-others", h.revokeOthers)
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, pair, err := h.svc.Register(c.Request.Context(), &dto, middleware.ProvenanceOf(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetRefreshCookie(c, pair.RefreshToken, h.cookie)
	response.Created(c, authResponse{User: u, Access: pair.AccessToken})
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, pair, err := h.svc.Login(c.Request.Context(), &dto, middleware.ProvenanceOf(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetRefreshCookie(c, pair.RefreshToken, h.cookie)
	response.OK(c, authResponse{User: u, Access: pair.AccessToken})
}

func (h *Handler) refresh(c *gin.Context) {
	pair, err := h.svc.Refresh(c.Request.Context(), middleware.RefreshTokenFromCookie(c), middleware.ProvenanceOf(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetRefreshCookie(c, pair.RefreshToken, h.cookie)
	response.OK(c, refreshResponse{Access: pair.AccessToken})
}

func (h *Handler) logout(c *gin.Context) {
	h.svc.Logout(c.Request.Context(), middleware.RefreshTokenFromCookie(c))
	middleware.ClearRefreshCookie(c, h.cookie)
	response.OK(c, gin.H{"ok": true})
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.Me(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}

func (h *Handler) listSessions(c *gin.Context) {
	sessions, err := h.svc.Sessions(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toSessionViews(sessions, h.currentSessionID(c)))
}

func (h *Handler) revokeSession(c *gin.Context) {
	if err := h.svc.RevokeSession(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) revokeOthers(c *gin.Context) {
	keep := h.currentSessionID(c)
	if err := h.svc.RevokeOthers(c.Request.Context(), middleware.CurrentUserID(c), keep); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// currentSessionID prefers the session rotated by this request over the one
// named in the incoming cookie.
func (h *Handler) currentSessionID(c *gin.Context) string {
	if sid := middleware.CurrentSessionID(c); sid != "" {
		return sid
	}
	return h.svc.CurrentSessionID(middleware.RefreshTokenFromCookie(c))
}
