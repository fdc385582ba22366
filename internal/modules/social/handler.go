package social

import (
	"github.com/gin-gonic/gin"
	"github.com/popolling/server/internal/middleware"
	"github.com/popolling/server/internal/modules/content/portfolio"
	"github.com/popolling/server/internal/pkg/pagination"
	"github.com/popolling/server/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/social")
	g.GET("/users/:id/followers", h.followers)
	g.GET("/users/:id/following", h.following)

	authed := g.Group("", authMW)
	authed.POST("/users/:id/follow", h.follow)
	authed.POST("/portfolios/:id/tags", h.setTags)
}

func (h *Handler) follow(c *gin.Context) {
	actor, _ := middleware.CurrentIdentity(c)
	following, err := h.svc.ToggleFollow(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"following": following})
}

func (h *Handler) followers(c *gin.Context) {
	items, pag, err := h.svc.Followers(c.Request.Context(), c.Param("id"), pagination.FromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) following(c *gin.Context) {
	items, pag, err := h.svc.Following(c.Request.Context(), c.Param("id"), pagination.FromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) setTags(c *gin.Context) {
	var dto portfolio.SetTagsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	tags, err := h.svc.SetPortfolioTags(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), dto.Tags)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"tags": tags})
}
