package interaction

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
	g := rg.Group("/interactions", authMW)
	g.GET("/bookmarks", h.bookmarks)
	g.POST("/:portfolioId/like", h.like)
	g.POST("/:portfolioId/comment", h.comment)
	g.GET("/:portfolioId/comments", h.comments)
	g.DELETE("/:portfolioId/comments/:commentId", h.deleteComment)
	g.POST("/:portfolioId/vote", h.vote)
	g.POST("/:portfolioId/bookmark", h.bookmark)
	g.POST("/:portfolioId/collaborate", h.collaborate)
}

func (h *Handler) like(c *gin.Context) {
	actor, _ := middleware.CurrentIdentity(c)
	liked, err := h.svc.ToggleLike(c.Request.Context(), actor, c.Param("portfolioId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"liked": liked})
}

func (h *Handler) bookmark(c *gin.Context) {
	actor, _ := middleware.CurrentIdentity(c)
	added, err := h.svc.ToggleBookmark(c.Request.Context(), actor, c.Param("portfolioId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"bookmarked": added})
}

func (h *Handler) collaborate(c *gin.Context) {
	actor, _ := middleware.CurrentIdentity(c)
	added, err := h.svc.ToggleCollaboration(c.Request.Context(), actor, c.Param("portfolioId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"requested": added})
}

func (h *Handler) comment(c *gin.Context) {
	var dto CommentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	actor, _ := middleware.CurrentIdentity(c)
	cm, err := h.svc.Comment(c.Request.Context(), actor, c.Param("portfolioId"), dto.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, portfolio.ToCommentView(cm))
}

func (h *Handler) comments(c *gin.Context) {
	items, pag, err := h.svc.Comments(c.Request.Context(), c.Param("portfolioId"), pagination.FromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]portfolio.CommentView, len(items))
	for i := range items {
		out[i] = portfolio.ToCommentView(&items[i])
	}
	response.Paged(c, out, pag)
}

func (h *Handler) deleteComment(c *gin.Context) {
	err := h.svc.DeleteComment(c.Request.Context(), middleware.CurrentUserID(c), c.Param("portfolioId"), c.Param("commentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) vote(c *gin.Context) {
	var dto VoteDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	actor, _ := middleware.CurrentIdentity(c)
	v, err := h.svc.Vote(c.Request.Context(), actor, c.Param("portfolioId"), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, v)
}

func (h *Handler) bookmarks(c *gin.Context) {
	items, pag, err := h.svc.Bookmarks(c.Request.Context(), middleware.CurrentUserID(c), pagination.FromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, items, pag)
}
