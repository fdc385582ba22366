package notification

import (
	"github.com/gin-gonic/gin"
	"github.com/popolling/server/internal/middleware"
	"github.com/popolling/server/internal/pkg/pagination"
	"github.com/popolling/server/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/notifications", authMW)
	g.GET("/me", h.list)
	g.GET("/unread-count", h.unreadCount)
	g.POST("/read-all", h.readAll)
	g.POST("/:id/read", h.read)
}

func (h *Handler) list(c *gin.Context) {
	items, meta, err := h.svc.List(c.Request.Context(), middleware.CurrentUserID(c), pagination.FromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, items, meta)
}

func (h *Handler) read(c *gin.Context) {
	n, err := h.svc.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Notification marked as read", "notification": n})
}

func (h *Handler) readAll(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"updated": n})
}

func (h *Handler) unreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"count": n})
}
