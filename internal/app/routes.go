package app

import (
	"github.com/gin-gonic/gin"
	"github.com/popolling/server/internal/config"
	"github.com/popolling/server/internal/middleware"
	"github.com/popolling/server/internal/modules/auth/auth"
	"github.com/popolling/server/internal/modules/auth/user"
	"github.com/popolling/server/internal/modules/content/portfolio"
	"github.com/popolling/server/internal/modules/gateway/gateway"
	"github.com/popolling/server/internal/modules/health"
	"github.com/popolling/server/internal/modules/interaction"
	"github.com/popolling/server/internal/modules/notification"
	"github.com/popolling/server/internal/modules/social"
	"github.com/popolling/server/internal/modules/storage/file"
	"github.com/popolling/server/internal/pkg/response"
)

const (
	apiPrefix   = "/api/v1"
	uploadsPath = "/uploads"
)

func (a *App) registerRoutes() {
	r := a.router
	db := a.db
	authMW := a.gate.Auth()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	if a.cfg.Storage.Driver != config.StorageDriverS3 {
		r.Static(uploadsPath, a.cfg.Paths.Uploads)
	}
	health.RegisterRoutes(r, db, a.rc, a.sched, authMW)
	gateway.RegisterRoutes(&r.RouterGroup, a.hub)

	api := r.Group(apiPrefix)
	if a.rc != nil && a.cfg.RateLimit.Enable {
		api.Use(a.gate.OptionalAuth(), middleware.RateLimit(a.rc.Raw(), a.cfg.RateLimit.PerSecond, a.logger))
	}

	notifySvc := notification.NewService(db, a.hub, a.logger.Named("notification"))
	userSvc := user.NewService(db, a.cfg.Auth.BcryptCost)
	portfolioSvc := portfolio.NewService(db, a.logger.Named("portfolio"))

	auth.NewHandler(auth.NewService(userSvc, a.sessions, a.logger.Named("auth")), cookieOptions(a.cfg)).RegisterRoutes(api, authMW)
	user.NewHandler(userSvc).RegisterRoutes(api, authMW)
	file.NewHandler(a.storage, a.logger.Named("upload")).RegisterRoutes(api, authMW)
	portfolio.NewHandler(portfolioSvc).RegisterRoutes(api, authMW)
	interaction.NewHandler(interaction.NewService(db, portfolioSvc, notifySvc)).RegisterRoutes(api, authMW)
	social.NewHandler(social.NewService(db, portfolioSvc, notifySvc)).RegisterRoutes(api, authMW)
	notification.NewHandler(notifySvc).RegisterRoutes(api, authMW)
}
