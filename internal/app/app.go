package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/popolling/server/internal/config"
	"github.com/popolling/server/internal/database"
	"github.com/popolling/server/internal/middleware"
	"github.com/popolling/server/internal/modules/gateway/gateway"
	"github.com/popolling/server/internal/modules/storage/file"
	pkgcron "github.com/popolling/server/internal/pkg/cron"
	"github.com/popolling/server/internal/pkg/jwt"
	pkgredis "github.com/popolling/server/internal/pkg/redis"
	"github.com/popolling/server/internal/pkg/session"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	db       *gorm.DB
	rc       *pkgredis.Client
	hub      *gateway.Hub
	sessions *session.Manager
	gate     *middleware.Gate
	storage  file.Storage
	logger   *zap.Logger
	cancel   context.CancelFunc
	sched    *pkgcron.Scheduler
}

// New initializes the application: DB → Redis → sessions → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	var rc *pkgredis.Client
	if cfg.RedisURL != "" {
		if rc, err = pkgredis.Connect(cfg.RedisURL); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	sessions, err := newSessionManager(cfg, db, rc, logger)
	if err != nil {
		return nil, err
	}
	storage, err := newStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	hub := gateway.NewHub(rc, logger.Named("gateway"), accessValidator(sessions))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	sched := pkgcron.New(logger.Named("cron"))
	registerCronJobs(sched, sessions, cfg, logger)
	sched.Start(ctx)

	app := &App{
		cfg:      cfg,
		router:   router,
		db:       db,
		rc:       rc,
		hub:      hub,
		sessions: sessions,
		gate:     middleware.NewGate(sessions, cookieOptions(cfg), logger.Named("auth")),
		storage:  storage,
		logger:   logger,
		cancel:   cancel,
		sched:    sched,
	}
	app.registerRoutes()
	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return a.cfg.Addr() }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background goroutines and closes connections.
func (a *App) Shutdown() {
	a.cancel()
	a.sched.Wait()
	if a.rc != nil {
		if err := a.rc.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newSessionManager(cfg *config.AppConfig, db *gorm.DB, rc *pkgredis.Client, logger *zap.Logger) (*session.Manager, error) {
	codec, err := jwt.NewCodec(jwt.Options{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}

	var store session.Store
	switch cfg.Session.Store {
	case config.SessionStoreMemory:
		store = session.NewMemoryStore()
	case config.SessionStoreRedis:
		if rc == nil {
			return nil, errors.New("session.store=redis requires redis.url")
		}
		store = session.NewRedisStore(rc.Raw())
	default:
		store = session.NewGormStore(db)
	}
	logger.Info("session registry ready", zap.String("store", cfg.Session.Store))
	return session.NewManager(codec, store, logger.Named("session")), nil
}

func newStorage(cfg *config.AppConfig) (file.Storage, error) {
	if cfg.Storage.Driver == config.StorageDriverS3 {
		return file.NewS3Storage(cfg.Storage.S3)
	}
	base := uploadsPath
	if cfg.Storage.PublicBaseURL != "" {
		base = cfg.Storage.PublicBaseURL + uploadsPath
	}
	return file.NewLocalStorage(cfg.Paths.Uploads, base)
}

func cookieOptions(cfg *config.AppConfig) middleware.CookieOptions {
	return middleware.CookieOptions{Secure: cfg.Auth.CookieSecure, MaxAge: cfg.Auth.RefreshTTL, Path: "/"}
}

// accessValidator lets socket.io clients authenticate with an access token.
// Refresh tokens are never accepted there.
func accessValidator(sessions *session.Manager) gateway.TokenValidator {
	return func(token string) (string, bool) {
		res := sessions.ValidateAccessOrRefresh(context.Background(), token, "", session.Provenance{})
		if res.Outcome != session.Authenticated {
			return "", false
		}
		return res.Identity.UserID, true
	}
}
