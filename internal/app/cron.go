package app

import (
	"context"

	"github.com/popolling/server/internal/config"
	pkgcron "github.com/popolling/server/internal/pkg/cron"
	"github.com/popolling/server/internal/pkg/session"
	"go.uber.org/zap"
)

const jobSweepSessions = "sweep_refresh_sessions"

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, sessions *session.Manager, cfg *config.AppConfig, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:       jobSweepSessions,
		Interval:   cfg.Session.SweepInterval,
		RunOnStart: true,
		Fn: func(ctx context.Context) error {
			n, err := sessions.Sweep(ctx)
			if err != nil {
				cronLogger.Warn("sweep refresh sessions failed", zap.Error(err))
				return err
			}
			if n > 0 {
				cronLogger.Info("expired refresh sessions removed", zap.Int64("count", n))
			}
			return nil
		},
	})
}
