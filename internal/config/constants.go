package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort      = 4000
	defaultEnv       = "development"
	defaultDBHost    = "127.0.0.1"
	defaultDBPort    = 3306
	defaultDBUser    = "root"
	defaultDBPass    = "password"
	defaultDBName    = "popolling"
	defaultDBCharset = "utf8mb4"
	defaultDBLoc     = "Local"

	defaultAccessSecret  = "dev-access-secret-change-me"
	defaultRefreshSecret = "dev-refresh-secret-change-me"
	defaultAccessTTL     = 15 * time.Minute
	defaultRefreshTTL    = 7 * 24 * time.Hour
	defaultSweepInterval = time.Hour

	defaultSessionStore  = SessionStoreDatabase
	defaultStorageDriver = StorageDriverLocal
	defaultUploadsDir    = "uploads"

	defaultRateLimitPerSecond = 20

	envPrefix = "POPOLLING_"
)

const (
	SessionStoreMemory   = "memory"
	SessionStoreDatabase = "database"
	SessionStoreRedis    = "redis"

	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)
