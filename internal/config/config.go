package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at configPath, applies POPOLLING_* environment
// overrides and validates the result. A missing default config file is not an
// error; the built-in defaults are used instead.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	raw := rawAppConfig{}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultConfigPath:
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := Default()
	applyRawAppConfig(&cfg, raw)
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.DSN = cfg.Database.DSNValue()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return &cfg, nil
}

// Default returns the built-in development configuration.
func Default() AppConfig {
	cfg := AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Host:     defaultDBHost,
			Port:     defaultDBPort,
			User:     defaultDBUser,
			Password: defaultDBPass,
			Name:     defaultDBName,
			Charset:  defaultDBCharset,
			Loc:      defaultDBLoc,
		},
		Auth: AuthConfig{
			AccessSecret:  defaultAccessSecret,
			RefreshSecret: defaultRefreshSecret,
			AccessTTL:     defaultAccessTTL,
			RefreshTTL:    defaultRefreshTTL,
			BcryptCost:    bcrypt.DefaultCost,
		},
		Session: SessionConfig{
			Store:         defaultSessionStore,
			SweepInterval: defaultSweepInterval,
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		RateLimit: RateLimitConfig{
			Enable:    true,
			PerSecond: defaultRateLimitPerSecond,
		},
		Paths: RuntimePathsConfig{
			Uploads: ResolveRuntimePath("", defaultUploadsDir),
		},
	}
	cfg.DSN = cfg.Database.DSNValue()
	return cfg
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = normalizeEnv(v)
	}
	if origins := normalizeOrigins(raw.AllowedOrigins); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}

	db := raw.Database
	setString(&cfg.Database.DSN, db.DSN)
	setString(&cfg.Database.Host, db.Host)
	setString(&cfg.Database.User, db.User)
	setString(&cfg.Database.Password, db.Password)
	setString(&cfg.Database.Name, db.Name)
	setString(&cfg.Database.Charset, db.Charset)
	setString(&cfg.Database.Loc, db.Loc)
	if db.Port != 0 {
		cfg.Database.Port = db.Port
	}
	if len(db.Params) > 0 {
		cfg.Database.Params = db.Params
	}

	cfg.RedisURL = normalizeRedisURL(raw.Redis.URL)

	a := raw.Auth
	setString(&cfg.Auth.AccessSecret, a.AccessSecret)
	setString(&cfg.Auth.RefreshSecret, a.RefreshSecret)
	if a.AccessTTL > 0 {
		cfg.Auth.AccessTTL = a.AccessTTL.Std()
	}
	if a.RefreshTTL > 0 {
		cfg.Auth.RefreshTTL = a.RefreshTTL.Std()
	}
	if a.BcryptCost > 0 {
		cfg.Auth.BcryptCost = a.BcryptCost
	}
	if a.CookieSecure != nil {
		cfg.Auth.CookieSecure = *a.CookieSecure
	} else {
		cfg.Auth.CookieSecure = !cfg.IsDev()
	}

	if v := strings.ToLower(strings.TrimSpace(raw.Session.Store)); v != "" {
		cfg.Session.Store = v
	}
	if raw.Session.SweepInterval > 0 {
		cfg.Session.SweepInterval = raw.Session.SweepInterval.Std()
	}

	s := raw.Storage
	if v := strings.ToLower(strings.TrimSpace(s.Driver)); v != "" {
		cfg.Storage.Driver = v
	}
	cfg.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(s.PublicBaseURL), "/")
	cfg.Storage.S3 = S3Options{
		Endpoint:        strings.TrimSpace(s.S3.Endpoint),
		Region:          strings.TrimSpace(s.S3.Region),
		Bucket:          strings.TrimSpace(s.S3.Bucket),
		AccessKeyID:     strings.TrimSpace(s.S3.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(s.S3.SecretAccessKey),
		CustomDomain:    strings.TrimRight(strings.TrimSpace(s.S3.CustomDomain), "/"),
		PathStyleAccess: s.S3.PathStyleAccess,
		Prefix:          strings.Trim(strings.TrimSpace(s.S3.Prefix), "/"),
	}

	if raw.RateLimit.Enable != nil {
		cfg.RateLimit.Enable = *raw.RateLimit.Enable
	}
	if raw.RateLimit.PerSecond > 0 {
		cfg.RateLimit.PerSecond = raw.RateLimit.PerSecond
	}

	if v := strings.TrimSpace(raw.Paths.Uploads); v != "" {
		cfg.Paths.Uploads = ResolveRuntimePath(v, defaultUploadsDir)
	}
}

// applyEnv overrides secrets and connection strings from the environment.
func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get("ACCESS_SECRET"); ok {
		cfg.Auth.AccessSecret = v
	}
	if v, ok := get("REFRESH_SECRET"); ok {
		cfg.Auth.RefreshSecret = v
	}
	if v, ok := get("DSN"); ok {
		cfg.Database.DSN = v
	}
	if v, ok := get("REDIS_URL"); ok {
		cfg.RedisURL = normalizeRedisURL(v)
	}
	if v, ok := get("SESSION_STORE"); ok {
		cfg.Session.Store = strings.ToLower(v)
	}
	if v, ok := get("ENV"); ok {
		cfg.Env = normalizeEnv(v)
	}
	if v, ok := get("ACCESS_TTL"); ok {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sACCESS_TTL: %w", envPrefix, err)
		}
		cfg.Auth.AccessTTL = d
	}
	if v, ok := get("REFRESH_TTL"); ok {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sREFRESH_TTL: %w", envPrefix, err)
		}
		cfg.Auth.RefreshTTL = d
	}
	return nil
}

func (c *AppConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", c.Port)
	}
	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		return errors.New("auth.access_secret and auth.refresh_secret are required")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return errors.New("auth.access_secret and auth.refresh_secret must differ")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("auth token lifetimes must be positive")
	}
	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreDatabase:
	case SessionStoreRedis:
		if c.RedisURL == "" {
			return errors.New("session.store=redis requires redis.url")
		}
	default:
		return fmt.Errorf("unknown session.store %q", c.Session.Store)
	}
	switch c.Storage.Driver {
	case StorageDriverLocal:
	case StorageDriverS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.driver=s3 requires storage.s3.bucket")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return c.Env == defaultEnv
}

func (c *AppConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func setString(dst *string, v string) {
	if t := strings.TrimSpace(v); t != "" {
		*dst = t
	}
}

func normalizeEnv(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", "production":
		return "production"
	case "test":
		return "test"
	default:
		return defaultEnv
	}
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if t := strings.TrimSpace(o); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func normalizeRedisURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}
