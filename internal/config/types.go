package config

import "time"

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Port           int
	Env            string
	DSN            string
	RedisURL       string
	AllowedOrigins []string
	Database       DatabaseRuntimeConfig
	Auth           AuthConfig
	Session        SessionConfig
	Storage        StorageConfig
	RateLimit      RateLimitConfig
	Paths          RuntimePathsConfig
}

type DatabaseRuntimeConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Charset  string
	Loc      string
	Params   map[string]string
}

type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	CookieSecure  bool
	BcryptCost    int
}

type SessionConfig struct {
	// Store selects the refresh session registry backend.
	Store         string
	SweepInterval time.Duration
}

type StorageConfig struct {
	Driver        string
	PublicBaseURL string
	S3            S3Options
}

type S3Options struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	CustomDomain    string
	PathStyleAccess bool
	Prefix          string
}

type RateLimitConfig struct {
	Enable    bool
	PerSecond int
}

type RuntimePathsConfig struct {
	Uploads string
}

type rawAppConfig struct {
	Port           int               `yaml:"port"`
	Env            string            `yaml:"env"`
	AllowedOrigins []string          `yaml:"allowed_origins"`
	Database       rawDatabaseConfig `yaml:"database"`
	Redis          rawRedisConfig    `yaml:"redis"`
	Auth           rawAuthConfig     `yaml:"auth"`
	Session        rawSessionConfig  `yaml:"session"`
	Storage        rawStorageConfig  `yaml:"storage"`
	RateLimit      rawRateLimit      `yaml:"rate_limit"`
	Paths          rawPathsConfig    `yaml:"paths"`
}

type rawDatabaseConfig struct {
	DSN      string            `yaml:"dsn"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	Name     string            `yaml:"name"`
	Charset  string            `yaml:"charset"`
	Loc      string            `yaml:"loc"`
	Params   map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	URL string `yaml:"url"`
}

type rawAuthConfig struct {
	AccessSecret  string   `yaml:"access_secret"`
	RefreshSecret string   `yaml:"refresh_secret"`
	AccessTTL     Duration `yaml:"access_ttl"`
	RefreshTTL    Duration `yaml:"refresh_ttl"`
	CookieSecure  *bool    `yaml:"cookie_secure"`
	BcryptCost    int      `yaml:"bcrypt_cost"`
}

type rawSessionConfig struct {
	Store         string   `yaml:"store"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

type rawStorageConfig struct {
	Driver        string       `yaml:"driver"`
	PublicBaseURL string       `yaml:"public_base_url"`
	S3            rawS3Options `yaml:"s3"`
}

type rawS3Options struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	CustomDomain    string `yaml:"custom_domain"`
	PathStyleAccess bool   `yaml:"path_style_access"`
	Prefix          string `yaml:"prefix"`
}

type rawRateLimit struct {
	Enable    *bool `yaml:"enable"`
	PerSecond int   `yaml:"per_second"`
}

type rawPathsConfig struct {
	Uploads string `yaml:"uploads"`
}
