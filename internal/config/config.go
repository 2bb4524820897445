package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Webhooks WebhookConfig  `yaml:"webhooks"`
	SES      SESConfig      `yaml:"ses"`
	Archive  ArchiveConfig  `yaml:"archive"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                int    `yaml:"port"`
	Host                string `yaml:"host"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// ReadTimeout returns the configured read timeout as a duration
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the configured write timeout as a duration
func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	MigrationsDir          string `yaml:"migrations_dir"`
}

// ConnMaxLifetime returns the pooled connection lifetime as a duration
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// RedisConfig holds the optional Redis used for the signing certificate cache.
// An empty URL disables caching.
type RedisConfig struct {
	URL                 string `yaml:"url"`
	CertCacheTTLMinutes int    `yaml:"cert_cache_ttl_minutes"`
}

// CertCacheTTL returns the certificate cache TTL as a duration
func (c RedisConfig) CertCacheTTL() time.Duration {
	return time.Duration(c.CertCacheTTLMinutes) * time.Minute
}

// WebhookConfig holds SNS webhook behaviour
type WebhookConfig struct {
	HTTPTimeoutSeconds       int   `yaml:"http_timeout_seconds"` // cert fetch + subscription confirm
	VerifySubscriptions      *bool `yaml:"verify_subscriptions"`
	ConfirmRetries           int   `yaml:"confirm_retries"`
	SoftBounceThreshold      int   `yaml:"soft_bounce_threshold"`
	TransientBounceThreshold int   `yaml:"transient_bounce_threshold"`
	MaxBodyBytes             int64 `yaml:"max_body_bytes"`
}

// ConfirmRetryCount returns the SubscribeURL retry budget. A negative
// confirm_retries disables retries.
func (c WebhookConfig) ConfirmRetryCount() int {
	if c.ConfirmRetries < 0 {
		return 0
	}
	return c.ConfirmRetries
}

// HTTPTimeout returns the outbound call timeout as a duration
func (c WebhookConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// VerifySubscriptionsEnabled reports whether SubscriptionConfirmation
// envelopes must carry a valid signature. Defaults to true.
func (c WebhookConfig) VerifySubscriptionsEnabled() bool {
	return c.VerifySubscriptions == nil || *c.VerifySubscriptions
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region             string `yaml:"region"`
	AccessKey          string `yaml:"access_key"`
	SecretKey          string `yaml:"secret_key"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	MirrorSuppressions bool   `yaml:"mirror_suppressions"` // push new suppressions to the SES account list
}

// Timeout returns the configured timeout as a duration
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ArchiveConfig holds the S3 raw notification archive. An empty bucket
// disables archiving.
type ArchiveConfig struct {
	Bucket     string `yaml:"bucket"`
	Region     string `yaml:"region"`
	Prefix     string `yaml:"prefix"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c ArchiveConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// APIConfig holds settings for the read-only suppression API
type APIConfig struct {
	Token          string   `yaml:"token"` // bearer token; empty leaves the API open
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig holds structured logger settings
type LoggingConfig struct {
	Level            string `yaml:"level"`
	DisableRedaction bool   `yaml:"disable_redaction"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 30
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 60
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 5
	}
	if cfg.Database.MigrationsDir == "" {
		cfg.Database.MigrationsDir = "migrations"
	}
	if cfg.Redis.CertCacheTTLMinutes == 0 {
		cfg.Redis.CertCacheTTLMinutes = 24 * 60
	}
	if cfg.Webhooks.HTTPTimeoutSeconds == 0 {
		cfg.Webhooks.HTTPTimeoutSeconds = 10
	}
	if cfg.Webhooks.ConfirmRetries == 0 {
		cfg.Webhooks.ConfirmRetries = 2
	}
	if cfg.Webhooks.SoftBounceThreshold == 0 {
		cfg.Webhooks.SoftBounceThreshold = 3
	}
	if cfg.Webhooks.TransientBounceThreshold == 0 {
		cfg.Webhooks.TransientBounceThreshold = 5
	}
	if cfg.Webhooks.MaxBodyBytes == 0 {
		cfg.Webhooks.MaxBodyBytes = 1 << 20
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = cfg.SES.Region
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "ses"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	// Defaults run after the overrides so derived values such as the
	// archive region follow env-provided settings.
	cfg, err := readFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		// Env-only deployments ship no config file.
		cfg = &Config{}
	} else if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("PAYLOAD_ARCHIVE_BUCKET"); v != "" {
		cfg.Archive.Bucket = v
	}
	if v := os.Getenv("PAYLOAD_ARCHIVE_REGION"); v != "" {
		cfg.Archive.Region = v
	}
	if v := os.Getenv("API_TOKEN"); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WEBHOOK_VERIFY_SUBSCRIPTIONS"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.Webhooks.VerifySubscriptions = &b
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}
