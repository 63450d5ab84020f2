// Package config loads runtime settings. Precedence, highest first:
// process environment, .env file, config.yaml, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverLocal = "local"
	DriverS3    = "s3"

	minJWTSecretLength = 16
)

type Config struct {
	Port   int    `mapstructure:"port"`
	DBPath string `mapstructure:"db_path"`

	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	MediaRoot      string `mapstructure:"media_root"`
	MediaURL       string `mapstructure:"media_url"`
	StorageDriver  string `mapstructure:"storage_driver"`
	MaxUploadBytes int    `mapstructure:"max_upload_bytes"`

	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	S3PublicURL string `mapstructure:"s3_public_url"`
	S3PathStyle bool   `mapstructure:"s3_path_style"`

	// CORSAllowedOrigins is a comma-separated list; empty disables CORS.
	CORSAllowedOrigins string `mapstructure:"cors_allowed_origins"`

	AuthRateLimitRPS   float64 `mapstructure:"auth_rate_limit_rps"`
	AuthRateLimitBurst int     `mapstructure:"auth_rate_limit_burst"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

var defaults = map[string]any{
	"port":                  8000,
	"db_path":               "data/recipe.db",
	"jwt_secret":            "",
	"token_ttl":             24 * time.Hour,
	"media_root":            "data/media",
	"media_url":             "/media",
	"storage_driver":        DriverLocal,
	"max_upload_bytes":      5 << 20,
	"s3_bucket":             "",
	"s3_region":             "us-east-1",
	"s3_endpoint":           "",
	"s3_access_key":         "",
	"s3_secret_key":         "",
	"s3_public_url":         "",
	"s3_path_style":         false,
	"cors_allowed_origins":  "",
	"auth_rate_limit_rps":   1.0,
	"auth_rate_limit_burst": 10,
	"log_level":             "info",
	"log_format":            "text",
}

// Options controls where Load looks for files. Zero values use the
// working directory.
type Options struct {
	EnvFile    string
	ConfigFile string
}

// Load reads the configuration and validates it.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: loading %s: %w", envFile, err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH is required"))
	}
	if len(c.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}

	switch c.StorageDriver {
	case DriverLocal:
		if c.MediaRoot == "" {
			errs = append(errs, errors.New("MEDIA_ROOT is required for the local storage driver"))
		}
	case DriverS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 storage driver"))
		}
		if (c.S3AccessKey == "") != (c.S3SecretKey == "") {
			errs = append(errs, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY must be set together"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverLocal, DriverS3, c.StorageDriver))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// AllowedOrigins splits CORSAllowedOrigins, dropping empty entries.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
