package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func missingEnvFile(t *testing.T) Options {
	t.Helper()
	return Options{EnvFile: filepath.Join(t.TempDir(), "absent.env")}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_DRIVER", "")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, DriverLocal, cfg.StorageDriver)
	assert.Equal(t, 5<<20, cfg.MaxUploadBytes)
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Empty(t, cfg.AllowedOrigins())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "9090")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("S3_BUCKET", "recipes")
	t.Setenv("S3_PATH_STYLE", "true")
	t.Setenv("AUTH_RATE_LIMIT_RPS", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 90*time.Minute, cfg.TokenTTL)
	assert.Equal(t, DriverS3, cfg.StorageDriver)
	assert.Equal(t, "recipes", cfg.S3Bucket)
	assert.True(t, cfg.S3PathStyle)
	assert.InDelta(t, 2.5, cfg.AuthRateLimitRPS, 1e-9)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("JWT_SECRET="+testSecret+"\nMEDIA_URL=/from-dotenv\n"), 0o600))
	yamlFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("port: 7000\nmedia_url: /from-yaml\nlog_level: debug\n"), 0o600))

	t.Setenv("PORT", "7100")
	// godotenv sets variables on the process; clear them afterwards.
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MEDIA_URL", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	require.NoError(t, os.Unsetenv("MEDIA_URL"))

	cfg, err := Load(Options{EnvFile: envFile, ConfigFile: yamlFile})
	require.NoError(t, err)

	assert.Equal(t, 7100, cfg.Port, "environment beats config file")
	assert.Equal(t, "/from-dotenv", cfg.MediaURL, ".env beats config file")
	assert.Equal(t, "debug", cfg.LogLevel, "config file beats defaults")
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	opts := missingEnvFile(t)
	opts.ConfigFile = filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Load(opts)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:           8000,
			DBPath:         "x.db",
			JWTSecret:      testSecret,
			TokenTTL:       time.Hour,
			MediaRoot:      "media",
			StorageDriver:  DriverLocal,
			MaxUploadBytes: 1024,
			LogFormat:      "text",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid local", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "JWT_SECRET"},
		{"bad port", func(c *Config) { c.Port = 0 }, "PORT"},
		{"unknown driver", func(c *Config) { c.StorageDriver = "gcs" }, "STORAGE_DRIVER"},
		{"s3 without bucket", func(c *Config) { c.StorageDriver = DriverS3 }, "S3_BUCKET"},
		{"s3 half credentials", func(c *Config) {
			c.StorageDriver = DriverS3
			c.S3Bucket = "b"
			c.S3AccessKey = "AKIA"
		}, "S3_SECRET_KEY"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"zero upload limit", func(c *Config) { c.MaxUploadBytes = 0 }, "MAX_UPLOAD_BYTES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
