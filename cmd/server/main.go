// Command server runs the recipe API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/recipe-api/internal/config"
	sqliteRepo "github.com/sakif/recipe-api/internal/repository/sqlite"
	"github.com/sakif/recipe-api/internal/server"
	"github.com/sakif/recipe-api/internal/storage"
	"github.com/sakif/recipe-api/internal/storage/local"
	"github.com/sakif/recipe-api/internal/storage/s3store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.Options{})
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx := context.Background()

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	version, err := db.SchemaVersion(ctx)
	if err != nil {
		db.Close()
		return err
	}
	logger.Info("database ready",
		slog.String("path", cfg.DBPath),
		slog.Int64("schema_version", version),
	)

	images, err := newImageStore(ctx, cfg)
	if err != nil {
		db.Close()
		return err
	}

	srv, err := server.New(server.Config{
		Addr:               cfg.Addr(),
		JWTSecret:          cfg.JWTSecret,
		TokenTTL:           cfg.TokenTTL,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		MediaPath:          mediaPath(cfg.MediaURL),
		AllowedOrigins:     cfg.AllowedOrigins(),
		AuthRateLimitRPS:   cfg.AuthRateLimitRPS,
		AuthRateLimitBurst: cfg.AuthRateLimitBurst,
	}, db, images, logger)
	if err != nil {
		db.Close()
		return err
	}
	return srv.Start(ctx)
}

func newImageStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverS3:
		store, err := s3store.New(ctx, s3store.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := local.New(cfg.MediaRoot, cfg.MediaURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// mediaPath extracts the path component of MEDIA_URL, which may be a bare
// path ("/media") or an absolute URL.
func mediaPath(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err != nil || u.Path == "" {
		return "/media"
	}
	return u.Path
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
