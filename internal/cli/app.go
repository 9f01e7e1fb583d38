package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/leca/ourstory/internal/auth"
	"github.com/leca/ourstory/internal/config"
	"github.com/leca/ourstory/internal/database"
	"github.com/leca/ourstory/internal/storage"
	"github.com/leca/ourstory/internal/timeline"
)

// app holds the wired services behind the HTTP server.
type app struct {
	cfg      *config.Config
	db       *database.SQLiteDB
	files    storage.Storage
	redis    *redis.Client
	memStore *auth.MemoryStore // nil when limiting is backed by Redis

	timeline *timeline.Service
	auth     *auth.Service
	limiter  *auth.Limiter
}

// openDatabase creates the parent directory of the database file if needed
// and opens it, running migrations.
func openDatabase(path string) (*database.SQLiteDB, error) {
	if dir := filepath.Dir(path); dir != "." && !strings.Contains(path, ":memory:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := database.NewSQLiteDB(path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return db, nil
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		return storage.NewS3(ctx, storage.S3Config{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			Bucket:         cfg.S3.Bucket,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
	default:
		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating upload directory: %w", err)
		}
		return storage.NewFileSystem(cfg.UploadDir), nil
	}
}

// newApp opens every backing resource named by cfg and seeds the admin.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	db, err := openDatabase(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a.db = db

	files, err := openStorage(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.files = files

	var (
		store    auth.Store
		denylist auth.Denylist
	)
	if cfg.UseRedis() {
		client, err := auth.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		store = auth.NewRedisStore(client, "ourstory:ratelimit:")
		denylist = auth.NewRedisDenylist(client)
	} else {
		a.memStore = auth.NewMemoryStore()
		store = a.memStore
		denylist = auth.NewMemoryDenylist()
	}

	var authOpts []auth.Option
	if cfg.SessionRevocation {
		authOpts = append(authOpts, auth.WithDenylist(denylist))
	}

	a.auth = auth.NewService(db, cfg.JWTSecret, authOpts...)
	a.limiter = auth.NewLimiter(store, auth.DefaultLoginAttempts, auth.DefaultLoginWindow)
	a.timeline = timeline.NewService(db, files, timeline.WithMaxFileSize(cfg.MaxFileSize))

	created, err := a.auth.SeedAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("seeding admin: %w", err)
	}
	if created {
		slog.Info("created admin user", "username", cfg.AdminUsername)
	}

	slog.Info("backends ready",
		"database", cfg.DBPath,
		"storage", fmt.Sprint(files),
		"rate_limit", cfg.RateLimitBackend,
		"session_revocation", a.auth.RevocationEnabled(),
	)
	return a, nil
}

// Close releases the database and Redis connections.
func (a *app) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
