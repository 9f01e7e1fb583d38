package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultJWTSecret is the insecure fallback signing secret.
const DefaultJWTSecret = "your-secret-key"

// Default admin seed credentials.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "changeme"
)

// Storage and rate limit backends.
const (
	StorageFilesystem = "filesystem"
	StorageS3         = "s3"

	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

type Config struct {
	Host          string
	Port          int
	Env           string
	LogLevel      string
	DBPath        string
	UploadDir     string
	MaxFileSize   int64
	JWTSecret     string
	CORSOrigin    string
	AdminUsername string
	AdminPassword string

	StorageBackend string
	S3             S3Config

	RateLimitBackend  string
	RedisURL          string
	SessionRevocation bool
	WriteRateLimit    int
	// TrustProxy takes the client address from forwarding headers. Only
	// safe behind a proxy that overwrites them.
	TrustProxy bool
}

// S3Config holds the object store settings used when StorageBackend is "s3".
type S3Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

var defaults = map[string]any{
	"HOST":                "0.0.0.0",
	"PORT":                3001,
	"ENV":                 "development",
	"LOG_LEVEL":           "info",
	"DATABASE_PATH":       "./data/db.sqlite",
	"UPLOAD_DIR":          "./uploads",
	"MAX_FILE_SIZE":       10485760,
	"JWT_SECRET":          DefaultJWTSecret,
	"CORS_ORIGIN":         "",
	"ADMIN_USERNAME":      DefaultAdminUsername,
	"ADMIN_PASSWORD":      DefaultAdminPassword,
	"STORAGE_BACKEND":     StorageFilesystem,
	"S3_ENDPOINT":         "",
	"S3_REGION":           "us-east-1",
	"S3_BUCKET":           "",
	"S3_ACCESS_KEY":       "",
	"S3_SECRET_KEY":       "",
	"S3_FORCE_PATH_STYLE": false,
	"RATE_LIMIT_BACKEND":  RateLimitMemory,
	"REDIS_URL":           "redis://localhost:6379/0",
	"SESSION_REVOCATION":  false,
	"WRITE_RATE_LIMIT":    120,
	"TRUST_PROXY":         false,
}

// Load reads configuration from the environment. Variables in envFile are
// loaded first without overriding ones already set; a missing file is fine.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	cfg := &Config{
		Host:          v.GetString("HOST"),
		Port:          v.GetInt("PORT"),
		Env:           strings.ToLower(v.GetString("ENV")),
		LogLevel:      v.GetString("LOG_LEVEL"),
		DBPath:        v.GetString("DATABASE_PATH"),
		UploadDir:     v.GetString("UPLOAD_DIR"),
		MaxFileSize:   v.GetInt64("MAX_FILE_SIZE"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		CORSOrigin:    v.GetString("CORS_ORIGIN"),
		AdminUsername: v.GetString("ADMIN_USERNAME"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),

		StorageBackend: strings.ToLower(v.GetString("STORAGE_BACKEND")),
		S3: S3Config{
			Endpoint:       v.GetString("S3_ENDPOINT"),
			Region:         v.GetString("S3_REGION"),
			Bucket:         v.GetString("S3_BUCKET"),
			AccessKey:      v.GetString("S3_ACCESS_KEY"),
			SecretKey:      v.GetString("S3_SECRET_KEY"),
			ForcePathStyle: v.GetBool("S3_FORCE_PATH_STYLE"),
		},

		RateLimitBackend:  strings.ToLower(v.GetString("RATE_LIMIT_BACKEND")),
		RedisURL:          v.GetString("REDIS_URL"),
		SessionRevocation: v.GetBool("SESSION_REVOCATION"),
		WriteRateLimit:    v.GetInt("WRITE_RATE_LIMIT"),
		TrustProxy:        v.GetBool("TRUST_PROXY"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, errors.New("MAX_FILE_SIZE must be positive"))
	}
	switch c.StorageBackend {
	case StorageFilesystem:
	case StorageS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when STORAGE_BACKEND=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	switch c.RateLimitBackend {
	case RateLimitMemory, RateLimitRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimitBackend))
	}
	if c.WriteRateLimit < 0 {
		errs = append(errs, errors.New("WRITE_RATE_LIMIT must not be negative"))
	}
	return errors.Join(errs...)
}

// ListenAddr is the host:port the server binds.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Production reports whether ENV is "production".
func (c *Config) Production() bool {
	return c.Env == "production"
}

// UseRedis reports whether the login limiter, and the revocation denylist
// when enabled, are shared through Redis.
func (c *Config) UseRedis() bool {
	return c.RateLimitBackend == RateLimitRedis
}

// SlogLevel parses LogLevel, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Warnings lists insecure settings worth logging at startup.
func (c *Config) Warnings() []string {
	var w []string
	if c.JWTSecret == DefaultJWTSecret {
		w = append(w, "JWT_SECRET is the built-in default; set a unique secret")
	}
	if c.AdminPassword == DefaultAdminPassword {
		w = append(w, "ADMIN_PASSWORD is the built-in default; change it")
	}
	return w
}
