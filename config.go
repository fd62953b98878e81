package scootblog

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SiteConfig holds all configuration for a scootblog instance.
type SiteConfig struct {
	Name        string // Site name (default "Blog")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and robots.txt
	Author      string // Default author for feeds

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/blog.db")
	Env          string // "development" or "production"
	LogLevel     string // zerolog level name (default "info")

	AdminPassword string // Required: admin login password
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	PageSize      int           // Public listing page size (default 6)
	QueryTimeout  time.Duration // Per-query time budget (default 5s)
	PostCacheTTL  time.Duration // Active-post cache TTL (default 5min)
	UploadsDir    string        // Upload sink (default "public/uploads")
	MaxUploadSize int64         // Max upload bytes (default 10MB)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 5 * time.Second
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.UploadsDir == "" {
		c.UploadsDir = "public/uploads"
	}
	if c.MaxUploadSize == 0 {
		c.MaxUploadSize = 10 << 20
	}
}

// LoadConfig builds a SiteConfig from environment variables, reading a .env
// file first if one exists.
func LoadConfig() SiteConfig {
	_ = godotenv.Load()

	cfg := SiteConfig{
		Name:        getEnv("SITE_NAME", ""),
		URL:         strings.TrimSuffix(getEnv("SITE_URL", ""), "/"),
		Description: getEnv("SITE_DESCRIPTION", ""),
		Author:      getEnv("SITE_AUTHOR", ""),

		Addr:         getEnv("ADDR", ""),
		DatabasePath: getEnv("DATABASE_PATH", ""),
		Env:          getEnv("APP_ENV", ""),
		LogLevel:     getEnv("LOG_LEVEL", ""),

		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		SessionSecret: getEnv("ADMIN_SESSION_SECRET", ""),
		CookieSecure:  strings.EqualFold(getEnv("COOKIE_SECURE", ""), "true"),

		PageSize:      getEnvAsInt("PAGE_SIZE", 0),
		QueryTimeout:  getEnvAsDuration("QUERY_TIMEOUT", 0),
		PostCacheTTL:  getEnvAsDuration("POST_CACHE_TTL", 0),
		UploadsDir:    getEnv("UPLOADS_DIR", ""),
		MaxUploadSize: getEnvAsInt64("MAX_UPLOAD_SIZE", 0),
	}
	cfg.setDefaults()
	return cfg
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes, before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := getEnv(key, "")
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsInt64(key string, fallback int64) int64 {
	s := getEnv(key, "")
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	s := getEnv(key, "")
	if s == "" {
		return fallback
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return v
}
