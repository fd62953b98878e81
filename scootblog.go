// Package scootblog is a blog content platform built with Go, Echo, and
// SQLite. It provides a public listing API with pagination and SEO metadata,
// an admin API for post management behind session auth, and a CSV batch
// importer that upserts posts by slug.
package scootblog

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// App is the central application. It wires together the store, cache,
// importer, handlers, and middleware.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Cache    *PostCache
	Norm     *Normalizer
	Importer *Importer
	Log      zerolog.Logger

	loginLimiter *LoginLimiter
	validate     *validator.Validate
	customRoutes []func(*App)
	staticDir    string
}

// New creates a new App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Log:       NewLogger(cfg),
		validate:  validator.New(),
		staticDir: "public",
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start initializes the database, cache, middleware, and routes, then starts
// the server. It blocks until the server stops.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}

	a.Log.Info().Str("addr", a.Config.Addr).Msg("starting server")
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Init validates configuration and opens the store without starting the
// server. Start calls it; the CLI import command uses it directly.
func (a *App) Init() error {
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("scootblog: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("scootblog: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath, a.Config.QueryTimeout)
	if err != nil {
		return fmt.Errorf("scootblog: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewPostCache(store, a.Config.PostCacheTTL)
	a.Norm = NewNormalizer(a.Config.URL, a.Log)
	a.Importer = NewImporter(store, a.Norm, a.Log)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Public surface
	e.Static("/public", a.staticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/api/blogs", a.handleListBlogs)
	e.GET("/api/blogs/:slug", a.handleGetBlog)

	// Admin auth
	e.POST("/admin/login", a.handleAdminLogin)
	e.POST("/admin/logout", handleAdminLogout)
	e.GET("/admin/session", a.handleAdminSession)

	// Admin surface, session-gated
	admin := e.Group("/admin", a.requireAdmin)
	admin.GET("/blogs", a.handleAdminList)
	admin.POST("/blogs", a.handleAdminCreate)
	admin.GET("/blogs/:id", a.handleAdminGet)
	admin.PUT("/blogs/:id", a.handleAdminUpdate)
	admin.DELETE("/blogs/:id", a.handleAdminDelete)
	admin.POST("/blogs/:id/toggle-status", a.handleToggleStatus)
	admin.POST("/blogs/bulk-delete", a.handleBulkDelete)
	admin.POST("/blogs/bulk-status", a.handleBulkStatus)
	admin.POST("/import", a.handleImportCSV)
	admin.GET("/import/status", a.handleImportStatus)
	admin.GET("/images", a.handleImageList)
	admin.POST("/images", a.handleImageUpload)
	admin.DELETE("/images/:filename", a.handleImageDelete)
}

// httpErrorHandler maps the store's error taxonomy and echo errors onto
// JSON responses.
func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	switch {
	case errors.Is(err, ErrNotFound):
		_ = c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, ErrUnavailable):
		a.Log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("storage unavailable")
		_ = c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage unavailable, try again later"})
	case errors.As(err, &he):
		switch msg := he.Message.(type) {
		case string:
			_ = c.JSON(he.Code, echo.Map{"error": msg})
		default:
			_ = c.JSON(he.Code, msg)
		}
	default:
		a.Log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("server error")
		_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
