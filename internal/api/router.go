package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/voicedeck/voicedeck/internal/app"
	iauth "github.com/voicedeck/voicedeck/internal/auth"
	"github.com/voicedeck/voicedeck/internal/cache"
	"github.com/voicedeck/voicedeck/internal/directory"
	"github.com/voicedeck/voicedeck/internal/handlers"
	"github.com/voicedeck/voicedeck/internal/middleware"
	"github.com/voicedeck/voicedeck/internal/services"
	apperrors "github.com/voicedeck/voicedeck/pkg/errors"
	"github.com/voicedeck/voicedeck/pkg/response"
)

// NewRouter builds the Gin engine, wires middleware and registers core routes.
func NewRouter(db *gorm.DB, store cache.Store, provider iauth.IdentityProvider, dir *directory.Directory, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if store == nil {
		return nil, fmt.Errorf("cache store must be provided")
	}
	if provider == nil {
		return nil, fmt.Errorf("identity provider must be provided")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	if cfg.Server.RateLimit.Enabled {
		r.Use(middleware.RateLimit(cfg.Server.RateLimit.MaxRequests, cfg.Server.RateLimit.Window))
	}

	// Credential resolution and page-level access policy run on every request.
	r.Use(middleware.Identity(provider, dir, middleware.IdentityConfig{
		OnDirectoryError: cfg.Auth.OnDirectoryError,
	}))
	r.Use(middleware.Guard())

	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	keys, err := services.NewAPIKeyService(db, store)
	if err != nil {
		return nil, err
	}
	voices, err := services.NewVoiceService(db, store, audit)
	if err != nil {
		return nil, err
	}

	registerKeyRoutes(r, keys)
	registerUserRoutes(r, dir)
	registerAdminRoutes(r, dir, voices, audit)
	registerSystemRoutes(r, cfg)

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.URL.Path == "/api" {
			response.Error(c, apperrors.ErrNotFound)
			return
		}
		c.Status(http.StatusNotFound)
	})

	return r, nil
}

func registerSystemRoutes(r *gin.Engine, cfg *app.Config) {
	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}
}
