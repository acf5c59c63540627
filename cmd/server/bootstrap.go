package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/voicedeck/voicedeck/internal/api"
	"github.com/voicedeck/voicedeck/internal/app"
	"github.com/voicedeck/voicedeck/internal/app/maintenance"
	iauth "github.com/voicedeck/voicedeck/internal/auth"
	"github.com/voicedeck/voicedeck/internal/cache"
	"github.com/voicedeck/voicedeck/internal/database"
	"github.com/voicedeck/voicedeck/internal/directory"
	"github.com/voicedeck/voicedeck/internal/services"
	"github.com/voicedeck/voicedeck/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Store     *cache.MemoryStore
	Provider  iauth.IdentityProvider
	Directory *directory.Directory
	Cleaner   *maintenance.Cleaner
	Router    *gin.Engine
}

// bootstrapRuntime initialises the database, cache, identity provider,
// services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Store = cache.NewMemoryStore(cfg.Cache.DefaultTTL, cfg.Cache.SweepInterval)

	stack.Provider, err = buildIdentityProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	auditSvc, err := services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	stack.Directory, err = directory.New(stack.DB, stack.Store, auditSvc, directory.Config{
		InvalidateOnUpdate: cfg.Directory.InvalidateOnUpdate,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise directory: %w", err)
	}

	if cfg.Maintenance.Enabled {
		keySvc, keyErr := services.NewAPIKeyService(stack.DB, stack.Store)
		if keyErr != nil {
			return nil, fmt.Errorf("initialise key service: %w", keyErr)
		}
		stack.Cleaner = maintenance.NewCleaner(keySvc, auditSvc, stack.Store,
			maintenance.WithKeyExpirySchedule(cfg.Maintenance.KeyExpirySchedule),
			maintenance.WithAuditSchedule(cfg.Maintenance.AuditSchedule),
			maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(stack.DB, stack.Store, stack.Provider, stack.Directory, cfg)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Store != nil {
		s.Store.Close()
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func buildIdentityProvider(ctx context.Context, cfg *app.Config) (iauth.IdentityProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Auth.Provider)) {
	case "", "jwt":
		provider, err := iauth.NewJWTProvider(iauth.JWTConfig{
			Secret: cfg.Auth.JWT.Secret,
			Issuer: cfg.Auth.JWT.Issuer,
		})
		if err != nil {
			return nil, fmt.Errorf("initialise jwt provider: %w", err)
		}
		return provider, nil
	case "oidc":
		provider, err := iauth.NewOIDCProvider(ctx, iauth.OIDCConfig{
			Issuer:   cfg.Auth.OIDC.Issuer,
			ClientID: cfg.Auth.OIDC.ClientID,
			Timeout:  cfg.Auth.OIDC.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("initialise oidc provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported auth provider %q", cfg.Auth.Provider)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
