package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voicedeck/voicedeck/internal/app"
)

func TestConvertDatabaseConfig(t *testing.T) {
	cfg := &app.Config{}
	cfg.Database.Driver = "  SQLite "
	cfg.Database.Path = " ./data/app.sqlite "

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "sqlite", dbCfg.Driver)
	require.Equal(t, "./data/app.sqlite", dbCfg.Path)

	cfg = &app.Config{}
	cfg.Database.Driver = "postgresql"
	cfg.Database.Postgres = app.DBAuthConfig{Host: "db.internal", Port: 5432, Database: "voicedeck", Username: "svc", Password: "pw"}

	dbCfg = convertDatabaseConfig(cfg)
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db.internal", dbCfg.Host)
	require.Equal(t, 5432, dbCfg.Port)
	require.Equal(t, "voicedeck", dbCfg.Name)
}

func TestEnsureSecretsPresent(t *testing.T) {
	cfg := &app.Config{}
	cfg.Auth.Provider = "jwt"
	require.Error(t, ensureSecretsPresent(cfg))

	cfg.Auth.JWT.Secret = "super-secret"
	require.NoError(t, ensureSecretsPresent(cfg))

	cfg = &app.Config{}
	cfg.Auth.Provider = "oidc"
	require.Error(t, ensureSecretsPresent(cfg))

	cfg.Auth.OIDC.Issuer = "https://issuer.example.com"
	require.Error(t, ensureSecretsPresent(cfg))

	cfg.Auth.OIDC.ClientID = "voicedeck"
	require.NoError(t, ensureSecretsPresent(cfg))
}

func TestBuildIdentityProvider(t *testing.T) {
	cfg := &app.Config{}
	cfg.Auth.Provider = "jwt"
	cfg.Auth.JWT.Secret = "super-secret"

	provider, err := buildIdentityProvider(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, provider)

	cfg.Auth.Provider = "carrier-pigeon"
	_, err = buildIdentityProvider(context.Background(), cfg)
	require.Error(t, err)
}
