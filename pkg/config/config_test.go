package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessTTL())
	assert.Equal(t, 14*24*time.Hour, cfg.JWT.RefreshTTL())
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Server.IsDevelopment())
	assert.False(t, cfg.Server.TrustProxy)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("DATABASE_PATH", "/tmp/staff.db")
	t.Setenv("JWT_ACCESS_TTL_MINUTES", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://staff.example.com , ")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("SERVER_TRUST_PROXY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/staff.db", cfg.Database.DSN())
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL())
	assert.Equal(t, []string{"https://staff.example.com"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "redis:6379", cfg.Redis.Addr())
	assert.True(t, cfg.Server.TrustProxy)
}

func TestLoad_RejectsSharedSigningKey(t *testing.T) {
	t.Setenv("JWT_ACCESS_KEY", "same")
	t.Setenv("JWT_REFRESH_KEY", "same")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "oracle")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseConfig_PostgresDSN(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())
}
