package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FileWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
postgres:
  dsn: postgres://file
nats:
  url: nats://file:4222
matchmaking:
  sweep_interval: 30s
entitlements:
  default_max_players: 50
  premium_guilds: ["g-premium"]
  max_players:
    g-big: 500
`), 0o600))

	t.Setenv("NATS_URL", "nats://env:4222")
	t.Setenv("SWEEP_INTERVAL", "2m")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://file", cfg.Postgres.DSN)
	assert.Equal(t, "nats://env:4222", cfg.NATS.URL)
	assert.Equal(t, 2*time.Minute, cfg.Matchmaking.SweepInterval)
	assert.Equal(t, 50, cfg.Entitlements.DefaultMaxPlayers)
	assert.Equal(t, 500, cfg.Entitlements.MaxPlayers["g-big"])
	assert.Equal(t, []string{"g-premium"}, cfg.Entitlements.PremiumGuilds)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, 256, cfg.Matchmaking.OutboxBuffer)
}

func TestLoadConfig_EnvFallback(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	t.Run("requires database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("NATS_URL", "nats://env:4222")
		_, err := LoadConfig(missing)
		require.Error(t, err)
	})

	t.Run("rejects bad sweep interval", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://env")
		t.Setenv("NATS_URL", "nats://env:4222")
		t.Setenv("SWEEP_INTERVAL", "soon")
		_, err := LoadConfig(missing)
		require.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://env")
		t.Setenv("NATS_URL", "nats://env:4222")
		t.Setenv("SWEEP_INTERVAL", "")
		cfg, err := LoadConfig(missing)
		require.NoError(t, err)
		assert.Equal(t, time.Minute, cfg.Matchmaking.SweepInterval)
		assert.Equal(t, "lobby-bot", cfg.NATS.QueueGroup)
		assert.True(t, cfg.Observability.MetricsEnabled)
	})
}
