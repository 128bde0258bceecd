package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigs_FromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE", "postgres")
	t.Setenv("ESCROW_ACCOUNT", "vault")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("CACHE_DEFAULT_TTL", "30s")
	t.Setenv("VENUE_COINS", "USDC,DAI,WETH")
	t.Setenv("VENUE_PRICES", "1,1,2")

	require.NoError(t, LoadConfigs())

	cfg := AppConfigInstance
	assert.Equal(t, "prod", cfg.GeneralConfig.Env)
	assert.False(t, cfg.GeneralConfig.IsDev())
	assert.Equal(t, 9090, cfg.GeneralConfig.Port)
	assert.Equal(t, StoragePostgres, cfg.EngineConfig.Storage)
	assert.Equal(t, "vault", cfg.EngineConfig.EscrowAccount)
	assert.Equal(t, 6543, cfg.DatabaseConfig.Port)
	assert.Equal(t, 30*time.Second, cfg.CacheConfig.DefaultTTL)
	assert.Equal(t, []string{"USDC", "DAI", "WETH"}, cfg.VenueConfig.Coins)
	assert.Equal(t, []string{"1", "1", "2"}, cfg.VenueConfig.Prices)

	assert.Equal(t, 30*time.Second, GetCacheConfig().DefaultTTL)
}

func TestLoadConfigs_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown storage", env: map[string]string{"STORAGE": "sqlite"}},
		{name: "price per coin", env: map[string]string{"VENUE_COINS": "USDC,WETH", "VENUE_PRICES": "1"}},
		{name: "malformed port", env: map[string]string{"PORT": "eighty"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}
			assert.Error(t, LoadConfigs())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "secret", DBName: "pledges", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=pledges sslmode=disable", cfg.DSN())
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=postgres sslmode=disable", cfg.AdminDSN())
}
