package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/inventory"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 15*time.Second, cfg.AppReadTimeout)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "atomic", cfg.StockWriteMode)
	assert.True(t, cfg.ShellNameMatch)
	assert.True(t, cfg.AllowNegativeStock)
	assert.Equal(t, 3, cfg.MaxConflictRetries)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.CORSOrigins)
	assert.Equal(t, "5", cfg.Threshold().String())
	assert.Equal(t, 5*time.Minute, cfg.LowStockCheckInterval)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("STOCK_WRITE_MODE", "cas")
	t.Setenv("ALLOW_NEGATIVE_STOCK", "false")
	t.Setenv("MAX_CONFLICT_RETRIES", "7")
	t.Setenv("LOW_STOCK_THRESHOLD", "2.5")
	t.Setenv("CORS_ORIGINS", "https://shop.example")

	cfg, err := Load()
	require.NoError(t, err)

	opts := cfg.EngineOptions(slog.Default())
	assert.Equal(t, inventory.StockWriteCAS, opts.StockWriteMode)
	assert.False(t, opts.AllowNegativeStock)
	assert.True(t, opts.ShellNameMatch)
	assert.Equal(t, 7, opts.MaxConflictRetries)
	assert.NotNil(t, opts.Logger)
	assert.Equal(t, "2.5", cfg.Threshold().String())
	assert.Equal(t, []string{"https://shop.example"}, cfg.CORSOrigins)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{StoreDriver: DriverSQLite, StockWriteMode: "atomic", LowStockThreshold: "5", LogLevel: "info"}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"memory cas", func(c *Config) { c.StoreDriver = DriverMemory; c.StockWriteMode = "cas" }, true},
		{"unknown driver", func(c *Config) { c.StoreDriver = "mongo" }, false},
		{"unknown mode", func(c *Config) { c.StockWriteMode = "blind" }, false},
		{"redis atomic", func(c *Config) { c.StoreDriver = DriverRedis }, false},
		{"negative retries", func(c *Config) { c.MaxConflictRetries = -1 }, false},
		{"bad threshold", func(c *Config) { c.LowStockThreshold = "lots" }, false},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger := NewLogger(&Config{LogFormat: "json", LogLevel: "warn"})

	assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))
}
