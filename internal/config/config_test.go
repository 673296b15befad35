package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/tradejournal-backend/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, ":8080", cfg.Server.GRPCAddr)

	capital, err := cfg.Journal.Capital()
	require.NoError(t, err)
	assert.True(t, capital.Equal(decimal.NewFromInt(50000)))

	items, err := cfg.Journal.Items()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultChecklist(), items)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: postgres
database:
  host: db
  port: 6543
  user: journal
  password: secret
  dbname: trades
  sslmode: require
journal:
  starting_capital: "10000.50"
  checklist:
    - id: 1
      text: Trend aligned
      category: CONTEXT
    - id: 2
      text: Stop placed
      category: RISK
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "host=db port=6543 user=journal password=secret dbname=trades sslmode=require", cfg.Database.DSN())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())

	capital, err := cfg.Journal.Capital()
	require.NoError(t, err)
	assert.Equal(t, "10000.5", capital.String())

	items, err := cfg.Journal.Items()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.CategoryRisk, items[1].Category)
	assert.False(t, items[1].Status)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "store:\n  backend: postgres\n")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_PORT", "7000")
	t.Setenv("JWT_EXPIRE_HOURS", "2")
	t.Setenv("JOURNAL_TOKEN", "abc")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "localhost:7000", cfg.Redis.Addr())
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL())
	assert.Equal(t, "abc", cfg.Journal.Token)
}

func TestLoad_ZeroExpiryMeansNoExpiry(t *testing.T) {
	t.Setenv("JWT_EXPIRE_HOURS", "0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.JWT.TTL())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "Valid Defaults",
			mutate: func(*Config) {},
		},
		{
			name:   "Unknown Backend",
			mutate: func(c *Config) { c.Store.Backend = "sqlite" },
			errMsg: "store.backend",
		},
		{
			name:   "Unknown Mode",
			mutate: func(c *Config) { c.Server.Mode = "production" },
			errMsg: "server.mode",
		},
		{
			name:   "Empty Secret",
			mutate: func(c *Config) { c.JWT.Secret = "" },
			errMsg: "jwt.secret",
		},
		{
			name:   "Zero Expiry",
			mutate: func(c *Config) { c.JWT.ExpireHours = 0 },
		},
		{
			name:   "Negative Expiry",
			mutate: func(c *Config) { c.JWT.ExpireHours = -1 },
			errMsg: "jwt.expire_hours",
		},
		{
			name:   "Capital Not A Number",
			mutate: func(c *Config) { c.Journal.StartingCapital = "lots" },
			errMsg: "journal.starting_capital",
		},
		{
			name:   "Negative Capital",
			mutate: func(c *Config) { c.Journal.StartingCapital = "-1" },
			errMsg: "journal.starting_capital",
		},
		{
			name:   "Empty Checklist",
			mutate: func(c *Config) { c.Journal.Checklist = nil },
			errMsg: "journal.checklist",
		},
		{
			name: "Bad Category",
			mutate: func(c *Config) {
				c.Journal.Checklist = []ChecklistConfig{{ID: 1, Text: "x", Category: "MOOD"}}
			},
			errMsg: "journal.checklist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLogOptions(t *testing.T) {
	cfg := Default()
	cfg.Log.Dir = "/var/log/journal"

	opts := cfg.Log.Options()
	assert.Equal(t, "/var/log/journal", opts.Dir)
	assert.Equal(t, 10, opts.MaxSizeMB)
}
