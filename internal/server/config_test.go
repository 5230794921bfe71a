package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigMissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultServerConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadServerConfigPartialFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.hcl")
	content := `
server {
  port      = 9000
  log_level = "debug"
}

storage {
  backend = "memory"
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	// Explicit values stick
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "memory", cfg.Storage.Backend)

	// Untouched settings fall back to defaults
	assert.Equal(t, "localhost", cfg.Server.Address)
	assert.Equal(t, "text", cfg.Server.LogFormat)
	assert.Equal(t, "default", cfg.Bots.Strategy)
	assert.Equal(t, 900, cfg.Bots.BidDelayMs)
	assert.Equal(t, 300, cfg.Sessions.SweepSeconds)
	assert.Equal(t, "twentyeight.rounds", cfg.Analytics.Topic)
	assert.False(t, cfg.Analytics.Enabled)
}

func TestLoadServerConfigFullFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.hcl")
	content := `
server {
  address    = "0.0.0.0"
  port       = 8028
  log_level  = "warn"
  log_format = "json"
}

storage {
  backend = "postgres"
  dsn     = "postgres://localhost/twentyeight"
}

bots {
  strategy       = "aggressive"
  bid_delay_ms   = 50
  trump_delay_ms = 60
  play_delay_ms  = 40
}

sessions {
  sweep_seconds       = 30
  lobby_idle_minutes  = 10
  active_idle_minutes = 20
  finished_idle_hours = 2
}

analytics {
  enabled = true
  brokers = ["kafka-1:9092", "kafka-2:9092"]
  topic   = "games.rounds"
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:8028", cfg.GetServerAddress())
	assert.Equal(t, "json", cfg.Server.LogFormat)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, "aggressive", cfg.Bots.Strategy)
	assert.Equal(t, 50, cfg.Bots.BidDelayMs)
	assert.Equal(t, 10, cfg.Sessions.LobbyIdleMinutes)
	assert.True(t, cfg.Analytics.Enabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Analytics.Brokers)
	assert.Equal(t, "games.rounds", cfg.Analytics.Topic)
}

func TestLoadServerConfigBadSyntax(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(path, []byte("server {"), 0o644))

	_, err := LoadServerConfig(path)
	require.Error(t, err)
}

func TestServerConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(cfg *ServerConfig)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *ServerConfig) {},
		},
		{
			name:    "port zero",
			mutate:  func(cfg *ServerConfig) { cfg.Server.Port = 0 },
			wantErr: "invalid port",
		},
		{
			name:    "port too large",
			mutate:  func(cfg *ServerConfig) { cfg.Server.Port = 70000 },
			wantErr: "invalid port",
		},
		{
			name:    "bad log format",
			mutate:  func(cfg *ServerConfig) { cfg.Server.LogFormat = "xml" },
			wantErr: "unknown log format",
		},
		{
			name:    "unknown backend",
			mutate:  func(cfg *ServerConfig) { cfg.Storage.Backend = "etcd" },
			wantErr: "unknown storage backend",
		},
		{
			name: "sqlite without path",
			mutate: func(cfg *ServerConfig) {
				cfg.Storage.Backend = "sqlite"
				cfg.Storage.Path = ""
			},
			wantErr: "needs a path",
		},
		{
			name: "postgres without dsn",
			mutate: func(cfg *ServerConfig) {
				cfg.Storage.Backend = "postgres"
			},
			wantErr: "needs a dsn",
		},
		{
			name:    "negative bot delay",
			mutate:  func(cfg *ServerConfig) { cfg.Bots.PlayDelayMs = -1 },
			wantErr: "must not be negative",
		},
		{
			name:    "sweep interval zero",
			mutate:  func(cfg *ServerConfig) { cfg.Sessions.SweepSeconds = 0 },
			wantErr: "sweep interval",
		},
		{
			name:    "idle threshold zero",
			mutate:  func(cfg *ServerConfig) { cfg.Sessions.LobbyIdleMinutes = 0 },
			wantErr: "idle thresholds",
		},
		{
			name: "analytics enabled without brokers",
			mutate: func(cfg *ServerConfig) {
				cfg.Analytics.Enabled = true
				cfg.Analytics.Brokers = nil
			},
			wantErr: "no brokers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultServerConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
