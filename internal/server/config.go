package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server    ServerSettings     `hcl:"server,block"`
	Storage   *StorageSettings   `hcl:"storage,block"`
	Bots      *BotSettings       `hcl:"bots,block"`
	Sessions  *SessionSettings   `hcl:"sessions,block"`
	Analytics *AnalyticsSettings `hcl:"analytics,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address   string `hcl:"address,optional"`
	Port      int    `hcl:"port,optional"`
	LogLevel  string `hcl:"log_level,optional"`
	LogFormat string `hcl:"log_format,optional"` // text or json
}

// StorageSettings selects and configures the persistence backend
type StorageSettings struct {
	Backend string `hcl:"backend,optional"` // memory, sqlite or postgres
	Path    string `hcl:"path,optional"`    // sqlite database file
	DSN     string `hcl:"dsn,optional"`     // postgres connection string
}

// BotSettings tunes the bot driver. Delays are what make bot play feel
// like play instead of a flicker.
type BotSettings struct {
	Strategy     string `hcl:"strategy,optional"`
	BidDelayMs   int    `hcl:"bid_delay_ms,optional"`
	TrumpDelayMs int    `hcl:"trump_delay_ms,optional"`
	PlayDelayMs  int    `hcl:"play_delay_ms,optional"`
}

// SessionSettings controls the idle sweep. A session's age is measured
// from its last accepted mutation.
type SessionSettings struct {
	SweepSeconds      int `hcl:"sweep_seconds,optional"`
	LobbyIdleMinutes  int `hcl:"lobby_idle_minutes,optional"`
	ActiveIdleMinutes int `hcl:"active_idle_minutes,optional"`
	FinishedIdleHours int `hcl:"finished_idle_hours,optional"`
}

// AnalyticsSettings configures the Kafka round publisher. Disabled by
// default; with no brokers the server runs a no-op publisher.
type AnalyticsSettings struct {
	Enabled bool     `hcl:"enabled,optional"`
	Brokers []string `hcl:"brokers,optional"`
	Topic   string   `hcl:"topic,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:   "localhost",
			Port:      8028,
			LogLevel:  "info",
			LogFormat: "text",
		},
		Storage: &StorageSettings{
			Backend: "sqlite",
			Path:    "twentyeight.db",
		},
		Bots: &BotSettings{
			Strategy:     "default",
			BidDelayMs:   900,
			TrumpDelayMs: 1200,
			PlayDelayMs:  700,
		},
		Sessions: &SessionSettings{
			SweepSeconds:      300,
			LobbyIdleMinutes:  60,
			ActiveIdleMinutes: 120,
			FinishedIdleHours: 24,
		},
		Analytics: &AnalyticsSettings{
			Topic: "twentyeight.rounds",
		},
	}
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	defaults := DefaultServerConfig()
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Server.LogFormat == "" {
		config.Server.LogFormat = defaults.Server.LogFormat
	}

	if config.Storage == nil {
		config.Storage = defaults.Storage
	} else {
		if config.Storage.Backend == "" {
			config.Storage.Backend = defaults.Storage.Backend
		}
		if config.Storage.Backend == "sqlite" && config.Storage.Path == "" {
			config.Storage.Path = defaults.Storage.Path
		}
	}

	if config.Bots == nil {
		config.Bots = defaults.Bots
	} else {
		if config.Bots.Strategy == "" {
			config.Bots.Strategy = defaults.Bots.Strategy
		}
		if config.Bots.BidDelayMs == 0 {
			config.Bots.BidDelayMs = defaults.Bots.BidDelayMs
		}
		if config.Bots.TrumpDelayMs == 0 {
			config.Bots.TrumpDelayMs = defaults.Bots.TrumpDelayMs
		}
		if config.Bots.PlayDelayMs == 0 {
			config.Bots.PlayDelayMs = defaults.Bots.PlayDelayMs
		}
	}

	if config.Sessions == nil {
		config.Sessions = defaults.Sessions
	} else {
		if config.Sessions.SweepSeconds == 0 {
			config.Sessions.SweepSeconds = defaults.Sessions.SweepSeconds
		}
		if config.Sessions.LobbyIdleMinutes == 0 {
			config.Sessions.LobbyIdleMinutes = defaults.Sessions.LobbyIdleMinutes
		}
		if config.Sessions.ActiveIdleMinutes == 0 {
			config.Sessions.ActiveIdleMinutes = defaults.Sessions.ActiveIdleMinutes
		}
		if config.Sessions.FinishedIdleHours == 0 {
			config.Sessions.FinishedIdleHours = defaults.Sessions.FinishedIdleHours
		}
	}

	if config.Analytics == nil {
		config.Analytics = defaults.Analytics
	} else if config.Analytics.Topic == "" {
		config.Analytics.Topic = defaults.Analytics.Topic
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch c.Server.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.Server.LogFormat)
	}

	switch c.Storage.Backend {
	case "memory", "mem", "sqlite", "sqlite3", "postgres", "postgresql", "pg":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Storage.Backend {
	case "sqlite", "sqlite3":
		if c.Storage.Path == "" {
			return fmt.Errorf("sqlite backend needs a path")
		}
	case "postgres", "postgresql", "pg":
		if c.Storage.DSN == "" {
			return fmt.Errorf("postgres backend needs a dsn")
		}
	}

	if c.Bots.BidDelayMs < 0 || c.Bots.TrumpDelayMs < 0 || c.Bots.PlayDelayMs < 0 {
		return fmt.Errorf("bot delays must not be negative")
	}

	if c.Sessions.SweepSeconds < 1 {
		return fmt.Errorf("sweep interval must be at least one second")
	}
	if c.Sessions.LobbyIdleMinutes < 1 || c.Sessions.ActiveIdleMinutes < 1 || c.Sessions.FinishedIdleHours < 1 {
		return fmt.Errorf("idle thresholds must be positive")
	}

	if c.Analytics.Enabled && len(c.Analytics.Brokers) == 0 {
		return fmt.Errorf("analytics enabled but no brokers configured")
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
