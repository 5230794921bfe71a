package main

import (
	"github.com/trickwire/twentyeight/cmd/twentyeight/shared"
	"github.com/trickwire/twentyeight/internal/server"
)

// ServeCmd runs the game server.
type ServeCmd struct {
	Config    string `kong:"default='config.hcl',help='Path to HCL config file'"`
	Addr      string `kong:"help='Listen address, overrides config'"`
	Port      int    `kong:"help='Listen port, overrides config'"`
	Storage   string `kong:"help='Storage backend, overrides config (memory, sqlite, postgres)'"`
	LogFormat string `kong:"help='Log format, overrides config (text, json)'"`
	Debug     bool   `kong:"help='Enable debug logging'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.Storage != "" {
		cfg.Storage.Backend = c.Storage
	}
	if c.LogFormat != "" {
		cfg.Server.LogFormat = c.LogFormat
	}
	if c.Debug {
		cfg.Server.LogLevel = "debug"
	}

	logger := shared.SetupLogger(cfg.Server.LogLevel, cfg.Server.LogFormat)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx := shared.SetupSignalHandler(logger)
	return srv.Run(ctx)
}
