package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/feltengine/felt/internal/config"
	"github.com/feltengine/felt/internal/metrics"
	"github.com/feltengine/felt/internal/server"
	"github.com/feltengine/felt/internal/tournament"
)

// ServerCmd runs the tournament server.
type ServerCmd struct {
	Config        string `kong:"default='felt.hcl',help='Path to the HCL configuration file'"`
	Addr          string `kong:"help='Listen address, overrides the config file'"`
	Port          int    `kong:"help='Listen port, overrides the config file'"`
	AdminPassword string `kong:"help='Admin password, overrides the config file'"`
	Debug         bool   `kong:"help='Enable debug logging'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.AdminPassword != "" {
		cfg.Server.AdminPassword = c.AdminPassword
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg.Server.LogLevel, c.Debug)
	logger.Info("starting felt",
		"version", version,
		"addr", cfg.ListenAddress(),
		"blinds", fmt.Sprintf("%d/%d", cfg.Tournament.SmallBlind, cfg.Tournament.BigBlind),
		"starting_chips", cfg.Tournament.StartingChips,
		"action_timeout", cfg.Tournament.ActionTimeout())

	m := metrics.New()
	coord := tournament.New(cfg.Tournament, logger, tournament.WithMetrics(m))
	srv := server.New(cfg, logger, coord, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

func setupLogger(level string, debug bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
		return logger
	}
	if parsed, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(parsed)
	}
	return logger
}
