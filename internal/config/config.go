// Package config loads the tournament server configuration from an HCL
// file, applying defaults for anything missing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration.
type Config struct {
	Server     ServerSettings
	Tournament TournamentSettings
}

// ServerSettings contains network-level configuration.
type ServerSettings struct {
	Address       string
	Port          int
	LogLevel      string
	AdminPassword string
}

// TournamentSettings contains tournament structure configuration.
type TournamentSettings struct {
	StartingChips      int
	SmallBlind         int
	BigBlind           int
	MinPlayers         int
	MaxPlayersPerTable int
	ActionTimeoutSecs  int
	BlindIncreaseHands int
	BlindMultiplier    float64
	HandDelayMillis    int
}

// ActionTimeout returns the per-action decision window. Zero or
// negative means no timeout is enforced.
func (t TournamentSettings) ActionTimeout() time.Duration {
	return time.Duration(t.ActionTimeoutSecs) * time.Second
}

// HandDelay returns the settling delay between hands.
func (t TournamentSettings) HandDelay() time.Duration {
	return time.Duration(t.HandDelayMillis) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Address:       "localhost",
			Port:          8080,
			LogLevel:      "info",
			AdminPassword: "admin",
		},
		Tournament: TournamentSettings{
			StartingChips:      1000,
			SmallBlind:         10,
			BigBlind:           20,
			MinPlayers:         2,
			MaxPlayersPerTable: 6,
			ActionTimeoutSecs:  30,
			BlindIncreaseHands: 20,
			BlindMultiplier:    1.5,
			HandDelayMillis:    3000,
		},
	}
}

// fileConfig mirrors Config with pointer fields so an attribute set to
// zero in the file is distinguishable from one that was omitted.
// Explicit zeroes matter: action_timeout_seconds = 0 disables the
// decision timer and blind_increase_hands = 0 freezes the blinds.
type fileConfig struct {
	Server     *serverFile     `hcl:"server,block"`
	Tournament *tournamentFile `hcl:"tournament,block"`
}

type serverFile struct {
	Address       *string `hcl:"address,optional"`
	Port          *int    `hcl:"port,optional"`
	LogLevel      *string `hcl:"log_level,optional"`
	AdminPassword *string `hcl:"admin_password,optional"`
}

type tournamentFile struct {
	StartingChips      *int     `hcl:"starting_chips,optional"`
	SmallBlind         *int     `hcl:"small_blind,optional"`
	BigBlind           *int     `hcl:"big_blind,optional"`
	MinPlayers         *int     `hcl:"min_players,optional"`
	MaxPlayersPerTable *int     `hcl:"max_players_per_table,optional"`
	ActionTimeoutSecs  *int     `hcl:"action_timeout_seconds,optional"`
	BlindIncreaseHands *int     `hcl:"blind_increase_hands,optional"`
	BlindMultiplier    *float64 `hcl:"blind_multiplier,optional"`
	HandDelayMillis    *int     `hcl:"hand_delay_ms,optional"`
}

// Load reads an HCL configuration file. A missing file yields the
// defaults; a present file overrides only the fields it sets.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := Default()
	overlay(cfg, &fc)
	return cfg, nil
}

func overlay(cfg *Config, fc *fileConfig) {
	if s := fc.Server; s != nil {
		setString(&cfg.Server.Address, s.Address)
		setInt(&cfg.Server.Port, s.Port)
		setString(&cfg.Server.LogLevel, s.LogLevel)
		setString(&cfg.Server.AdminPassword, s.AdminPassword)
	}
	if t := fc.Tournament; t != nil {
		setInt(&cfg.Tournament.StartingChips, t.StartingChips)
		setInt(&cfg.Tournament.SmallBlind, t.SmallBlind)
		setInt(&cfg.Tournament.BigBlind, t.BigBlind)
		setInt(&cfg.Tournament.MinPlayers, t.MinPlayers)
		setInt(&cfg.Tournament.MaxPlayersPerTable, t.MaxPlayersPerTable)
		setInt(&cfg.Tournament.ActionTimeoutSecs, t.ActionTimeoutSecs)
		setInt(&cfg.Tournament.BlindIncreaseHands, t.BlindIncreaseHands)
		setFloat(&cfg.Tournament.BlindMultiplier, t.BlindMultiplier)
		setInt(&cfg.Tournament.HandDelayMillis, t.HandDelayMillis)
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// Validate checks the configuration for contradictions. The timeout and
// blind escalation settings are not checked here: non-positive values
// are valid and mean "disabled".
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	t := c.Tournament
	if t.SmallBlind <= 0 {
		return fmt.Errorf("small blind must be positive")
	}
	if t.BigBlind < 2*t.SmallBlind {
		return fmt.Errorf("big blind %d must be at least twice the small blind %d", t.BigBlind, t.SmallBlind)
	}
	if t.StartingChips < t.BigBlind {
		return fmt.Errorf("starting chips %d cannot cover the big blind %d", t.StartingChips, t.BigBlind)
	}
	if t.MinPlayers < 2 {
		return fmt.Errorf("minimum players must be at least 2")
	}
	if t.MaxPlayersPerTable < 2 || t.MaxPlayersPerTable > 10 {
		return fmt.Errorf("max players per table must be between 2 and 10")
	}
	if t.BlindMultiplier < 1 {
		return fmt.Errorf("blind multiplier must be at least 1")
	}
	return nil
}

// ListenAddress returns the host:port to bind.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
