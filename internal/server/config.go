package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
}

// GameSettings contains game pacing configuration. All delays are in
// milliseconds.
type GameSettings struct {
	MaxPlayers       int   `hcl:"max_players,optional"`
	Seed             int64 `hcl:"seed,optional"`
	SchedulerTickMs  int   `hcl:"scheduler_tick_ms,optional"`
	ActionCooldownMs int   `hcl:"action_cooldown_ms,optional"`
	PostRevealMs     int   `hcl:"post_reveal_ms,optional"`
	ContinueEnableMs int   `hcl:"continue_enable_ms,optional"`
	AutoContinueMs   int   `hcl:"auto_continue_ms,optional"`
	AutoNewRoundMs   int   `hcl:"auto_new_round_ms,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	timing := DefaultTiming()
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameSettings{
			MaxPlayers:       6,
			SchedulerTickMs:  int(timing.SchedulerTick / time.Millisecond),
			ActionCooldownMs: int(timing.ActionCooldown / time.Millisecond),
			PostRevealMs:     int(timing.PostRevealDelay / time.Millisecond),
			ContinueEnableMs: int(timing.ContinueEnableDelay / time.Millisecond),
			AutoContinueMs:   int(timing.AutoContinueDelay / time.Millisecond),
			AutoNewRoundMs:   int(timing.AutoNewRoundDelay / time.Millisecond),
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
	if config.Game.MaxPlayers == 0 {
		config.Game.MaxPlayers = defaults.Game.MaxPlayers
	}
	if config.Game.SchedulerTickMs == 0 {
		config.Game.SchedulerTickMs = defaults.Game.SchedulerTickMs
	}
	if config.Game.ActionCooldownMs == 0 {
		config.Game.ActionCooldownMs = defaults.Game.ActionCooldownMs
	}
	if config.Game.PostRevealMs == 0 {
		config.Game.PostRevealMs = defaults.Game.PostRevealMs
	}
	if config.Game.ContinueEnableMs == 0 {
		config.Game.ContinueEnableMs = defaults.Game.ContinueEnableMs
	}
	if config.Game.AutoContinueMs == 0 {
		config.Game.AutoContinueMs = defaults.Game.AutoContinueMs
	}
	if config.Game.AutoNewRoundMs == 0 {
		config.Game.AutoNewRoundMs = defaults.Game.AutoNewRoundMs
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration for consistency.
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Game.MaxPlayers < 2 || c.Game.MaxPlayers > 6 {
		return fmt.Errorf("max_players must be between 2 and 6, got %d", c.Game.MaxPlayers)
	}
	if c.Game.ContinueEnableMs > c.Game.AutoContinueMs {
		return fmt.Errorf("continue_enable_ms (%d) must not exceed auto_continue_ms (%d)",
			c.Game.ContinueEnableMs, c.Game.AutoContinueMs)
	}
	return nil
}

// Timing converts the configured delays to a Timing.
func (c *ServerConfig) Timing() Timing {
	return Timing{
		ContinueEnableDelay: time.Duration(c.Game.ContinueEnableMs) * time.Millisecond,
		AutoContinueDelay:   time.Duration(c.Game.AutoContinueMs) * time.Millisecond,
		AutoNewRoundDelay:   time.Duration(c.Game.AutoNewRoundMs) * time.Millisecond,
		SchedulerTick:       time.Duration(c.Game.SchedulerTickMs) * time.Millisecond,
		ActionCooldown:      time.Duration(c.Game.ActionCooldownMs) * time.Millisecond,
		PostRevealDelay:     time.Duration(c.Game.PostRevealMs) * time.Millisecond,
	}
}
