// Package config loads server configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "HEMOFARM_"

// Config holds all server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" envPrefix:"SERVER_"`
	Storage StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
	Engine  EngineConfig  `yaml:"engine" envPrefix:"ENGINE_"`
	Tuning  TuningConfig  `yaml:"tuning" envPrefix:"TUNING_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
}

// ServerConfig configures the HTTP/WebSocket listener.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// StorageConfig configures the SQLite database.
type StorageConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// EngineConfig configures the simulation loop.
type EngineConfig struct {
	ColonyID string `yaml:"colony_id" env:"COLONY_ID"`
	// TickRate is the wall-clock duration of one simulated tick.
	TickRate time.Duration `yaml:"tick_rate" env:"TICK_RATE"`
	// BiotechActive is the host feature flag gating hemogen extraction.
	BiotechActive bool `yaml:"biotech_active" env:"BIOTECH_ACTIVE"`
	// SeedColony registers a starter colony on an empty database.
	SeedColony bool `yaml:"seed_colony" env:"SEED_COLONY"`
}

// TuningConfig holds channel buffers and rate limits.
type TuningConfig struct {
	BroadcastChannelBuffer int `yaml:"broadcast_channel_buffer" env:"BROADCAST_CHANNEL_BUFFER"`
	ClientSendBuffer       int `yaml:"client_send_buffer" env:"CLIENT_SEND_BUFFER"`
	// ActionInterval is the minimum gap between two actions from one client.
	ActionInterval    time.Duration `yaml:"action_interval" env:"ACTION_INTERVAL"`
	EventPollInterval time.Duration `yaml:"event_poll_interval" env:"EVENT_POLL_INTERVAL"`
	SnapshotInterval  time.Duration `yaml:"snapshot_interval" env:"SNAPSHOT_INTERVAL"`
	DBMaxOpenConns    int           `yaml:"db_max_open_conns" env:"DB_MAX_OPEN_CONNS"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Development bool   `yaml:"development" env:"DEVELOPMENT"`
	Level       string `yaml:"level" env:"LEVEL"`
}

// Default returns sensible defaults for a single colony.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":8080"},
		Storage: StorageConfig{Path: "hemofarm.db"},
		Engine: EngineConfig{
			ColonyID:      "COLONY_1",
			TickRate:      time.Second / 60, // 60 ticks per real second
			BiotechActive: true,
			SeedColony:    true,
		},
		Tuning: TuningConfig{
			BroadcastChannelBuffer: 256,
			ClientSendBuffer:       64,
			ActionInterval:         time.Second,
			EventPollInterval:      200 * time.Millisecond,
			SnapshotInterval:       5 * time.Second,
			DBMaxOpenConns:         runtime.NumCPU() * 4,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path (if any) over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.Engine.TickRate <= 0 {
		return fmt.Errorf("engine.tick_rate must be positive, got %s", c.Engine.TickRate)
	}
	if c.Engine.ColonyID == "" {
		return errors.New("engine.colony_id must not be empty")
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path must not be empty")
	}
	if c.Tuning.ClientSendBuffer <= 0 || c.Tuning.BroadcastChannelBuffer <= 0 {
		return errors.New("tuning buffers must be positive")
	}
	if c.Tuning.SnapshotInterval <= 0 {
		return fmt.Errorf("tuning.snapshot_interval must be positive, got %s", c.Tuning.SnapshotInterval)
	}
	return nil
}
