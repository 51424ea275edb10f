// Package config loads the server's on-disk config.toml, layers
// HYPERION_-prefixed environment overrides on top, and applies an
// optional .env file in development — the same three-layer shape the
// teacher pack's production services use for their own configuration.
package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
	"go.uber.org/automaxprocs/maxprocs"
)

// Config is the full set of tunables the server reads at startup.
type Config struct {
	ListenAddress        string `toml:"listen_address" env:"LISTEN_ADDRESS" envDefault:":25565"`
	ProxyListenAddress   string `toml:"proxy_listen_address" env:"PROXY_LISTEN_ADDRESS" envDefault:":25566"`
	WorldPath            string `toml:"world_path" env:"WORLD_PATH" envDefault:"world"`
	ViewDistance         int    `toml:"view_distance" env:"VIEW_DISTANCE" envDefault:"10"`
	CompressionThreshold int    `toml:"compression_threshold" env:"COMPRESSION_THRESHOLD" envDefault:"256"`
	BroadcastRadius      int32  `toml:"broadcast_radius" env:"BROADCAST_RADIUS" envDefault:"128"`
	TickWorkers          int    `toml:"tick_workers" env:"TICK_WORKERS" envDefault:"0"`
	MojangRateBurst      int    `toml:"mojang_rate_burst" env:"MOJANG_RATE_BURST" envDefault:"600"`
	MetricsListenAddress string `toml:"metrics_listen_address" env:"METRICS_LISTEN_ADDRESS" envDefault:":9090"`
}

// Load reads config.toml at path (if it exists — a missing file is not
// an error, since every field has an environment-variable default),
// layers HYPERION_-prefixed environment overrides on top, and resolves
// TickWorkers to the container CPU quota when left at its zero default.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional .env in development; ignored if absent

	cfg := &Config{}
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "HYPERION_"}); err != nil {
		return nil, fmt.Errorf("config: parse environment overrides: %w", err)
	}

	if cfg.TickWorkers <= 0 {
		cfg.TickWorkers = runtime.GOMAXPROCS(0)
	}
	return cfg, nil
}

// SetGOMAXPROCS applies go.uber.org/automaxprocs's container-aware CPU
// quota detection, matching the host-capacity discipline of the
// production services this config layout is modeled on. Call once at
// startup, before Load resolves TickWorkers's default.
func SetGOMAXPROCS(logf func(string, ...any)) (undo func(), err error) {
	return maxprocs.Set(maxprocs.Logger(logf))
}
