package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk shape of a gaspoold deployment: which fullnode to
// talk to, how many sponsor keys to provision, the daily usage cap, and
// reservation defaults. Loaded once at startup; there is no hot reload.
type Config struct {
	Fullnode struct {
		Endpoint string `toml:"endpoint"`
	} `toml:"fullnode"`

	Signer struct {
		// SponsorCount is how many local dev-signer keys to provision.
		// A production deployment would instead name a remote custody
		// endpoint here; only the local path is implemented.
		SponsorCount int `toml:"sponsor_count"`
	} `toml:"signer"`

	Store struct {
		// DataDir, when set, opens a durable pebble-backed Coin Store at
		// this path. Left empty, gaspoold runs with an in-memory store.
		DataDir string `toml:"data_dir"`
	} `toml:"store"`

	GasCap struct {
		DailyLimit uint64 `toml:"daily_limit"`
	} `toml:"gas_cap"`

	Reservation struct {
		DefaultTTL time.Duration `toml:"default_ttl"`
	} `toml:"reservation"`

	Log struct {
		File string `toml:"file"`
	} `toml:"log"`
}

// LoadConfig reads and parses a TOML config file at path.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("gaspoold: load config %s: %w", path, err)
	}
	if cfg.Signer.SponsorCount < 1 {
		cfg.Signer.SponsorCount = 1
	}
	if cfg.Reservation.DefaultTTL <= 0 {
		cfg.Reservation.DefaultTTL = 30 * time.Second
	}
	return &cfg, nil
}
