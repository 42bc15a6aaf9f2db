package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Store backends for the persisted session state.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config is the engine/server configuration. Game content lives in its own
// document (see internal/content); this only covers runtime wiring.
type Config struct {
	Addr            string    `yaml:"addr" json:"addr"`
	DataDir         string    `yaml:"data_dir" json:"data_dir"`
	ContentPath     string    `yaml:"content_path" json:"content_path"`
	StoreBackend    string    `yaml:"store_backend" json:"store_backend"`
	SaveDelayMS     int       `yaml:"save_delay_ms" json:"save_delay_ms"`
	OfflineCapHours float64   `yaml:"offline_cap_hours" json:"offline_cap_hours"`
	RateLimit       RateLimit `yaml:"rate_limit" json:"rate_limit"`
}

// RateLimit tunes the per-client API token bucket. Zero disables limiting.
type RateLimit struct {
	PerSecond float64 `yaml:"per_second" json:"per_second"`
	Burst     int     `yaml:"burst" json:"burst"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Addr:            ":8690",
		DataDir:         "data",
		ContentPath:     "content/game.yaml",
		StoreBackend:    StoreFile,
		SaveDelayMS:     500,
		OfflineCapHours: 0,
		RateLimit: RateLimit{
			PerSecond: 20,
			Burst:     40,
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is not
// an error; the defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
