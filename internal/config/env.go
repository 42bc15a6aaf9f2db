package config

import (
	"os"
	"strconv"
)

// FromEnv applies environment-variable overrides on top of cfg.
// Unset or unparsable variables leave the existing value alone.
func FromEnv(cfg Config) Config {
	if v := os.Getenv("IDLEFORGE_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("IDLEFORGE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("IDLEFORGE_CONTENT"); v != "" {
		cfg.ContentPath = v
	}
	if v := os.Getenv("IDLEFORGE_STORE"); v != "" {
		cfg.StoreBackend = v
	}
	if v := getEnvInt("IDLEFORGE_SAVE_DELAY_MS"); v > 0 {
		cfg.SaveDelayMS = v
	}
	if v := getEnvFloat("IDLEFORGE_OFFLINE_CAP_HOURS"); v > 0 {
		cfg.OfflineCapHours = v
	}
	if v := getEnvFloat("IDLEFORGE_RATE_PER_SECOND"); v > 0 {
		cfg.RateLimit.PerSecond = v
	}
	if v := getEnvInt("IDLEFORGE_RATE_BURST"); v > 0 {
		cfg.RateLimit.Burst = v
	}
	return cfg
}

func getEnvInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}

func getEnvFloat(key string) float64 {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0
	}
	return num
}
