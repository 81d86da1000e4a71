// Package config loads service configuration: defaults, then an optional
// YAML file, then environment variables. Environment always wins.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the YAML config file looked up next to the binary.
const DefaultPath = "shopaudit.yaml"

// Config holds all service settings.
type Config struct {
	Port               string  `yaml:"port"`
	GinMode            string  `yaml:"gin_mode"`
	DataDir            string  `yaml:"data_dir"`
	DatabasePath       string  `yaml:"database_path"`
	ShopifyAPIVersion  string  `yaml:"shopify_api_version"`
	CacheTTLMinutes    int     `yaml:"cache_ttl_minutes"`
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     float64 `yaml:"rate_limit_burst"`
}

func defaults() Config {
	return Config{
		Port:               "8082",
		GinMode:            "release",
		DataDir:            "data",
		DatabasePath:       "data/scans.db",
		ShopifyAPIVersion:  "2024-10",
		CacheTTLMinutes:    30,
		RateLimitPerSecond: 2,
		RateLimitBurst:     5,
	}
}

// Load builds the configuration. A missing YAML file is not an error; a
// malformed one is.
func Load(path string) (Config, error) {
	// .env.development first for local development, then .env.
	if err := godotenv.Load(".env.development"); err != nil {
		_ = godotenv.Load()
	}

	cfg := defaults()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.GinMode, "GIN_MODE")
	setString(&cfg.DataDir, "DATA_DIR")
	setString(&cfg.DatabasePath, "DATABASE_PATH")
	setString(&cfg.ShopifyAPIVersion, "SHOPIFY_API_VERSION")
	setInt(&cfg.CacheTTLMinutes, "CACHE_TTL_MINUTES")
	setFloat(&cfg.RateLimitPerSecond, "RATE_LIMIT_PER_SECOND")
	setFloat(&cfg.RateLimitBurst, "RATE_LIMIT_BURST")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// CacheTTL returns the result cache TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}
