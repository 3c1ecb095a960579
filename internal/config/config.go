// Package config loads service configuration from an optional YAML file and
// the SENTRA_* environment, environment taking precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	ListenAddr      string        `yaml:"listen_addr" env:"SENTRA_LISTEN_ADDR" env-default:"0.0.0.0:8080"`
	DatabaseDSN     string        `yaml:"database_dsn" env:"SENTRA_PG_DSN"`
	HomeOrgID       string        `yaml:"home_org_id" env:"SENTRA_HOME_ORG_ID" env-default:"org-home"`
	RateBurst       int           `yaml:"rate_burst" env:"SENTRA_RATE_BURST" env-default:"50"`
	RatePerSec      int           `yaml:"rate_per_sec" env:"SENTRA_RATE_PER_SEC" env-default:"25"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SENTRA_SHUTDOWN_TIMEOUT" env-default:"10s"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SENTRA_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SENTRA_WRITE_TIMEOUT" env-default:"20s"`
}

// Load reads configuration from path when it exists, then overlays the
// environment. An empty path reads the environment only.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
			return cfg, nil
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env config: %w", err)
	}
	return cfg, nil
}
