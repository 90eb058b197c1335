package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvRoot        = "AMPCARE_ROOT"
	EnvParty       = "AMPCARE_PARTY"
	EnvPartyName   = "AMPCARE_PARTY_NAME"
	EnvLogLevel    = "AMPCARE_LOG_LEVEL"
	EnvMetricsAddr = "AMPCARE_METRICS_ADDR"
)

// parseEnv overlays cfg with environment variables. Values from the dotenv
// file only apply when the process environment does not set them.
func parseEnv(cfg *Config) error {
	dotenv := map[string]string{}
	if cfg.EnvFile != "" {
		m, err := godotenv.Read(cfg.EnvFile)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return fmt.Errorf("read env file %s: %w", cfg.EnvFile, err)
		}
	}

	lookup := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
			return
		}
		if v, ok := dotenv[key]; ok {
			*dst = v
		}
	}
	lookup(EnvRoot, &cfg.RootPath)
	lookup(EnvParty, &cfg.PartyID)
	lookup(EnvPartyName, &cfg.PartyName)
	lookup(EnvLogLevel, &cfg.LogLevel)
	lookup(EnvMetricsAddr, &cfg.MetricsAddr)
	return nil
}
