package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/ampcare/internal/logging"
)

// Config holds runtime settings of the client.
type Config struct {
	RootPath  string
	PartyID   string
	PartyName string

	LogLevel  string
	LogFormat string

	// KnownWriteTTL bounds how long a local write suppresses the watch event
	// it causes.
	KnownWriteTTL time.Duration
	ScanWorkers   int

	MetricsAddr string
	EnvFile     string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.RootPath = "./AMP"
	c.LogLevel = "info"
	c.LogFormat = logging.FormatAuto
	c.KnownWriteTTL = 2 * time.Second
	c.ScanWorkers = 4
	c.EnvFile = ".env"
}

// Validate reports settings the client cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.RootPath == "" {
		errs = append(errs, errors.New("root path is empty"))
	}
	if c.PartyID == "" {
		errs = append(errs, errors.New("party id is empty"))
	}
	if c.KnownWriteTTL <= 0 {
		errs = append(errs, fmt.Errorf("known write ttl must be positive, got %s", c.KnownWriteTTL))
	}
	if c.ScanWorkers <= 0 {
		errs = append(errs, fmt.Errorf("scan workers must be positive, got %d", c.ScanWorkers))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	switch c.LogFormat {
	case logging.FormatAuto, logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig builds a Config from defaults, the config file, the
// environment and the command-line flags in args (without the program
// name). Later sources take precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.PartyName == "" {
		cfg.PartyName = cfg.PartyID
	}
	return cfg, nil
}
