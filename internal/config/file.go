package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/ampcare/internal/flagx"
	"github.com/dmitrijs2005/ampcare/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the DTO for config files. Pointer fields distinguish
// "not set" from zero values so a file only overrides what it names.
type FileConfig struct {
	RootPath      *string         `json:"root_path" yaml:"root_path"`
	PartyID       *string         `json:"party_id" yaml:"party_id"`
	PartyName     *string         `json:"party_name" yaml:"party_name"`
	LogLevel      *string         `json:"log_level" yaml:"log_level"`
	LogFormat     *string         `json:"log_format" yaml:"log_format"`
	KnownWriteTTL *timex.Duration `json:"known_write_ttl" yaml:"known_write_ttl"`
	ScanWorkers   *int            `json:"scan_workers" yaml:"scan_workers"`
	MetricsAddr   *string         `json:"metrics_addr" yaml:"metrics_addr"`
	EnvFile       *string         `json:"env_file" yaml:"env_file"`
}

// parseFile overlays cfg with the file named by -c/-config in args. No flag
// means no file.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&cfg.RootPath, fc.RootPath)
	set(&cfg.PartyID, fc.PartyID)
	set(&cfg.PartyName, fc.PartyName)
	set(&cfg.LogLevel, fc.LogLevel)
	set(&cfg.LogFormat, fc.LogFormat)
	set(&cfg.MetricsAddr, fc.MetricsAddr)
	set(&cfg.EnvFile, fc.EnvFile)
	if fc.KnownWriteTTL != nil {
		cfg.KnownWriteTTL = fc.KnownWriteTTL.Duration
	}
	if fc.ScanWorkers != nil {
		cfg.ScanWorkers = *fc.ScanWorkers
	}
}
