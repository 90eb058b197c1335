// Package config loads runtime configuration for the ampcare client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  3. A dotenv file (EnvFile, default ".env"; a missing file is ignored)
//     overlaid by the process environment.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-r string   root folder shared between parties
//	-p string   identifier of the current party
//	-n string   display name of the current party
//	-l string   log level (debug, info, warn, error)
//	-m string   address of the metrics endpoint, empty disables it
//
// Environment
//
//	AMPCARE_ROOT, AMPCARE_PARTY, AMPCARE_PARTY_NAME,
//	AMPCARE_LOG_LEVEL, AMPCARE_METRICS_ADDR
//
// # File schema
//
// Durations accept strings like "2s" or integer nanoseconds:
//
//	{
//	  "root_path": "/srv/amp",
//	  "party_id": "ward3",
//	  "party_name": "Ward 3",
//	  "known_write_ttl": "2s",
//	  "scan_workers": 4
//	}
package config
