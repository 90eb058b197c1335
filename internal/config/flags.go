package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/ampcare/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// args are filtered with flagx.FilterArgs so flags owned by other
// components (such as -c) do not break parsing.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-r", "-p", "-n", "-l", "-m"})

	fs := flag.NewFlagSet("ampcare", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.RootPath, "r", cfg.RootPath, "root folder shared between parties")
	fs.StringVar(&cfg.PartyID, "p", cfg.PartyID, "identifier of the current party")
	fs.StringVar(&cfg.PartyName, "n", cfg.PartyName, "display name of the current party")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
