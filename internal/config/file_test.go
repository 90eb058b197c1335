package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseFile(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		path := writeFile(t, "cfg.json", `{"party_id": "gp", "known_write_ttl": "750ms", "metrics_addr": ":9100"}`)
		cfg := &Config{RootPath: "keep"}
		require.NoError(t, parseFile(cfg, []string{"-c", path}))

		assert.Equal(t, "gp", cfg.PartyID)
		assert.Equal(t, 750*time.Millisecond, cfg.KnownWriteTTL)
		assert.Equal(t, ":9100", cfg.MetricsAddr)
		assert.Equal(t, "keep", cfg.RootPath, "unset fields are not overwritten")
	})

	t.Run("yml", func(t *testing.T) {
		path := writeFile(t, "cfg.yml", "party_name: Ward 3\nscan_workers: 2\n")
		cfg := &Config{}
		require.NoError(t, parseFile(cfg, []string{"-config=" + path}))

		assert.Equal(t, "Ward 3", cfg.PartyName)
		assert.Equal(t, 2, cfg.ScanWorkers)
	})

	t.Run("no flag no changes", func(t *testing.T) {
		cfg := &Config{PartyID: "x"}
		require.NoError(t, parseFile(cfg, []string{"-p", "y"}))
		assert.Equal(t, "x", cfg.PartyID)
	})

	t.Run("bad duration", func(t *testing.T) {
		path := writeFile(t, "cfg.json", `{"known_write_ttl": "soon"}`)
		require.Error(t, parseFile(&Config{}, []string{"-c", path}))
	})
}
