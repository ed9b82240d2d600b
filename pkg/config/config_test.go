package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("wvscan-test", flag.ContinueOnError)
	return parse(fs, args)
}

func TestParseFlags(t *testing.T) {
	t.Run("one-shot defaults", func(t *testing.T) {
		cfg, err := parseArgs(t, "-u", "http://target.test/")
		require.NoError(t, err)

		assert.Equal(t, "http://target.test/", cfg.TargetURL)
		assert.Equal(t, 2, cfg.MaxDepth)
		assert.Equal(t, 100, cfg.MaxPages)
		assert.Equal(t, 150, cfg.MaxPayloadsPerParam)
		assert.Equal(t, time.Second, cfg.TimeBasedSlack)
		assert.Equal(t, 8, cfg.Workers)
		assert.False(t, cfg.RenderJS)
	})

	t.Run("serve mode", func(t *testing.T) {
		cfg, err := parseArgs(t, "-listen", ":8080")
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Listen)
	})

	t.Run("target or listen required", func(t *testing.T) {
		_, err := parseArgs(t)
		assert.ErrorIs(t, err, ErrMissingRequired)
	})

	t.Run("aliases track the long form", func(t *testing.T) {
		cfg, err := parseArgs(t, "-u", "http://t/", "-c", "4", "-rl", "50", "-k")
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Workers)
		assert.Equal(t, 50, cfg.RateLimit)
		assert.True(t, cfg.SkipVerify)
	})

	t.Run("allowed hosts split and trimmed", func(t *testing.T) {
		cfg, err := parseArgs(t, "-u", "http://t/", "-allowed-hosts", "a.test, b.test ,")
		require.NoError(t, err)
		assert.Equal(t, []string{"a.test", "b.test"}, cfg.AllowedHosts)
	})
}

func TestConfigFile(t *testing.T) {
	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "wvscan.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("file fills unset options", func(t *testing.T) {
		path := write(t, "max_depth: 5\nworkers: 3\ntimeout: 30s\nrender_js: true\nallowed_hosts: [x.test]\n")
		cfg, err := parseArgs(t, "-u", "http://t/", "-config", path)
		require.NoError(t, err)

		assert.Equal(t, 5, cfg.MaxDepth)
		assert.Equal(t, 3, cfg.Workers)
		assert.Equal(t, 30*time.Second, cfg.Timeout)
		assert.True(t, cfg.RenderJS)
		assert.Equal(t, []string{"x.test"}, cfg.AllowedHosts)
	})

	t.Run("explicit flags beat the file", func(t *testing.T) {
		path := write(t, "max_depth: 5\nworkers: 3\n")
		cfg, err := parseArgs(t, "-u", "http://t/", "-depth", "1", "-config", path)
		require.NoError(t, err)

		assert.Equal(t, 1, cfg.MaxDepth, "flag should win over file")
		assert.Equal(t, 3, cfg.Workers, "unset option still comes from file")
	})

	t.Run("bad yaml is ErrInvalidConfig", func(t *testing.T) {
		path := write(t, "max_depth: [not an int\n")
		_, err := parseArgs(t, "-u", "http://t/", "-config", path)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("bad duration is ErrInvalidConfig", func(t *testing.T) {
		path := write(t, "timeout: soon\n")
		_, err := parseArgs(t, "-u", "http://t/", "-config", path)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("missing file is ErrInvalidConfig", func(t *testing.T) {
		_, err := parseArgs(t, "-u", "http://t/", "-config", "/no/such/file.yaml")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}
