package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pinger.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	assert := assert.New(t)
	path := writeConfig(t, `
database: /var/lib/pinger/settings.db
listen: 127.0.0.1:8080
probe:
  mode: exec
  timeout: 2s
  dns_cache: 1m
log:
  level: debug
  file: /var/log/pinger.log
targets:
  - host: 9.9.9.9
    name: Quad9
  - host: example.com
    enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal("/var/lib/pinger/settings.db", cfg.Database)
	assert.Equal("127.0.0.1:8080", cfg.Listen)
	assert.Equal(ModeExec, cfg.Probe.Mode)
	assert.Equal(2*time.Second, cfg.Probe.Timeout)
	assert.Equal(time.Minute, cfg.Probe.DNSCache)
	assert.Equal("ping", cfg.Probe.Command)
	assert.Equal("debug", cfg.Log.Level)
	assert.Equal(10, cfg.Log.MaxSizeMB)
	assert.Equal(60, cfg.HistorySize)

	targets := cfg.SeedTargets()
	require.Len(t, targets, 2)
	assert.Equal("Quad9", targets[0].Name)
	assert.True(targets[0].Enabled)
	assert.Equal("example.com", targets[1].DisplayName())
	assert.False(targets[1].Enabled)
	assert.NotEqual(targets[0].ID, targets[1].ID)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "probe: [not, a, map]"))
	assert.ErrorContains(t, err, "parse config")

	_, err = Load(writeConfig(t, "probe:\n  mode: carrier-pigeon\n"))
	assert.ErrorContains(t, err, "probe mode")

	_, err = Load(writeConfig(t, "targets:\n  - name: nameless\n"))
	assert.ErrorContains(t, err, "missing host")
}

func TestSeedTargetsEmpty(t *testing.T) {
	assert.Nil(t, Default().SeedTargets())
}
