package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 40, cfg.Thresholds.Suspicious)
	assert.Equal(t, 60, cfg.Thresholds.Quarantine)
	assert.Equal(t, 80, cfg.Thresholds.Block)
	assert.True(t, cfg.Sandbox.CheckSandbox)
	assert.Equal(t, 3000, cfg.Sandbox.ReputationTimeoutMs)
	assert.Equal(t, 4, cfg.Sandbox.MaxParallel)
	assert.Empty(t, cfg.FreemailDomains)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
thresholds:
  block: 90
freemail_domains:
  - webmail.example
sandbox:
  check_sandbox: true
  max_parallel: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Thresholds.Block)
	// absent keys keep their defaults
	assert.Equal(t, 40, cfg.Thresholds.Suspicious)
	assert.Equal(t, []string{"webmail.example"}, cfg.FreemailDomains)
	assert.Equal(t, 8, cfg.Sandbox.MaxParallel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "thresholds: [not a map")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsMisorderedThresholds(t *testing.T) {
	path := writeConfig(t, `
thresholds:
  suspicious: 70
  quarantine: 60
  block: 80
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ordered")
}

func TestLoad_RejectsOutOfRangeThresholds(t *testing.T) {
	path := writeConfig(t, `
thresholds:
  suspicious: 40
  quarantine: 60
  block: 150
`)

	_, err := Load(path)
	assert.Error(t, err)
}
