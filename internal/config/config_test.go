package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNegativeThreshold(t *testing.T) {
	raw := Default()
	raw.ThresholdMs = -1

	_, err := New(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNewClampsSamplingRate(t *testing.T) {
	raw := Default()
	raw.SamplingRate = 1.5
	cfg, err := New(raw)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.SamplingRate)

	raw.SamplingRate = -0.5
	cfg, err = New(raw)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.SamplingRate)
}

func TestNewClampsMaxResources(t *testing.T) {
	raw := Default()
	raw.MaxResources = 0
	cfg, err := New(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MaxResources)

	raw.MaxResources = 500
	cfg, err = New(raw)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.MaxResources)
}

func TestNewRejectsMalformedCollectorURL(t *testing.T) {
	raw := Default()
	raw.CollectorURL = "not a url"

	_, err := New(raw)
	assert.Error(t, err)
}

func TestNewKeepsInRangeValues(t *testing.T) {
	raw := Default()
	raw.ThresholdMs = 0
	raw.SamplingRate = 0.25
	raw.MaxResources = 42

	cfg, err := New(raw)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.ThresholdMs, "zero threshold is valid")
	assert.Equal(t, 0.25, cfg.SamplingRate)
	assert.Equal(t, 42, cfg.MaxResources)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pagetrace.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverlaysFileOntoDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"threshold_ms": 4000,
		"sampling_rate": 0.5,
		"enabled": false,
		"nats_url": "nats://localhost:4222"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4000.0, cfg.ThresholdMs)
	assert.Equal(t, 0.5, cfg.SamplingRate)
	assert.False(t, cfg.Enabled, "explicit false must survive the overlay")
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	// Omitted keys keep defaults.
	assert.Equal(t, 10, cfg.MaxResources)
	assert.Equal(t, 30000, cfg.PageTimeoutMs)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `{"treshold_ms": 4000}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestLoadRejectsWrongTypes(t *testing.T) {
	path := writeConfig(t, `{"threshold_ms": "fast"}`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestPageTimeoutDefaultsWhenZero(t *testing.T) {
	raw := Default()
	raw.PageTimeoutMs = 0

	cfg, err := New(raw)
	require.NoError(t, err)
	assert.Equal(t, 30000, cfg.PageTimeoutMs)
}
