package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RISK_DB_PATH", filepath.Join(dir, "risk_management.db"))
	t.Setenv("RISK_RESULTS_DIR", filepath.Join(dir, "results"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.95, cfg.Confidence)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Schedule)
	assert.False(t, cfg.Publish.Enabled())
	assert.True(t, filepath.IsAbs(cfg.DBPath))
	assert.True(t, filepath.IsAbs(cfg.ResultsDir))
	// Load creates the results directory so the first run can write into it.
	assert.DirExists(t, cfg.ResultsDir)
}

func TestLoad_CustomConfidence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RISK_RESULTS_DIR", filepath.Join(dir, "results"))
	t.Setenv("RISK_CONFIDENCE", "0.99")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.99, cfg.Confidence)
}

func TestLoad_InvalidConfidence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RISK_RESULTS_DIR", filepath.Join(dir, "results"))
	t.Setenv("RISK_CONFIDENCE", "1.5")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_PublishConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RISK_RESULTS_DIR", filepath.Join(dir, "results"))
	t.Setenv("RISK_S3_BUCKET", "risk-reports")
	t.Setenv("RISK_S3_ENDPOINT", "https://example.r2.cloudflarestorage.com")

	cfg, err := Load()
	require.NoError(t, err)

	require.True(t, cfg.Publish.Enabled())
	assert.Equal(t, "risk-reports", cfg.Publish.Bucket)
	assert.Equal(t, "https://example.r2.cloudflarestorage.com", cfg.Publish.Endpoint)
	assert.Equal(t, "auto", cfg.Publish.Region)
}
