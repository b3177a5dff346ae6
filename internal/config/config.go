// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DBPath     string  // Path to the risk_management.db SQLite store
	ResultsDir string  // Directory where CSV and PNG artifacts are written (always absolute)
	Confidence float64 // VaR/ES confidence level (default 0.95)
	LogLevel   string
	Schedule   string // Optional cron expression for scheduled re-runs
	Publish    *PublishConfig
}

// PublishConfig holds settings for uploading results to an S3-compatible bucket.
// Publishing is disabled when Bucket is empty.
type PublishConfig struct {
	Bucket    string
	Endpoint  string // Custom endpoint for S3-compatible stores (R2, MinIO); empty for AWS
	Region    string
	AccessKey string
	SecretKey string
}

// Enabled reports whether publishing is configured.
func (p *PublishConfig) Enabled() bool {
	return p != nil && p.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dbPath := getEnv("RISK_DB_PATH", "risk_management.db")
	absDBPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	resultsDir := getEnv("RISK_RESULTS_DIR", "results")
	absResultsDir, err := filepath.Abs(resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve results directory path: %w", err)
	}
	if err := os.MkdirAll(absResultsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	confidence := getEnvAsFloat("RISK_CONFIDENCE", 0.95)
	if confidence <= 0 || confidence >= 1 {
		return nil, fmt.Errorf("invalid RISK_CONFIDENCE %v: must be in (0, 1)", confidence)
	}

	cfg := &Config{
		DBPath:     absDBPath,
		ResultsDir: absResultsDir,
		Confidence: confidence,
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Schedule:   getEnv("RISK_SCHEDULE", ""),
		Publish:    loadPublishConfig(),
	}

	return cfg, nil
}

// loadPublishConfig reads optional S3 publishing settings.
// Returns nil when no bucket is configured.
func loadPublishConfig() *PublishConfig {
	bucket := getEnv("RISK_S3_BUCKET", "")
	if bucket == "" {
		return nil
	}

	return &PublishConfig{
		Bucket:    bucket,
		Endpoint:  getEnv("RISK_S3_ENDPOINT", ""),
		Region:    getEnv("RISK_S3_REGION", "auto"),
		AccessKey: getEnv("RISK_S3_ACCESS_KEY", ""),
		SecretKey: getEnv("RISK_S3_SECRET_KEY", ""),
	}
}

// getEnv retrieves an environment variable with a fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsFloat retrieves an environment variable as a float with a fallback
func getEnvAsFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
