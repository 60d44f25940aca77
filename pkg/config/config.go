// Package config holds engine configuration read from environment variables.
package config

import (
	"os"
	"runtime"
	"strconv"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all engine configuration
type Config struct {
	Audit    AuditConfig
	FeeTable FeeTableConfig
}

// AuditConfig tunes value validation and document parsing.
type AuditConfig struct {
	// TolerancePercent is the accepted deviation from the fee-table value,
	// as a percentage of that value. Default 1.0.
	TolerancePercent float64
	// ParseWorkers bounds how many documents are parsed concurrently.
	ParseWorkers int
}

// FeeTableConfig locates the reference fee table.
type FeeTableConfig struct {
	Path  string
	Sheet string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Audit: AuditConfig{
			TolerancePercent: getEnvAsFloat("AUDIT_TOLERANCE_PERCENT", 1.0),
			ParseWorkers:     getEnvAsInt("AUDIT_PARSE_WORKERS", runtime.GOMAXPROCS(0)),
		},
		FeeTable: FeeTableConfig{
			Path:  getEnv("FEE_TABLE_PATH", "data/cbhpm/CBHPM2015_v1.xlsx"),
			Sheet: getEnv("FEE_TABLE_SHEET", "CBHPM2015"),
		},
	}

	if cfg.Audit.ParseWorkers < 1 {
		cfg.Audit.ParseWorkers = 1
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
