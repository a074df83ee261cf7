package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DSN        string
	ListenAddr string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTExpiry   time.Duration

	EnableMetrics bool

	// Bulk transfer limits
	CSVMaxRows     int
	ImportMaxBytes int64
	ExportMaxRows  int

	// Search limits
	PerPageMax int

	// Per-operation bound on storage round-trips
	DBTimeout time.Duration
}

func Load() *Config {
	config := &Config{
		DSN:            os.Getenv("DB_DSN"),
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		JWTSecret:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTIssuer:      getEnv("JWT_ISS", "asset-inventory-api"),
		JWTAudience:    getEnv("JWT_AUD", "asset-inventory-api"),
		JWTExpiry:      24 * time.Hour, // Default to 24 hours
		EnableMetrics:  os.Getenv("ENABLE_METRICS") == "true",
		CSVMaxRows:     getEnvInt("CSV_MAX_ROWS", 1000),
		ImportMaxBytes: int64(getEnvInt("IMPORT_MAX_BYTES", 10<<20)),
		ExportMaxRows:  getEnvInt("EXPORT_MAX_ROWS", 10000),
		PerPageMax:     getEnvInt("PER_PAGE_MAX", 100),
		DBTimeout:      10 * time.Second,
	}

	// Parse JWT expiry from environment if provided
	if expiryStr := os.Getenv("JWT_EXPIRY"); expiryStr != "" {
		if expiry, err := time.ParseDuration(expiryStr); err == nil {
			config.JWTExpiry = expiry
		}
	}

	if timeoutStr := os.Getenv("DB_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			config.DBTimeout = timeout
		}
	}

	return config
}

// LoadAndValidate loads the configuration and rejects values the server
// cannot start with.
func LoadAndValidate() (*Config, error) {
	cfg := Load()
	if cfg.DSN == "" {
		return nil, errors.New("DB_DSN environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must not be empty")
	}
	if cfg.CSVMaxRows <= 0 {
		return nil, errors.New("CSV_MAX_ROWS must be positive")
	}
	if cfg.ExportMaxRows <= 0 {
		return nil, errors.New("EXPORT_MAX_ROWS must be positive")
	}
	if cfg.PerPageMax <= 0 {
		return nil, errors.New("PER_PAGE_MAX must be positive")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil && v > 0 {
			return v
		}
	}
	return defaultValue
}
