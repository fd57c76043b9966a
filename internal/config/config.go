package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath  string
	ResultsDir    string
	LogLevel      string
	LogFile       string
	Port          int
	DevMode       bool
	RiskFreeRate  float64
	WindowYears   int
	BenchmarkCode string
	MarketDataURL string
	MarketDataRPS float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnvAsInt("PORT", 8000),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		DatabasePath:  getEnv("DATABASE_PATH", "./data/database.db"),
		ResultsDir:    getEnv("RESULTS_DIR", "./results"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		RiskFreeRate:  getEnvAsFloat("RISK_FREE_RATE", 0.03),
		WindowYears:   getEnvAsInt("ESTIMATION_WINDOW_YEARS", 3),
		BenchmarkCode: getEnv("BENCHMARK_INDEX_CODE", "1001"), // KOSPI
		MarketDataURL: getEnv("MARKET_DATA_URL", "http://localhost:9000"),
		MarketDataRPS: getEnvAsFloat("MARKET_DATA_RPS", 4.0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.WindowYears <= 0 {
		return fmt.Errorf("ESTIMATION_WINDOW_YEARS must be positive")
	}
	if c.MarketDataRPS <= 0 {
		return fmt.Errorf("MARKET_DATA_RPS must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
