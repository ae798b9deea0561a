package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           int
	DataPath       string
	Store          string
	LogFile        string
	ProductionMode bool

	// Used by the terminal dashboard.
	ServerURL    string
	PollInterval time.Duration
}

// GetConfig reads the configuration from the environment, loading a .env file
// from the working directory first if one exists.
func GetConfig() Config {
	_ = godotenv.Load() // a missing .env is fine

	config := Config{
		Port:         80,
		DataPath:     "data",
		Store:        "file",
		ServerURL:    "http://localhost:80",
		PollInterval: 5 * time.Second,
	}

	// PORT is what container platforms set; GLASSDASH_PORT wins when both exist
	if port := getEnv("GLASSDASH_PORT", getEnv("PORT", "")); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			config.Port = p
		}
	}

	config.DataPath = getEnv("GLASSDASH_DATA_PATH", config.DataPath)
	config.Store = getEnv("GLASSDASH_STORE", config.Store)
	config.LogFile = getEnv("GLASSDASH_LOG_FILE", config.LogFile)
	config.ServerURL = getEnv("GLASSDASH_SERVER", config.ServerURL)

	if prod := os.Getenv("GLASSDASH_PROD"); prod != "" {
		if b, err := strconv.ParseBool(prod); err == nil {
			config.ProductionMode = b
		}
	}

	if interval := os.Getenv("GLASSDASH_POLL_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil && d > 0 {
			config.PollInterval = d
		}
	}

	return config
}

func (c Config) GetAddress() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}
