package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr             string
	DatabaseURL            string
	LocalDBPath            string
	GoogleClientID         string
	GoogleCertsURL         string
	AdminUserIDs           []string
	MachinesFile           string
	RetentionSweepInterval time.Duration
	RateLimitPerSec        float64
	RateLimitBurst         int
	LogLevel               string
	LogFile                string
}

// Load reads a .env file from the working directory if present and then
// builds the configuration from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	sweep, err := time.ParseDuration(getEnv("RETENTION_SWEEP_INTERVAL", "1h"))

	if err != nil {
		return nil, fmt.Errorf("invalid RETENTION_SWEEP_INTERVAL: %w", err)
	}

	perSec, err := strconv.ParseFloat(getEnv("RATE_LIMIT_PER_SEC", "10"), 64)

	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_SEC: %w", err)
	}

	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20"))

	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	return &Config{
		ListenAddr:             getEnv("LISTEN_ADDR", ":9090"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		LocalDBPath:            getEnv("LOCAL_DB_PATH", "laundry.db"),
		GoogleClientID:         getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleCertsURL:         getEnv("GOOGLE_CERTS_URL", ""),
		AdminUserIDs:           splitList(getEnv("ADMIN_USER_IDS", "")),
		MachinesFile:           getEnv("MACHINES_FILE", ""),
		RetentionSweepInterval: sweep,
		RateLimitPerSec:        perSec,
		RateLimitBurst:         burst,
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFile:                getEnv("LOG_FILE", ""),
	}, nil
}

// RemoteEnabled reports whether a remote reservation store is configured.
func (c *Config) RemoteEnabled() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func splitList(value string) []string {
	items := []string{}

	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}
