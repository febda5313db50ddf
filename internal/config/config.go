// Package config provides configuration management for the items API server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values.
const (
	DefaultServerPort         = 8080
	DefaultLogLevel           = "info"
	DefaultShutdownTimeout    = 30 * time.Second
	DefaultMetricsEnabled     = true
	DefaultStoreDriver        = "memory"
	DefaultCORSAllowedOrigins = "*"
	DefaultEnvFile            = ".env"
)

// Environment variable names.
const (
	EnvServerPort         = "APP_SERVER_PORT"
	EnvLogLevel           = "APP_LOG_LEVEL"
	EnvShutdownTimeout    = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled     = "APP_METRICS_ENABLED"
	EnvStoreDriver        = "APP_STORE_DRIVER"
	EnvDatabaseDSN        = "APP_DATABASE_DSN"
	EnvCORSAllowedOrigins = "APP_CORS_ALLOWED_ORIGINS"
	EnvEnvFile            = "APP_ENV_FILE"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// Store settings. DatabaseDSN is required by every driver except memory.
	StoreDriver string
	DatabaseDSN string

	CORSAllowedOrigins []string
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidStoreDriver     = errors.New("store driver must be one of: memory, sqlite, postgres, mysql")
	ErrMissingDatabaseDSN     = errors.New("database DSN must be set when store driver is not memory")
	ErrNoCORSOrigins          = errors.New("at least one CORS allowed origin must be set")
)

// lookupFunc returns the value of a configuration key and whether it is set.
type lookupFunc func(key string) (string, bool)

// Load reads configuration from environment variables and an optional .env
// file, applying defaults for anything unset. Process environment variables
// take priority over the file, which takes priority over defaults.
//
// The file named by APP_ENV_FILE must exist; the default .env file is
// optional.
func Load() (*Config, error) {
	fileValues, err := readEnvFile()
	if err != nil {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	lookup := func(key string) (string, bool) {
		if val, ok := os.LookupEnv(key); ok {
			return val, true
		}
		val, ok := fileValues[key]
		return val, ok
	}

	cfg := &Config{
		ServerPort:         DefaultServerPort,
		LogLevel:           DefaultLogLevel,
		ShutdownTimeout:    DefaultShutdownTimeout,
		MetricsEnabled:     DefaultMetricsEnabled,
		StoreDriver:        DefaultStoreDriver,
		CORSAllowedOrigins: splitList(DefaultCORSAllowedOrigins),
	}

	if err := cfg.load(lookup); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// readEnvFile reads key/value pairs from the configured env file without
// modifying the process environment.
func readEnvFile() (map[string]string, error) {
	path, explicit := os.LookupEnv(EnvEnvFile)
	if !explicit || path == "" {
		path = DefaultEnvFile
	}

	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return values, nil
}

// load applies configuration values found through lookup.
func (c *Config) load(lookup lookupFunc) error {
	if err := c.loadServerEnv(lookup); err != nil {
		return err
	}

	c.loadStoreEnv(lookup)

	return nil
}

// loadServerEnv loads server-related configuration values.
func (c *Config) loadServerEnv(lookup lookupFunc) error {
	if val, ok := lookup(EnvServerPort); ok && val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val, ok := lookup(EnvLogLevel); ok && val != "" {
		c.LogLevel = val
	}

	if val, ok := lookup(EnvShutdownTimeout); ok && val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val, ok := lookup(EnvMetricsEnabled); ok && val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	if val, ok := lookup(EnvCORSAllowedOrigins); ok && val != "" {
		c.CORSAllowedOrigins = splitList(val)
	}

	return nil
}

// loadStoreEnv loads store-related configuration values.
func (c *Config) loadStoreEnv(lookup lookupFunc) {
	if val, ok := lookup(EnvStoreDriver); ok && val != "" {
		c.StoreDriver = strings.ToLower(val)
	}

	if val, ok := lookup(EnvDatabaseDSN); ok && val != "" {
		c.DatabaseDSN = val
	}
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if len(c.CORSAllowedOrigins) == 0 {
		return ErrNoCORSOrigins
	}

	return nil
}

// validateStore validates store-related configuration.
func (c *Config) validateStore() error {
	switch c.StoreDriver {
	case "memory":
		return nil
	case "sqlite", "postgres", "mysql":
		if c.DatabaseDSN == "" {
			return ErrMissingDatabaseDSN
		}
		return nil
	default:
		return ErrInvalidStoreDriver
	}
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
