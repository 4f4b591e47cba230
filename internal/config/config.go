package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gocalc/internal/errors"

	"github.com/BurntSushi/toml"
)

// Config represents the complete application configuration
type Config struct {
	Store   StoreConfig   `toml:"store"`
	Server  ServerConfig  `toml:"server"`
	API     APIConfig     `toml:"api"`
	Logging LoggingConfig `toml:"logging"`
	Report  ReportConfig  `toml:"report"`
}

// StoreConfig selects and locates the key-value store
type StoreConfig struct {
	Driver      string        `toml:"driver"`
	DatabaseURL string        `toml:"database_url"`
	SQLitePath  string        `toml:"sqlite_path"`
	Timeout     time.Duration `toml:"timeout"`
}

// ServerConfig holds browser UI settings
type ServerConfig struct {
	Port             string `toml:"port"`
	GinMode          string `toml:"gin_mode"`
	DefaultWorkspace string `toml:"default_workspace"`
}

// APIConfig holds JSON API settings
type APIConfig struct {
	Port           string   `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// LoggingConfig holds log verbosity
type LoggingConfig struct {
	Level string `toml:"level"`
}

// ReportConfig holds report rendering settings
type ReportConfig struct {
	Workers int `toml:"workers"`
}

// DSN returns the data source name for the configured driver
func (s StoreConfig) DSN() string {
	if s.Driver == DriverPostgres {
		return s.DatabaseURL
	}
	return s.SQLitePath
}

// Store drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:     DriverSQLite,
			SQLitePath: "gocalc.db",
			Timeout:    5 * time.Second,
		},
		Server: ServerConfig{
			Port:             "8080",
			GinMode:          "release",
			DefaultWorkspace: "default",
		},
		API: APIConfig{
			Port:           "8081",
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Logging: LoggingConfig{Level: "INFO"},
		Report:  ReportConfig{Workers: 4},
	}
}

// Load reads defaults, then the optional TOML file named by CONFIG_FILE, then
// environment variables, and validates the result.
func Load() (*Config, error) {
	config := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, errors.Wrap(err, "failed to load configuration file")
		}
	}

	loadStoreConfig(&config.Store)
	loadServerConfig(&config.Server)
	loadAPIConfig(&config.API)
	config.Logging.Level = getEnvOrDefault("LOG_LEVEL", config.Logging.Level)
	config.Report.Workers = getEnvIntOrDefault("REPORT_WORKERS", config.Report.Workers)

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadFile(path string, config *Config) error {
	if _, err := toml.DecodeFile(path, config); err != nil {
		return errors.Wrapf(errors.ConfigInvalid(err.Error()), "cannot decode %s", path)
	}
	return nil
}

func loadStoreConfig(store *StoreConfig) {
	store.Driver = normalizeDriver(getEnvOrDefault("STORE_DRIVER", store.Driver))
	store.DatabaseURL = getEnvOrDefault("DATABASE_URL", store.DatabaseURL)
	store.SQLitePath = getEnvOrDefault("SQLITE_PATH", store.SQLitePath)
	store.Timeout = getEnvDurationOrDefault("STORE_TIMEOUT", store.Timeout)
}

func loadServerConfig(server *ServerConfig) {
	server.Port = getEnvOrDefault("PORT", server.Port)
	server.GinMode = getEnvOrDefault("GIN_MODE", server.GinMode)
	server.DefaultWorkspace = getEnvOrDefault("DEFAULT_WORKSPACE", server.DefaultWorkspace)
}

func loadAPIConfig(api *APIConfig) {
	api.Port = getEnvOrDefault("API_PORT", api.Port)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		api.AllowedOrigins = splitList(origins)
	}
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return DriverSQLite
	case "postgres", "postgresql", "pg":
		return DriverPostgres
	}
	return driver
}

func validateConfig(config *Config) error {
	config.Store.Driver = normalizeDriver(config.Store.Driver)
	switch config.Store.Driver {
	case DriverSQLite:
		if config.Store.SQLitePath == "" {
			return errors.ConfigInvalid("SQLITE_PATH is required for the sqlite store")
		}
	case DriverPostgres:
		if config.Store.DatabaseURL == "" {
			return errors.ConfigInvalid("DATABASE_URL is required for the postgres store")
		}
	default:
		return errors.ConfigInvalid("unsupported STORE_DRIVER " + strconv.Quote(config.Store.Driver))
	}
	if config.Store.Timeout <= 0 {
		return errors.ConfigInvalid("STORE_TIMEOUT must be positive")
	}
	if config.Server.Port == "" || config.API.Port == "" {
		return errors.ConfigInvalid("server and API ports are required")
	}
	if config.Server.DefaultWorkspace == "" {
		return errors.ConfigInvalid("default workspace is required")
	}
	if config.Report.Workers < 1 {
		return errors.ConfigInvalid("REPORT_WORKERS must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
