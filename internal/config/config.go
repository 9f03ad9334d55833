package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anjumanuel/digital-commerce-readiness/internal/dataset"
)

// Config is the process configuration, read from the environment and then
// overridden by command-line flags.
type Config struct {
	Addr             string
	DataPath         string
	CataloguePath    string
	CatalogueVersion int
	AllowedOrigins   []string
	DefaultCompare   []string
	DefaultMetric    string
	PostgresDSN      string
	PostgresTable    string
	LogLevel         string
	LogPretty        bool
	ShutdownTimeout  time.Duration
}

// Load reads the configuration from the environment.
func Load() Config {
	port := getEnvWithDefault("PORT", "8001")
	if !strings.Contains(port, ":") {
		port = ":" + port
	}

	return Config{
		Addr:             port,
		DataPath:         getEnvWithDefault("DATA_PATH", "data/digital_readiness_master.csv"),
		CataloguePath:    os.Getenv("CATALOGUE_PATH"),
		CatalogueVersion: getEnvAsInt("CATALOGUE_VERSION", 0),
		AllowedOrigins: getEnvAsList("CORS_ORIGINS", []string{
			"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:8050",
		}),
		DefaultCompare:  getEnvAsList("DEFAULT_COMPARE", nil),
		DefaultMetric:   os.Getenv("DEFAULT_METRIC"),
		PostgresDSN:     postgresDSN(),
		PostgresTable:   os.Getenv("PG_TABLE"),
		LogLevel:        getEnvWithDefault("LOG_LEVEL", "info"),
		LogPretty:       getEnvAsBool("LOG_PRETTY", false),
		ShutdownTimeout: time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.PostgresTable == "" && c.DataPath == "" {
		return fmt.Errorf("config: no data source (set DATA_PATH or PG_TABLE)")
	}
	if c.PostgresTable != "" && c.PostgresDSN == "" {
		return fmt.Errorf("config: PG_TABLE is set but no Postgres connection is configured")
	}
	if c.CatalogueVersion < 0 {
		return fmt.Errorf("config: catalogue version must be >= 0, got %d", c.CatalogueVersion)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("config: shutdown timeout must be positive")
	}
	return nil
}

// Source returns the dataset source the configuration selects: a Postgres
// table when one is named, otherwise the CSV file.
func (c Config) Source() dataset.Source {
	if c.PostgresTable != "" {
		return dataset.Postgres{DSN: c.PostgresDSN, Table: c.PostgresTable}
	}
	return dataset.CSVFile{Path: c.DataPath}
}

// postgresDSN prefers PG_DSN and otherwise assembles one from the DB_* variables.
func postgresDSN() string {
	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		return dsn
	}
	if os.Getenv("DB_HOST") == "" {
		return ""
	}
	return dataset.PostgresConfig{
		Host:     os.Getenv("DB_HOST"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		User:     getEnvWithDefault("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   getEnvWithDefault("DB_NAME", "dcri"),
		SSLMode:  getEnvWithDefault("DB_SSL_MODE", "disable"),
	}.DSN()
}

// Helper functions
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
