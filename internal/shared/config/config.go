package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Archive   ArchiveConfig
	KurrentDB KurrentDBConfig
	Auth      AuthConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// ArchiveConfig holds configuration for the legacy records archive
// (the state NIC SQL Server that stores scanned FRA registers and the
// extraction pipeline's output tables).
type ArchiveConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// PollInterval is how often the adapter checks for finished extractions
	PollInterval time.Duration
}

// KurrentDBConfig holds configuration for KurrentDB (EventStoreDB),
// used for the append-only audit trail.
type KurrentDBConfig struct {
	Host     string
	Port     int
	Insecure bool
	Username string
	Password string
}

type AuthConfig struct {
	// JWTSecret verifies tokens issued by the identity provider.
	// The platform consumes already-authenticated principals; it does
	// not issue tokens itself.
	JWTSecret string
	Issuer    string
	Audience  string
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "atlas"),
			Password: getEnv("DB_PASSWORD", "atlas"),
			Database: getEnv("DB_NAME", "atlas"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Archive: ArchiveConfig{
			Enabled:      getEnvBool("ARCHIVE_ENABLED", false),
			Host:         getEnv("ARCHIVE_HOST", "localhost"),
			Port:         getEnvInt("ARCHIVE_PORT", 1433),
			User:         getEnv("ARCHIVE_USER", "atlas_reader"),
			Password:     getEnv("ARCHIVE_PASSWORD", ""),
			Database:     getEnv("ARCHIVE_DB", "fra_archive"),
			SSLMode:      getEnv("ARCHIVE_SSLMODE", "disable"),
			PollInterval: getEnvDuration("ARCHIVE_POLL_INTERVAL", 30*time.Second),
		},
		KurrentDB: KurrentDBConfig{
			Host:     getEnv("KURRENTDB_HOST", "localhost"),
			Port:     getEnvInt("KURRENTDB_PORT", 2113),
			Insecure: getEnvBool("KURRENTDB_INSECURE", true),
			Username: getEnv("KURRENTDB_USERNAME", ""),
			Password: getEnv("KURRENTDB_PASSWORD", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			Issuer:    getEnv("JWT_ISSUER", "fra-atlas"),
			Audience:  getEnv("JWT_AUDIENCE", "fra-atlas"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
