// Package config provides centralized default values for visitforge
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		if err := godotenv.Load(); err != nil {
			return
		}
		log.Println("Loading configuration overrides from .env file...")
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	AllowedOrigins     []string

	// Database Configuration
	SQLitePath     string
	TursoDatabase  string
	TursoToken     string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Identity Configuration
	FingerprintSalt string

	// Admin Authentication
	JWTSecret     string
	AdminPassword string
	AdminTokenTTL time.Duration

	// Email Configuration
	ResendAPIKey string
	EmailFrom    string
	EmailTo      string
	EmailEnabled bool

	// Activity Broadcasting
	ActivityTickInterval time.Duration
	MaxActivityClients   int

	// Observability
	SlowQueryThreshold time.Duration
	LogDirectory       string
	LogToFile          bool
)

// Initialize populates all configuration values from the environment.
// Must be called before any config value is read.
func Initialize() {
	loadEnvFile()

	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second)
	AllowedOrigins = strings.Split(getEnvString("ALLOWED_ORIGINS",
		"http://localhost:3000,http://127.0.0.1:3000,http://[::1]:3000"), ",")

	SQLitePath = getEnvString("SQLITE_PATH", "db/visitforge.db")
	TursoDatabase = getEnvString("TURSO_DATABASE", "")
	TursoToken = getEnvString("TURSO_TOKEN", "")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)

	FingerprintSalt = getEnvString("FP_SALT", "change_me")

	JWTSecret = getEnvString("JWT_SECRET", "")
	AdminPassword = getEnvString("ADMIN_PASSWORD", "")
	AdminTokenTTL = getEnvDuration("ADMIN_TOKEN_TTL", 24*time.Hour)

	ResendAPIKey = getEnvString("RESEND_API_KEY", "")
	EmailFrom = getEnvString("EMAIL_FROM", "noreply@yourdomain.com")
	EmailTo = getEnvString("EMAIL_TO", "")
	EmailEnabled = getEnvBool("EMAIL_ENABLED", true)

	ActivityTickInterval = getEnvDuration("ACTIVITY_TICK_INTERVAL", 20*time.Second)
	MaxActivityClients = getEnvInt("MAX_ACTIVITY_CLIENTS", 25)

	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 500*time.Millisecond)
	LogDirectory = getEnvString("LOG_DIRECTORY", "logs")
	LogToFile = getEnvBool("LOG_TO_FILE", false)
}
