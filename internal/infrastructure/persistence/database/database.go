// Package database provides the core functionality for creating and managing
// database connections in a clean, isolated manner.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
	"github.com/hintermann/visitforge/pkg/config"
	_ "github.com/mattn/go-sqlite3"                      // SQLite driver
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
)

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
	UseTurso bool
}

// NewConnection establishes the application database connection. Turso is
// tried first when credentials are configured; otherwise a local SQLite
// file is opened, creating its directory if needed.
func NewConnection(logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()

	if config.TursoDatabase != "" && config.TursoToken != "" {
		connStr := config.TursoDatabase + "?authToken=" + config.TursoToken
		conn, err := sql.Open("libsql", connStr)
		if err == nil {
			if pingErr := conn.Ping(); pingErr == nil {
				logger.Database().Info("Database connection established",
					"driver", "libsql", "duration", time.Since(start))
				return configurePool(&DB{DB: conn, UseTurso: true}), nil
			}
			conn.Close()
		}
		logger.Database().Warn("Turso connection failed, falling back to SQLite")
	}

	dbDir := filepath.Dir(config.SQLitePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", config.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("SQLite database ping failed: %w", err)
	}

	logger.Database().Info("Database connection established",
		"driver", "sqlite3", "path", config.SQLitePath, "duration", time.Since(start))
	return configurePool(&DB{DB: conn, UseTurso: false}), nil
}

func configurePool(db *DB) *DB {
	db.SetMaxOpenConns(config.DBMaxOpenConns)
	db.SetMaxIdleConns(config.DBMaxIdleConns)
	return db
}

// ConnectionInfo returns a string describing the database connection.
func (db *DB) ConnectionInfo() string {
	if db.UseTurso {
		return "Turso"
	}
	return "SQLite"
}

// Healthy reports whether the connection answers a trivial query.
func (db *DB) Healthy() bool {
	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		return false
	}
	return result == 1
}

// CheckAndLogSlowQuery logs the query through the slow-query channel when its
// duration exceeds the configured threshold.
func CheckAndLogSlowQuery(logger *logging.ChanneledLogger, query string, duration time.Duration) {
	if duration > config.SlowQueryThreshold {
		logger.LogSlowQuery(query, duration)
	}
}
