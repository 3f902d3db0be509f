// Package database provides database connection and schema management for userapi.
// It supports both SQLite and PostgreSQL backends.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// DB represents a database connection with migration support.
type DB struct {
	*sql.DB
	driver   string
	mu       sync.Mutex
	migrated bool
}

// Config holds database configuration.
type Config struct {
	Driver   string `json:"driver" yaml:"driver"`     // "sqlite" or "postgres"
	Host     string `json:"host" yaml:"host"`         // PostgreSQL host
	Port     int    `json:"port" yaml:"port"`         // PostgreSQL port
	Database string `json:"database" yaml:"database"` // Database name or SQLite file path
	User     string `json:"user" yaml:"user"`         // PostgreSQL user
	Password string `json:"password" yaml:"password"` // PostgreSQL password
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode"` // PostgreSQL SSL mode
}

// DefaultConfig returns the default database configuration: a users.db SQLite
// file in the working directory.
func DefaultConfig() *Config {
	return &Config{
		Driver:   "sqlite",
		Database: "users.db",
	}
}

// New creates a new database connection.
func New(cfg *Config) (*DB, error) {
	var connStr string
	var driver string

	switch cfg.Driver {
	case "postgres", "postgresql":
		driver = "postgres"
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		connStr = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode,
		)
	case "sqlite", "sqlite3", "":
		driver = "sqlite3"
		connStr = sqliteDSN(cfg.Database)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite3" {
		// SQLite allows a single writer; one connection keeps writes serialized
		// inside the engine instead of surfacing SQLITE_BUSY to callers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		DB:     db,
		driver: driver,
	}, nil
}

// sqliteDSN turns a file path into a go-sqlite3 DSN with a busy timeout.
func sqliteDSN(path string) string {
	if path == "" {
		path = DefaultConfig().Database
	}
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000"
}

// Driver returns the database driver name.
func (d *DB) Driver() string {
	return d.driver
}

// Dialect returns the goose dialect matching the driver.
func (d *DB) Dialect() string {
	if d.driver == "sqlite3" {
		return "sqlite3"
	}
	return "postgres"
}

// Migrate creates the schema if absent by applying the embedded goose
// migrations for the active dialect. Safe to call more than once.
func (d *DB) Migrate(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.migrated {
		return nil
	}

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(d.Dialect()); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, d.DB, "migrations/"+d.Dialect()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.migrated = true
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.DB.Close()
}
