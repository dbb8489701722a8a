package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the Postgres pool shared by every repository.
type DB struct {
	*sql.DB
}

// Config describes the Postgres connection. URL wins when set; the
// individual fields are the fallback for environments that configure
// them separately.
type Config struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c Config) dsn() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// NewConnection opens and verifies the pool. The ledger workload is
// many short transactions, so the pool keeps a generous idle set and
// recycles connections instead of holding them indefinitely.
func NewConnection(config Config) (*DB, error) {
	db, err := sql.Open("postgres", config.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// RunMigrations applies all pending schema migrations.
func (db *DB) RunMigrations() error {
	return NewMigrator(db.DB).RunMigrations()
}

// GetMigrationStatus prints which migrations have been applied.
func (db *DB) GetMigrationStatus() error {
	return NewMigrator(db.DB).GetMigrationStatus()
}
