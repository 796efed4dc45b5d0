package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect implements Dialect for SQLite
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

func (d *SQLiteDialect) DSN(config RemoteConfig) string {
	if config.DSN != "" {
		return config.DSN
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000", config.Path)
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	// SQLite is the source syntax
	return query
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}
	return nil
}
