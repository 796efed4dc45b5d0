package database

import (
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDialect implements Dialect for MySQL
type MySQLDialect struct{}

// NewMySQLDialect creates a new MySQL dialect
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) DriverName() string {
	return "mysql"
}

func (d *MySQLDialect) DSN(config RemoteConfig) string {
	return config.DSN
}

// RewriteQuery maps SQLite upserts to REPLACE INTO and INSERT IGNORE
func (d *MySQLDialect) RewriteQuery(query string) string {
	u, ok := parseUpsert(query)
	if !ok {
		return query
	}
	if u.replace {
		return u.insertPrefix("REPLACE")
	}
	return u.insertPrefix("INSERT IGNORE")
}

func (d *MySQLDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}
