package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PostgresDialect implements Dialect for PostgreSQL
type PostgresDialect struct{}

// NewPostgresDialect creates a new PostgreSQL dialect
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

func (d *PostgresDialect) DSN(config RemoteConfig) string {
	return config.DSN
}

// RewriteQuery numbers placeholders and turns SQLite upserts into ON CONFLICT clauses
func (d *PostgresDialect) RewriteQuery(query string) string {
	if u, ok := parseUpsert(query); ok {
		query = u.insertPrefix("INSERT")
		if u.replace {
			sets := make([]string, 0, len(u.columns))
			for _, col := range u.columns {
				if col == "id" {
					continue
				}
				sets = append(sets, col+" = EXCLUDED."+col)
			}
			query += " ON CONFLICT (id) DO UPDATE SET " + strings.Join(sets, ", ")
		} else {
			query += " ON CONFLICT DO NOTHING"
		}
	}
	return rewritePlaceholdersToNumbered(query)
}

func (d *PostgresDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}
