package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ErrNotConfigured is returned by Open when no remote driver is set
var ErrNotConfigured = errors.New("remote database not configured")

// Row is one result row keyed by column name
type Row = map[string]interface{}

// Executor runs statements against the remote store
type Executor interface {
	Execute(ctx context.Context, statement string, params ...interface{}) ([]Row, error)
	Ping(ctx context.Context) error
}

// RemoteConfig selects and addresses the remote store
type RemoteConfig struct {
	// sqlite3, postgres or mysql
	Driver string
	// Connection string for postgres/mysql, optional for sqlite3
	DSN string
	// Database file for sqlite3
	Path string
}

// DB is a remote store connection with dialect rewriting
type DB struct {
	*sqlx.DB
	Dialect Dialect
}

// DialectFor resolves a driver name
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return NewSQLiteDialect(), nil
	case "postgres", "postgresql":
		return NewPostgresDialect(), nil
	case "mysql":
		return NewMySQLDialect(), nil
	case "":
		return nil, ErrNotConfigured
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Open prepares a connection pool. A server that is down is reported by Ping,
// not here, so a configured remote can come up later.
func Open(ctx context.Context, cfg RemoteConfig) (*DB, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if _, ok := dialect.(*SQLiteDialect); ok && cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sqlx.Open(dialect.DriverName(), dialect.DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := dialect.ConfigureConnection(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure connection: %w", err)
	}
	return &DB{DB: db, Dialect: dialect}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// Ping checks that the remote store answers
func (db *DB) Ping(ctx context.Context) error {
	return db.DB.PingContext(ctx)
}

func returnsRows(statement string) bool {
	s := strings.ToUpper(strings.TrimSpace(statement))
	return strings.HasPrefix(s, "SELECT") || strings.HasPrefix(s, "WITH") ||
		strings.HasPrefix(s, "PRAGMA") || strings.Contains(s, " RETURNING ")
}

// Execute rewrites the statement for the dialect and runs it. Statements that
// return rows yield one Row per result row with []byte values converted to string.
func (db *DB) Execute(ctx context.Context, statement string, params ...interface{}) ([]Row, error) {
	query := db.Dialect.RewriteQuery(statement)
	if !returnsRows(statement) {
		if _, err := db.ExecContext(ctx, query, params...); err != nil {
			return nil, fmt.Errorf("failed to execute statement: %w", err)
		}
		return nil, nil
	}

	rows, err := db.QueryxContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		row := make(Row)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return result, nil
}
