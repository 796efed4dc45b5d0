package database

import (
	"database/sql"
	"regexp"
	"strconv"
	"strings"
)

// Dialect hides the differences between the supported remote databases.
// Statements are written in SQLite syntax and rewritten per dialect.
type Dialect interface {
	// DriverName returns the database/sql driver name
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config RemoteConfig) string

	// RewriteQuery converts placeholders and upsert syntax if needed
	RewriteQuery(query string) string

	// ConfigureConnection applies pool settings and session options
	ConfigureConnection(db *sql.DB) error
}

// placeholderRegexp matches ? placeholders
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

var upsertRegexp = regexp.MustCompile(`(?is)^\s*INSERT\s+OR\s+(REPLACE|IGNORE)\s+INTO\s+(\w+)\s*\(([^)]*)\)(.*?);?\s*$`)

// upsert is a parsed "INSERT OR REPLACE/IGNORE INTO t (cols) ..." statement
type upsert struct {
	replace bool
	table   string
	columns []string
	rest    string
}

func parseUpsert(query string) (upsert, bool) {
	m := upsertRegexp.FindStringSubmatch(query)
	if m == nil {
		return upsert{}, false
	}
	cols := strings.Split(m[3], ",")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return upsert{
		replace: strings.EqualFold(m[1], "REPLACE"),
		table:   m[2],
		columns: cols,
		rest:    strings.TrimSpace(m[4]),
	}, true
}

func (u upsert) insertPrefix(verb string) string {
	return verb + " INTO " + u.table + " (" + strings.Join(u.columns, ", ") + ") " + u.rest
}
