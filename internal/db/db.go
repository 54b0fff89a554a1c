package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL CHECK (kind IN ('Foo', 'Bar', 'Baz')),
	status     TEXT NOT NULL CHECK (status IN ('Pending', 'InProgress', 'Completed')),
	process_at INTEGER NOT NULL -- unix nanoseconds, UTC
);
CREATE INDEX IF NOT EXISTS idx_tasks_status_process_at ON tasks (status, process_at);
`

// Init opens the task database and makes sure the schema exists.
func Init(ctx context.Context, url string, maxConns int) (*sql.DB, error) {
	dsn := DSN(url)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// every connection to :memory: is a separate database
	if isMemory(dsn) {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", url, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tasks table: %w", err)
	}

	return db, nil
}

// DSN turns a DATABASE_URL into a go-sqlite3 data source name with WAL
// journaling and a busy timeout so concurrent claimers wait instead of
// failing with SQLITE_BUSY.
func DSN(url string) string {
	url = strings.TrimPrefix(url, "sqlite://")
	url = strings.TrimPrefix(url, "sqlite3://")

	var params []string
	if !strings.Contains(url, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if !isMemory(url) && !strings.Contains(url, "_journal_mode") {
		params = append(params, "_journal_mode=WAL")
	}
	if len(params) == 0 {
		return url
	}

	if !strings.HasPrefix(url, "file:") {
		url = "file:" + url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + strings.Join(params, "&")
}

func isMemory(url string) bool {
	return strings.Contains(url, ":memory:") || strings.Contains(url, "mode=memory")
}
