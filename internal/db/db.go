package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var defaultDB *sql.DB

const (
	createTableSQL = `
CREATE TABLE IF NOT EXISTS page_cache_tab (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	workshop_id VARCHAR(32) NOT NULL,
	fetched_at BIGINT NOT NULL,
	payload VARCHAR(8192) NOT NULL
);`

	createIndexSQL = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_page_cache_tab_workshop_id
ON page_cache_tab(workshop_id);`
)

// Open opens (or creates) the scrape cache database at the given path.
// Pragmas ride on the DSN so every pooled connection gets them.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", path)
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db %s: %w", path, err)
	}
	handle.SetMaxOpenConns(1)
	return handle, nil
}

// SetDefault assigns the global database instance.
func SetDefault(handle *sql.DB) {
	defaultDB = handle
}

// Default returns the configured global database instance.
func Default() *sql.DB {
	return defaultDB
}

// EnsureSchema initialises required tables and indexes.
func EnsureSchema(ctx context.Context, handle *sql.DB) error {
	if _, err := handle.ExecContext(ctx, createTableSQL); err != nil {
		return err
	}
	if _, err := handle.ExecContext(ctx, createIndexSQL); err != nil {
		return err
	}
	return nil
}
