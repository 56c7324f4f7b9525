// Package db opens the origin-scoped sqlite store and embeds its migrations.
package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Open opens (creating if needed) the sqlite database at path. Caller must call Close when done.
func Open(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("db: create state dir: %w", err)
		}
	}
	conn, err := sqlx.Connect("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", path, err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY churn between processes' pools.
	conn.SetMaxOpenConns(1)
	return conn, nil
}
