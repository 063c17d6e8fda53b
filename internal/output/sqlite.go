// internal/output/sqlite.go
package output

import (
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteWriter writes records to a local SQLite database file.
type SQLiteWriter struct {
	*sqlWriter
}

// NewSQLiteWriter opens or creates the database file and its parent
// directory.
func NewSQLiteWriter(config Config) (*SQLiteWriter, error) {
	if config.File == "" {
		return nil, fmt.Errorf("sqlite output requires a database path")
	}
	if dir := filepath.Dir(config.File); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := config.File + "?_busy_timeout=5000&_journal_mode=WAL"
	w, err := newSQLWriter("sqlite3", dsn, dialectSQLite, config)
	if err != nil {
		return nil, err
	}

	// single writer keeps WAL contention away
	w.db.SetMaxOpenConns(1)
	w.db.SetMaxIdleConns(1)

	return &SQLiteWriter{sqlWriter: w}, nil
}
