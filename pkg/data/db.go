package data

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"
)

const (
	// DataFileName is the default warehouse file name.
	DataFileName string = "olist.db"
)

var (
	//go:embed sql/*
	f embed.FS

	errDBNotInitialized = errors.New("database not initialized")
)

// Init initializes the warehouse database at the given path, creating the
// schema on first use.
func Init(dbFilePath string) error {
	if dbFilePath == "" {
		return errors.New("dbFilePath not specified")
	}

	if _, err := os.Stat(dbFilePath); errors.Is(err, os.ErrNotExist) {
		db, err := GetDB(dbFilePath)
		if err != nil {
			return fmt.Errorf("opening database %s: %w", dbFilePath, err)
		}
		defer db.Close()

		slog.Debug("creating db schema...")
		b, err := f.ReadFile("sql/ddl.sql")
		if err != nil {
			return fmt.Errorf("reading the schema creation file: %w", err)
		}
		if _, err := db.Exec(string(b)); err != nil {
			return fmt.Errorf("creating database schema in %s: %w", dbFilePath, err)
		}
		slog.Debug("db schema created")
	}

	return nil
}

// GetDB opens the warehouse database. The pool is capped at one
// connection: sqlite allows a single writer, and concurrent loaders are
// serialized here instead of surfacing busy errors.
func GetDB(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)
	return conn, nil
}
