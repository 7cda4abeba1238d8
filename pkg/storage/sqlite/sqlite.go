// Package sqlite stores users, notes and blog posts in a SQLite database
// using the pure-Go modernc.org/sqlite driver.
//
// A single [DB] serves all three stores:
//
//	db, err := sqlite.Open(ctx, "folio.db")
//	notes := db.Notes()
//
// The schema is created by [DB.Migrate], which Open runs automatically.
// Use ":memory:" for a throwaway database in tests.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SchemaVersion is the version written by Migrate.
const SchemaVersion = 1

//go:embed schema.sql
var schema string

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB is an open SQLite database.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite: empty path")
	}
	if path := filePath(dsn); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: SQLite has a single writer, and every connection to
	// ":memory:" would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	d := &DB{db: db}
	if err := d.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func filePath(dsn string) string {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return ""
	}
	return dsn
}

// Migrate creates missing tables and records the schema version.
func (d *DB) Migrate(ctx context.Context) error {
	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
		if _, err := d.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var version int
	err := d.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		_, err = d.db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
	case err == nil && version > SchemaVersion:
		return fmt.Errorf("database schema v%d is newer than supported v%d", version, SchemaVersion)
	}
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

// Version returns the schema version stored in the database.
func (d *DB) Version(ctx context.Context) (int, error) {
	var v int
	if err := d.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// Ping checks the connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Users returns the user store.
func (d *DB) Users() *UserStore { return &UserStore{db: d.db} }

// Notes returns the note store.
func (d *DB) Notes() *NoteStore { return &NoteStore{db: d.db} }

// Blogs returns the blog store.
func (d *DB) Blogs() *BlogStore { return &BlogStore{db: d.db} }

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// likePattern escapes s for use in a LIKE ... ESCAPE '\' clause.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
